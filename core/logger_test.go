package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestClientLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewClientLogger("test", LoggingConfig{Level: "WARN", Format: "text"})
	logger.SetOutput(&buf)

	logger.Debug("debug message", nil)
	logger.Info("info message", nil)
	logger.Warn("warn message", nil)

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("Expected debug/info to be filtered at WARN level, got: %s", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Errorf("Expected warn message to be logged, got: %s", out)
	}
}

func TestClientLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewClientLogger("test", LoggingConfig{Level: "INFO", Format: "json"})
	logger.SetOutput(&buf)

	logger.Info("hello", map[string]interface{}{"operation": "unit_test"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected valid JSON output, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "hello" {
		t.Errorf("Expected message field, got %v", entry["message"])
	}
	if entry["component"] != "test" {
		t.Errorf("Expected component field, got %v", entry["component"])
	}
	if entry["operation"] != "unit_test" {
		t.Errorf("Expected operation field, got %v", entry["operation"])
	}
}

func TestClientLoggerErrorRateLimiting(t *testing.T) {
	var buf bytes.Buffer
	logger := NewClientLogger("test", LoggingConfig{Level: "ERROR", Format: "text"})
	logger.SetOutput(&buf)

	for i := 0; i < 10; i++ {
		logger.Error("repeated failure", nil)
	}

	lines := strings.Count(buf.String(), "\n")
	if lines != 1 {
		t.Errorf("Expected 1 error line within the rate window, got %d", lines)
	}
}

func TestLogRateLimiterAllowsAfterInterval(t *testing.T) {
	limiter := newLogRateLimiter(10 * time.Millisecond)

	if !limiter.Allow() {
		t.Errorf("Expected first call to be allowed")
	}
	if limiter.Allow() {
		t.Errorf("Expected immediate second call to be limited")
	}

	time.Sleep(15 * time.Millisecond)
	if !limiter.Allow() {
		t.Errorf("Expected call after interval to be allowed")
	}
}

func TestClientLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewClientLogger("test", LoggingConfig{Level: "ERROR", Format: "text"})
	logger.SetOutput(&buf)

	logger.Info("before", nil)
	logger.SetLevel("INFO")
	logger.Info("after", nil)

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("Expected info to be filtered at ERROR level")
	}
	if !strings.Contains(out, "after") {
		t.Errorf("Expected info to pass after SetLevel(INFO)")
	}
}
