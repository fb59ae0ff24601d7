package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ClientLogger is the production Logger implementation for the client.
//
// Design:
//   - JSON format when running under an aggregated environment, text for
//     local development (auto-detected, explicitly overridable)
//   - Level hierarchy with dynamic adjustment
//   - Error logs are rate-limited to prevent flooding when the remote API
//     is down and every call fails at once
//   - Thread-safe
type ClientLogger struct {
	level  string
	debug  bool
	name   string
	format string
	output io.Writer
	mu     sync.RWMutex

	// Rate limiting to prevent log flooding during failures
	errorLimiter *logRateLimiter
}

// NewClientLogger creates a logger from the logging configuration.
// Configuration priority:
//  1. Explicit LoggingConfig values (highest)
//  2. Environment variables (STOREFRONT_LOG_LEVEL, STOREFRONT_DEBUG)
//  3. Auto-detection (K8s environment selects JSON)
//  4. Defaults (lowest)
func NewClientLogger(name string, cfg LoggingConfig) *ClientLogger {
	level := cfg.Level
	if level == "" {
		level = os.Getenv("STOREFRONT_LOG_LEVEL")
	}
	if level == "" {
		level = "INFO"
	}

	debug := os.Getenv("STOREFRONT_DEBUG") == "true" ||
		strings.ToUpper(level) == "DEBUG"

	format := cfg.Format
	if format == "" {
		format = "text"
		if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
			format = "json"
		}
	}

	return &ClientLogger{
		level:        strings.ToUpper(level),
		debug:        debug,
		name:         name,
		format:       format,
		output:       os.Stdout,
		errorLimiter: newLogRateLimiter(1 * time.Second),
	}
}

// Info logs informational messages
func (l *ClientLogger) Info(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

// Warn logs warning messages
func (l *ClientLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

// Error logs error messages with rate limiting
func (l *ClientLogger) Error(msg string, fields map[string]interface{}) {
	if l.errorLimiter != nil && !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, fields)
}

// Debug logs debug messages (only when debug mode is enabled)
func (l *ClientLogger) Debug(msg string, fields map[string]interface{}) {
	if !l.debug {
		return
	}
	l.log("DEBUG", msg, fields)
}

func (l *ClientLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.shouldLog(level) {
		return
	}

	timestamp := time.Now().Format(time.RFC3339)

	if l.format == "json" {
		l.logJSON(timestamp, level, msg, fields)
	} else {
		l.logText(timestamp, level, msg, fields)
	}
}

func (l *ClientLogger) logJSON(timestamp, level, msg string, fields map[string]interface{}) {
	logEntry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"component": l.name,
		"message":   msg,
	}

	for k, v := range fields {
		// Avoid overwriting core fields
		if k != "timestamp" && k != "level" && k != "component" && k != "message" {
			logEntry[k] = v
		}
	}

	if data, err := json.Marshal(logEntry); err == nil {
		fmt.Fprintln(l.output, string(data))
	}
}

func (l *ClientLogger) logText(timestamp, level, msg string, fields map[string]interface{}) {
	var fieldStr strings.Builder
	if len(fields) > 0 {
		fieldStr.WriteString(" ")
		// Sort common fields first for readability
		if op, ok := fields["operation"]; ok {
			fieldStr.WriteString(fmt.Sprintf("operation=%v ", op))
			delete(fields, "operation")
		}
		if err, ok := fields["error"]; ok {
			fieldStr.WriteString(fmt.Sprintf("error=\"%v\" ", err))
			delete(fields, "error")
		}
		for k, v := range fields {
			fieldStr.WriteString(fmt.Sprintf("%s=%v ", k, v))
		}
	}

	fmt.Fprintf(l.output, "%s [%s] [%s] %s%s\n",
		timestamp, level, l.name, msg, fieldStr.String())
}

func (l *ClientLogger) shouldLog(level string) bool {
	levels := map[string]int{
		"DEBUG": 0,
		"INFO":  1,
		"WARN":  2,
		"ERROR": 3,
	}

	currentLevel, ok1 := levels[l.level]
	messageLevel, ok2 := levels[level]

	// Default to logging if levels are unknown
	if !ok1 || !ok2 {
		return true
	}

	return messageLevel >= currentLevel
}

// SetLevel dynamically updates the log level
func (l *ClientLogger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = strings.ToUpper(level)
	l.debug = l.level == "DEBUG"
}

// SetOutput changes the output writer (useful for testing)
func (l *ClientLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// logRateLimiter implements a simple rate limiter for error logging
type logRateLimiter struct {
	interval time.Duration
	lastTime time.Time
	mu       sync.Mutex
}

func newLogRateLimiter(interval time.Duration) *logRateLimiter {
	return &logRateLimiter{
		interval: interval,
	}
}

// Allow returns true if an action is allowed based on rate limiting
func (r *logRateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.lastTime) >= r.interval {
		r.lastTime = now
		return true
	}
	return false
}
