package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the storefront client.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := core.NewConfig(
//	    core.WithBaseURL("https://api.example.com/api/v1"),
//	    core.WithStorageProvider("file"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// API gateway configuration
	API APIConfig `json:"api" yaml:"api"`

	// Durable client storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Retry configuration for the vendor-approval check
	Retry RetryConfig `json:"retry" yaml:"retry"`

	// Chat configuration
	Chat ChatConfig `json:"chat" yaml:"chat"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Telemetry configuration (optional module)
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// APIConfig contains the remote API's location and transport settings.
// The API surface itself is an external collaborator; only the base URL
// and client-side timeout are configured here.
type APIConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url" env:"STOREFRONT_API_URL"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" env:"STOREFRONT_HTTP_TIMEOUT" default:"30s"`
}

// StorageConfig selects and configures the durable client storage backend.
// Supports a JSON state file (default), Redis for shared state, or
// in-memory for tests and ephemeral clients.
type StorageConfig struct {
	Provider string `json:"provider" yaml:"provider" env:"STOREFRONT_STORAGE_PROVIDER" default:"file"`
	FilePath string `json:"file_path" yaml:"file_path" env:"STOREFRONT_STORAGE_FILE"`
	RedisURL string `json:"redis_url" yaml:"redis_url" env:"STOREFRONT_REDIS_URL,REDIS_URL"`
}

// RetryConfig defines the bounded exponential backoff used when the
// vendor-approval check is rate limited.
// Formula: delay = InitialDelay * (BackoffFactor ^ attempt), so the
// defaults produce the 1s, 2s, 4s sequence.
type RetryConfig struct {
	MaxAttempts   int           `json:"max_attempts" yaml:"max_attempts" env:"STOREFRONT_RETRY_MAX_ATTEMPTS" default:"3"`
	InitialDelay  time.Duration `json:"initial_delay" yaml:"initial_delay" env:"STOREFRONT_RETRY_INITIAL_DELAY" default:"1s"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor" env:"STOREFRONT_RETRY_BACKOFF_FACTOR" default:"2.0"`
}

// ChatConfig configures the streaming chat consumer
type ChatConfig struct {
	// HistoryWindow is the number of prior transcript turns sent with
	// each message.
	HistoryWindow int `json:"history_window" yaml:"history_window" env:"STOREFRONT_CHAT_HISTORY" default:"10"`
}

// LoggingConfig contains structured logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"STOREFRONT_LOG_LEVEL" default:"INFO"`
	Format string `json:"format" yaml:"format" env:"STOREFRONT_LOG_FORMAT"`
}

// TelemetryConfig contains tracing configuration.
// This is an optional module - telemetry is only initialized when Enabled=true.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" env:"STOREFRONT_TELEMETRY_ENABLED" default:"false"`
	Endpoint    string `json:"endpoint" yaml:"endpoint" env:"STOREFRONT_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `json:"service_name" yaml:"service_name" env:"STOREFRONT_TELEMETRY_SERVICE_NAME,OTEL_SERVICE_NAME" default:"storefront"`
}

// Option is a functional configuration option
type Option func(*Config) error

// DefaultConfig returns a Config populated with defaults only
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Provider: "file",
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  time.Second,
			BackoffFactor: 2.0,
		},
		Chat: ChatConfig{
			HistoryWindow: 10,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "storefront",
		},
	}
}

// NewConfig builds a Config from defaults, environment variables and
// functional options, in that priority order, then validates it.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	cfg.applyEnvironment()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvironment overlays environment variables onto the config
func (c *Config) applyEnvironment() {
	if v := os.Getenv("STOREFRONT_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("STOREFRONT_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.API.Timeout = d
		}
	}

	if v := os.Getenv("STOREFRONT_STORAGE_PROVIDER"); v != "" {
		c.Storage.Provider = v
	}
	if v := os.Getenv("STOREFRONT_STORAGE_FILE"); v != "" {
		c.Storage.FilePath = v
	}
	if v := os.Getenv("STOREFRONT_REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	}

	if v := os.Getenv("STOREFRONT_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("STOREFRONT_RETRY_INITIAL_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.InitialDelay = d
		}
	}
	if v := os.Getenv("STOREFRONT_RETRY_BACKOFF_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Retry.BackoffFactor = f
		}
	}

	if v := os.Getenv("STOREFRONT_CHAT_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chat.HistoryWindow = n
		}
	}

	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STOREFRONT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv("STOREFRONT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true"
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	} else if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}
}

// LoadFromFile loads configuration from a JSON or YAML file.
// File configuration is applied on top of whatever the config already
// holds, so later options can still override file settings.
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	if !filepath.IsAbs(cleanPath) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		cleanPath = filepath.Join(wd, cleanPath)
	}

	data, err := os.ReadFile(filepath.Clean(cleanPath))
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", ErrInvalidConfiguration)
		}
	}

	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
// This method is called automatically by NewConfig() but can also be called
// manually after modifying configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return &ClientError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "API base URL is required",
			Err:     ErrMissingConfiguration,
		}
	}

	switch c.Storage.Provider {
	case "file", "redis", "memory":
	default:
		return &ClientError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("unknown storage provider: %s", c.Storage.Provider),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Storage.Provider == "redis" && c.Storage.RedisURL == "" {
		return &ClientError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "redis URL is required when the redis storage provider is selected",
			Err:     ErrMissingConfiguration,
		}
	}

	if c.Retry.MaxAttempts < 0 {
		return &ClientError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid retry attempts: %d", c.Retry.MaxAttempts),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Chat.HistoryWindow < 0 {
		return &ClientError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid chat history window: %d", c.Chat.HistoryWindow),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return &ClientError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "telemetry endpoint is required when telemetry is enabled",
			Err:     ErrMissingConfiguration,
		}
	}

	return nil
}

// WithBaseURL sets the remote API's base URL
func WithBaseURL(url string) Option {
	return func(c *Config) error {
		c.API.BaseURL = url
		return nil
	}
}

// WithHTTPTimeout sets the per-request timeout on the API gateway
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Config) error {
		c.API.Timeout = d
		return nil
	}
}

// WithStorageProvider selects the durable storage backend: "file",
// "redis" or "memory".
func WithStorageProvider(provider string) Option {
	return func(c *Config) error {
		c.Storage.Provider = provider
		return nil
	}
}

// WithStorageFile sets the state file path for the file storage backend
func WithStorageFile(path string) Option {
	return func(c *Config) error {
		c.Storage.FilePath = path
		return nil
	}
}

// WithRedisURL sets the Redis connection URL for the redis storage backend
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Storage.RedisURL = url
		return nil
	}
}

// WithRetry configures the approval-check retry budget and backoff
func WithRetry(maxAttempts int, initialDelay time.Duration, factor float64) Option {
	return func(c *Config) error {
		c.Retry.MaxAttempts = maxAttempts
		c.Retry.InitialDelay = initialDelay
		c.Retry.BackoffFactor = factor
		return nil
	}
}

// WithChatHistoryWindow bounds how many prior turns accompany each chat message
func WithChatHistoryWindow(n int) Option {
	return func(c *Config) error {
		c.Chat.HistoryWindow = n
		return nil
	}
}

// WithLogLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR)
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat forces the log output format ("json" or "text")
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithTelemetry enables tracing and sets the OTLP endpoint
func WithTelemetry(endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithConfigFile loads configuration from a JSON or YAML file.
// File configuration is applied in option order, so options placed after
// it can override file settings.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}
