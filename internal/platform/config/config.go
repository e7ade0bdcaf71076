// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultMaxRequestSize bounds request bodies, including import payloads (1MB).
	DefaultMaxRequestSize = 1 << 20

	// DefaultClientRetryMaxAttempts is the default number of feed fetch attempts per cycle.
	DefaultClientRetryMaxAttempts = 3

	// DefaultClientRetryMultiplier is the default exponential backoff multiplier.
	DefaultClientRetryMultiplier = 2.0

	// DefaultClientRetryJitterFactor is the default jitter percentage (±25%).
	DefaultClientRetryJitterFactor = 0.25

	// DefaultClientCircuitMaxFailures is the default failures before circuit opens.
	DefaultClientCircuitMaxFailures = 5

	// DefaultClientCircuitHalfOpenLimit is the default successes to close circuit.
	DefaultClientCircuitHalfOpenLimit = 1

	// DefaultClientMaxBodyBytes bounds a single feed response (4MB).
	DefaultClientMaxBodyBytes = 4 << 20

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 100

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28

	// DefaultSyncInterval is the period between background sync cycles.
	DefaultSyncInterval = 30 * time.Second

	// DefaultSyncManualRate is the sustained rate of on-demand syncs per second.
	DefaultSyncManualRate = 0.2

	// DefaultSyncManualBurst is how many on-demand syncs may run back to back.
	DefaultSyncManualBurst = 2

	// EnvPrefix prefixes every environment override. A double underscore
	// separates nesting levels: APP_SYNC__MANUAL_RATE sets sync.manual_rate.
	EnvPrefix = "APP_"
)

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Auth      AuthConfig      `koanf:"auth"`
	Client    ClientConfig    `koanf:"client"    validate:"required"`
	Services  ServicesConfig  `koanf:"services"  validate:"required"`
	Storage   StorageConfig   `koanf:"storage"   validate:"required"`
	Sync      SyncConfig      `koanf:"sync"      validate:"required"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// AuthConfig gates the mutating endpoints (import, sync) behind gateway-supplied headers.
type AuthConfig struct {
	Enabled       bool   `koanf:"enabled"`
	SubjectHeader string `koanf:"subject_header"`
	RolesHeader   string `koanf:"roles_header"`
	WriterRole    string `koanf:"writer_role" validate:"required_if=Enabled true"`
}

// ClientConfig contains HTTP client settings for the remote feed.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	MaxBodyBytes   int64                `koanf:"max_body_bytes"  validate:"required,min=1024"`
	UserAgent      string               `koanf:"user_agent"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
}

// RetryConfig contains retry settings for HTTP clients.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for HTTP clients.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// ServicesConfig contains configuration for downstream services.
type ServicesConfig struct {
	Feed FeedConfig `koanf:"feed" validate:"required"`
}

// FeedConfig locates and describes the remote quote feed.
type FeedConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	Path    string `koanf:"path"`
	Name    string `koanf:"name"     validate:"required"`

	// Format is "json" for an array of {title, body} posts or "rss" for an RSS/Atom document.
	Format string `koanf:"format" validate:"required,oneof=json rss"`

	// MaxRecords truncates the candidate list. Zero keeps every record.
	MaxRecords int `koanf:"max_records" validate:"min=0"`
}

// StorageConfig selects the persistent key/value backend.
type StorageConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=sqlite file memory"`
	Path   string `koanf:"path"   validate:"required_unless=Driver memory"`
}

// SyncConfig controls the background and on-demand sync cycles.
type SyncConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Interval    time.Duration `koanf:"interval"     validate:"required,min=1s"`
	ManualRate  float64       `koanf:"manual_rate"  validate:"gt=0"`
	ManualBurst int           `koanf:"manual_burst" validate:"required,min=1"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "quotesync",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.request_timeout":  "30s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/quotesync.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "quotesync",
		"telemetry.sampling_rate": 1.0,

		"auth.enabled":        false,
		"auth.subject_header": "X-User-ID",
		"auth.roles_header":   "X-User-Roles",
		"auth.writer_role":    "quotes:write",

		"client.timeout":                         "10s",
		"client.max_body_bytes":                  DefaultClientMaxBodyBytes,
		"client.user_agent":                      "quotesync",
		"client.retry.max_attempts":              DefaultClientRetryMaxAttempts,
		"client.retry.initial_interval":          "200ms",
		"client.retry.max_interval":              "2s",
		"client.retry.multiplier":                DefaultClientRetryMultiplier,
		"client.retry.jitter_factor":             DefaultClientRetryJitterFactor,
		"client.circuit_breaker.max_failures":    DefaultClientCircuitMaxFailures,
		"client.circuit_breaker.timeout":         "60s",
		"client.circuit_breaker.half_open_limit": DefaultClientCircuitHalfOpenLimit,

		"services.feed.base_url":    "https://jsonplaceholder.typicode.com",
		"services.feed.path":        "/posts",
		"services.feed.name":        "quote-feed",
		"services.feed.format":      "json",
		"services.feed.max_records": 0,

		"storage.driver": "sqlite",
		"storage.path":   "./data/quotesync.db",

		"sync.enabled":      true,
		"sync.interval":     DefaultSyncInterval.String(),
		"sync.manual_rate":  DefaultSyncManualRate,
		"sync.manual_burst": DefaultSyncManualBurst,
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (APP_ prefix)
//  2. Profile config file (configs/{profile}.yaml)
//  3. Base config file (configs/base.yaml)
//  4. Default values
func Load(profile string) (*Config, error) {
	return LoadFrom("configs", profile)
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(dir, profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := loadFileIfExists(k, filepath.Join(dir, "base.yaml")); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		if err := loadFileIfExists(k, filepath.Join(dir, profile+".yaml")); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKey maps APP_SERVICES__FEED__BASE_URL to services.feed.base_url.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// loadFileIfExists loads a YAML config file if it exists.
// Returns nil if the file doesn't exist, error only for parse/read failures.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
