package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Driver    DriverConfig
	Session   SessionConfig
	Catalog   CatalogConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8400"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// DriverConfig selects and tunes the UI automation backend.
type DriverConfig struct {
	// Backend names the driver implementation; "sim" is the only
	// in-process backend.
	Backend string `envconfig:"DRIVER_BACKEND" default:"sim"`
	// CollectDelay artificially slows simulated tree collection, useful
	// for exercising refresh deadlines.
	CollectDelay time.Duration `envconfig:"DRIVER_COLLECT_DELAY" default:"0s"`
}

// SessionConfig holds session defaults applied when a client omits them.
type SessionConfig struct {
	DefaultTimeout time.Duration `envconfig:"SESSION_TIMEOUT" default:"5s"`
	AutoRecover    bool          `envconfig:"SESSION_AUTO_RECOVER" default:"true"`
}

// CatalogConfig holds the application catalog configuration.
type CatalogConfig struct {
	Dir          string `envconfig:"CATALOG_DIR" default:"./catalog"`
	SeedDefaults bool   `envconfig:"CATALOG_SEED_DEFAULTS" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8400",
			Host: "0.0.0.0",
		},
		Driver: DriverConfig{
			Backend: "sim",
		},
		Session: SessionConfig{
			DefaultTimeout: 5 * time.Second,
			AutoRecover:    true,
		},
		Catalog: CatalogConfig{
			Dir:          "./catalog",
			SeedDefaults: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
