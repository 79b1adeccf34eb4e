// Package main provides the Slate server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	Address     string    `yaml:"address"`      // HTTP listen address (default: :8080)
	CORSOrigins []string  `yaml:"cors_origins"` // Allowed browser origins
	TLS         TLSConfig `yaml:"tls"`          // HTTPS configuration
}

// MetricsConfig contains the Prometheus metrics listener settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Serve /metrics on a dedicated port
	Address string `yaml:"address"` // Metrics listen address (default: :9090)
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database file path
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl"`    // Access token lifetime (default: 15m)
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl"`   // Refresh token lifetime (default: 168h)
	RateLimitPerIP   int           `yaml:"rate_limit_per_ip"`   // Login attempts per minute per IP
	RateLimitPerUser int           `yaml:"rate_limit_per_user"` // Requests per minute per user
	LockoutThreshold int           `yaml:"lockout_threshold"`   // Failed attempts before lockout
	LockoutDuration  time.Duration `yaml:"lockout_duration"`    // Lockout duration (default: 30m)
}

// TLSConfig contains TLS settings for the API server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`   // Enable HTTPS
	CertFile string `yaml:"cert_file"` // Server certificate file
	KeyFile  string `yaml:"key_file"`  // Server private key file
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/slate.db"
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RateLimitPerIP == 0 {
		c.Auth.RateLimitPerIP = 5
	}
	if c.Auth.RateLimitPerUser == 0 {
		c.Auth.RateLimitPerUser = 100
	}
	if c.Auth.LockoutThreshold == 0 {
		c.Auth.LockoutThreshold = 5
	}
	if c.Auth.LockoutDuration == 0 {
		c.Auth.LockoutDuration = 30 * time.Minute
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}
	if c.Auth.AccessTokenTTL < 0 || c.Auth.RefreshTokenTTL < 0 {
		return fmt.Errorf("auth token lifetimes must not be negative")
	}
	return nil
}
