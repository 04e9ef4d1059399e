// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/lendr/lendr/internal/model"
)

// Default listen ports for the two services. Each one's default peer is
// the other's port.
const (
	DefaultUserPort  = 5000
	DefaultAdminPort = 5001
)

// Config holds all application configuration.
// All fields are populated from environment variables. The same config
// shape serves both the admin and the user service; each process gets
// its own DATABASE_URL, REDIS_URL and PEER_URL. Port and peer address
// default by role, via ApplyRoleDefaults.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Base URL of the sibling service, used by the outbox worker
	// to mirror catalogue mutations (e.g. http://127.0.0.1:5001).
	PeerURL string `env:"PEER_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Outbox worker
	NotifyPollInterval time.Duration `env:"NOTIFY_POLL_INTERVAL" envDefault:"2s"`
	NotifyMaxAttempts  int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"5"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`
}

// ApplyRoleDefaults fills the listen port and peer address for the
// given role when APP_PORT or PEER_URL were not set: the user service
// listens on 5000 with admin as its peer on 5001, and the admin service
// is the mirror image. Explicit values always win.
func (c *Config) ApplyRoleDefaults(role model.Role) {
	if c.AppPort == 0 {
		if role == model.RoleAdmin {
			c.AppPort = DefaultAdminPort
		} else {
			c.AppPort = DefaultUserPort
		}
	}
	if c.PeerURL == "" {
		if role == model.RoleAdmin {
			c.PeerURL = fmt.Sprintf("http://127.0.0.1:%d", DefaultUserPort)
		} else {
			c.PeerURL = fmt.Sprintf("http://127.0.0.1:%d", DefaultAdminPort)
		}
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.PeerURL = strings.TrimSuffix(cfg.PeerURL, "/")
	return cfg, nil
}
