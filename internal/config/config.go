// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Fraud-detection backend
	BackendURL     string        // Base URL of the scoring API (required)
	BackendTimeout time.Duration // Per-request timeout
	BackendRPS     int           // Outbound requests per second

	// View settings
	FetchLimit     int           // Rows requested per collection fetch
	SearchDebounce time.Duration // Coalescing window for refresh triggers

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; tracing disabled if empty
}

// Defaults
const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultBackendURL     = "http://localhost:5000"
	DefaultBackendTimeout = 15 * time.Second
	DefaultBackendRPS     = 10
	DefaultFetchLimit     = 50
	DefaultDebounce       = 300 * time.Millisecond
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", DefaultPort),
		Env:            getEnv("ENV", DefaultEnv),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),
		BackendURL:     getEnv("BACKEND_URL", DefaultBackendURL),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", DefaultBackendTimeout),
		BackendRPS:     getEnvInt("BACKEND_RPS", DefaultBackendRPS),
		FetchLimit:     getEnvInt("FETCH_LIMIT", DefaultFetchLimit),
		SearchDebounce: getEnvDuration("SEARCH_DEBOUNCE", DefaultDebounce),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL)
	}
	if c.FetchLimit <= 0 {
		return fmt.Errorf("FETCH_LIMIT must be positive, got %d", c.FetchLimit)
	}
	if c.BackendRPS <= 0 {
		return fmt.Errorf("BACKEND_RPS must be positive, got %d", c.BackendRPS)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
