package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken    string // service token used for probes when the viewer has no credential
	GitHubAPIURL   string // empty means api.github.com
	GitHubMinDelay time.Duration

	// Data source
	FetchSource   string // "aggregator" or "github"
	AggregatorURL string

	// Storage
	StorageType string // "memory", "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string
	CacheTTL    time.Duration

	// Refresh
	ProbeConcurrency int
	ProbeTimeout     time.Duration
	RefreshTimeout   time.Duration

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		GitHubToken:   getEnv("GITHUB_TOKEN", ""),
		GitHubAPIURL:  getEnv("GITHUB_API_URL", ""),
		FetchSource:   getEnv("FETCH_SOURCE", "aggregator"),
		AggregatorURL: strings.TrimRight(getEnv("AGGREGATOR_URL", "https://cache.forgithub.com/repos"), "/"),
		StorageType:   getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:    getEnv("SQLITE_PATH", "./dashboard.db"),
		PostgresURL:   getEnv("POSTGRES_URL", ""),
		APIPort:       getEnv("API_PORT", "8080"),
		APIHost:       getEnv("API_HOST", "localhost"),
		APIEndpoint:   getEnv("API_ENDPOINT", "http://localhost:8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = getDuration("PROBE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RefreshTimeout, err = getDuration("REFRESH_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.GitHubMinDelay, err = getDuration("GITHUB_MIN_DELAY", 0); err != nil {
		return nil, err
	}
	if cfg.ProbeConcurrency, err = getInt("PROBE_CONCURRENCY", 6); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a duration such as 30s or 24h"}
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.FetchSource {
	case "aggregator":
		if c.AggregatorURL == "" {
			return &ConfigError{Field: "AGGREGATOR_URL", Message: "aggregator URL is required when FETCH_SOURCE is 'aggregator'"}
		}
	case "github":
	default:
		return &ConfigError{Field: "FETCH_SOURCE", Message: "must be 'aggregator' or 'github'"}
	}
	switch c.StorageType {
	case "memory", "sqlite":
	case "postgres":
		if c.PostgresURL == "" {
			return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
		}
	default:
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'memory', 'sqlite' or 'postgres'"}
	}
	if c.CacheTTL <= 0 {
		return &ConfigError{Field: "CACHE_TTL", Message: "must be positive"}
	}
	if c.ProbeConcurrency < 1 {
		return &ConfigError{Field: "PROBE_CONCURRENCY", Message: "must be at least 1"}
	}
	if c.ProbeTimeout <= 0 {
		return &ConfigError{Field: "PROBE_TIMEOUT", Message: "must be positive"}
	}
	if c.RefreshTimeout < 0 {
		return &ConfigError{Field: "REFRESH_TIMEOUT", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
