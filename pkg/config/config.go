package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds process-level application configuration. The trading rule
// set lives in types.Config and is operator-editable at runtime; everything
// here is fixed at startup.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Exchange
	ExchangeAPIBase        string
	ExchangeAPIKey         string
	ExchangePrivateKeyPath string // PEM used to sign portfolio requests
	ExchangeEnv            string // "demo" or "prod"
	QuoteRetryAttempts     int
	QuoteRetryBackoff      time.Duration
	BreakerThreshold       int
	BreakerCooldown        time.Duration

	// Engine
	ConfigPath     string // trading config persistence path
	MetadataTTL    time.Duration
	ActivityBuffer int

	// Transport
	PushQueueSize int

	// Storage
	StorageMode  string // "postgres", "console" or "memory"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Exchange defaults
		ExchangeAPIBase:        getEnvOrDefault("EXCHANGE_API_BASE", "https://demo-api.kalshi.co/trade-api/v2"),
		ExchangeAPIKey:         os.Getenv("EXCHANGE_API_KEY"),
		ExchangePrivateKeyPath: os.Getenv("EXCHANGE_PRIVATE_KEY_PATH"),
		ExchangeEnv:            getEnvOrDefault("EXCHANGE_ENV", "demo"),
		QuoteRetryAttempts:     getIntOrDefault("QUOTE_RETRY_ATTEMPTS", 3),
		QuoteRetryBackoff:      getDurationOrDefault("QUOTE_RETRY_BACKOFF", 250*time.Millisecond),
		BreakerThreshold:       getIntOrDefault("EXCHANGE_BREAKER_THRESHOLD", 5),
		BreakerCooldown:        getDurationOrDefault("EXCHANGE_BREAKER_COOLDOWN", 30*time.Second),

		// Engine defaults
		ConfigPath:     getEnvOrDefault("BOT_CONFIG_PATH", "data/config.json"),
		MetadataTTL:    getDurationOrDefault("MARKET_METADATA_TTL", 5*time.Minute),
		ActivityBuffer: getIntOrDefault("ACTIVITY_BUFFER", 50),

		// Transport defaults
		PushQueueSize: getIntOrDefault("PUSH_QUEUE_SIZE", 16),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "voltrader"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "voltrader123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "voltrader"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.ExchangeAPIBase == "" {
		return fmt.Errorf("EXCHANGE_API_BASE cannot be empty")
	}

	if c.ExchangeEnv != "demo" && c.ExchangeEnv != "prod" {
		return fmt.Errorf("EXCHANGE_ENV must be 'demo' or 'prod', got %q", c.ExchangeEnv)
	}

	if c.QuoteRetryAttempts < 0 {
		return fmt.Errorf("QUOTE_RETRY_ATTEMPTS must be >= 0, got %d", c.QuoteRetryAttempts)
	}

	if c.BreakerThreshold <= 0 {
		return fmt.Errorf("EXCHANGE_BREAKER_THRESHOLD must be positive, got %d", c.BreakerThreshold)
	}

	if c.PushQueueSize <= 0 {
		return fmt.Errorf("PUSH_QUEUE_SIZE must be positive, got %d", c.PushQueueSize)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" && c.StorageMode != "memory" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres', 'console' or 'memory', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
