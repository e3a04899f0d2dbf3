package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	LogLevel string

	// Database configuration
	DatabaseURL string

	// NATS configuration
	NATSURL string

	// Solana configuration
	SolanaRPCURL        string
	AggregatorProgramID string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Retrieval configuration
	BatchSize       int
	HistoryLimit    int
	BatchPause      time.Duration
	BackoffBase     time.Duration
	BackoffCeiling  time.Duration
	MaxBatchRetries int

	// Token cache configuration
	TokenCacheSize int
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.AggregatorProgramID = getEnvOrDefault("AGGREGATOR_PROGRAM_ID", "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")

	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "hopscotch-trade-refresh")

	var err error
	if cfg.BatchSize, err = parseInt("BATCH_SIZE", 100); err != nil {
		errs = append(errs, err)
	}
	if cfg.HistoryLimit, err = parseInt("HISTORY_LIMIT", 1000); err != nil {
		errs = append(errs, err)
	}
	if cfg.BatchPause, err = parseDuration("BATCH_PAUSE", "500ms"); err != nil {
		errs = append(errs, err)
	}
	if cfg.BackoffBase, err = parseDuration("BACKOFF_BASE", "1s"); err != nil {
		errs = append(errs, err)
	}
	if cfg.BackoffCeiling, err = parseDuration("BACKOFF_CEILING", "10s"); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxBatchRetries, err = parseInt("MAX_BATCH_RETRIES", 5); err != nil {
		errs = append(errs, err)
	}
	if cfg.TokenCacheSize, err = parseInt("TOKEN_CACHE_SIZE", 10000); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("BatchSize must be positive"))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("HistoryLimit must be positive"))
	}
	if c.BackoffBase <= 0 {
		errs = append(errs, fmt.Errorf("BackoffBase must be positive"))
	}
	if c.BackoffCeiling < c.BackoffBase {
		errs = append(errs, fmt.Errorf("BackoffCeiling (%v) cannot be less than BackoffBase (%v)",
			c.BackoffCeiling, c.BackoffBase))
	}
	if c.MaxBatchRetries < 0 {
		errs = append(errs, fmt.Errorf("MaxBatchRetries cannot be negative"))
	}
	if c.TokenCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("TokenCacheSize must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
