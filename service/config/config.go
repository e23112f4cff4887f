package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brojonat/dustwatch/service/outcome"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana RPC configuration
	SolanaRPCURL   string
	SolanaRPCLabel string // endpoint label for metrics (e.g., "mainnet")
	RPCMaxRetries  int

	// Optional backing services; empty disables the feature
	DatabaseURL string
	RedisURL    string
	NATSURL     string

	// Raw record cache TTL
	CacheTTL time.Duration

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Classifier thresholds
	NativeSpamThreshold uint64
	TokenLowValueUnits  uint64

	// Wallet scan configuration
	ScanConcurrency     int
	DefaultScanInterval time.Duration
	MinScanInterval     time.Duration
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}
	cfg.SolanaRPCLabel = getEnvOrDefault("SOLANA_RPC_LABEL", "mainnet")

	retries, err := parseInt("RPC_MAX_RETRIES", 3)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RPCMaxRetries = retries
	}

	// Optional services
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	cacheTTL, err := parseDuration("CACHE_TTL", "10m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.CacheTTL = cacheTTL
	}

	// Temporal configuration
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "dustwatch-scans")

	// Classifier thresholds
	spamThreshold, err := parseUint("NATIVE_SPAM_THRESHOLD", 5000)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.NativeSpamThreshold = spamThreshold
	}

	lowValueUnits, err := parseUint("TOKEN_LOW_VALUE_UNITS", 1)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.TokenLowValueUnits = lowValueUnits
	}

	// Scan configuration
	concurrency, err := parseInt("SCAN_CONCURRENCY", 4)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ScanConcurrency = concurrency
	}

	defaultInterval, err := parseDuration("DEFAULT_SCAN_INTERVAL", "5m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DefaultScanInterval = defaultInterval
	}

	minInterval, err := parseDuration("MIN_SCAN_INTERVAL", "1m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MinScanInterval = minInterval
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
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

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.RPCMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("RPCMaxRetries cannot be negative"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if c.TokenLowValueUnits == 0 {
		errs = append(errs, fmt.Errorf("TokenLowValueUnits must be at least 1"))
	}

	if c.ScanConcurrency < 1 {
		errs = append(errs, fmt.Errorf("ScanConcurrency must be at least 1"))
	}

	if c.MinScanInterval > c.DefaultScanInterval {
		errs = append(errs, fmt.Errorf("MinScanInterval (%v) cannot be greater than DefaultScanInterval (%v)",
			c.MinScanInterval, c.DefaultScanInterval))
	}

	if c.DefaultScanInterval < time.Second {
		errs = append(errs, fmt.Errorf("DefaultScanInterval must be at least 1 second"))
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

// parseUint parses an unsigned integer from an environment variable or uses a default.
func parseUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid unsigned integer %q: %w", key, value, err)
	}
	return result, nil
}

// ClassifierConfig returns the classifier tables with the configured thresholds.
func (c *Config) ClassifierConfig() outcome.Config {
	cfg := outcome.DefaultConfig()
	cfg.NativeSpamThreshold = c.NativeSpamThreshold
	cfg.TokenLowValueUnits = c.TokenLowValueUnits
	return cfg
}
