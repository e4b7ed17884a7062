package normalize

import (
	"os"
	"strconv"
	"time"
)

// Config controls normalization worker behavior.
type Config struct {
	Concurrency  int           // Max concurrent workers. Default 2.
	PollInterval time.Duration // How often workers poll for claimable records. Default 5s.
	ClaimTimeout time.Duration // Lease length before a claimed record is reclaimable. Default 10m.
	Enabled      bool          // Whether the worker pool runs. Default true.
}

// DefaultConfig returns the default normalization configuration.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:  2,
		PollInterval: 5 * time.Second,
		ClaimTimeout: 10 * time.Minute,
		Enabled:      true,
	}
}

// ConfigFromEnv loads config from environment variables.
// INTEL_NORMALIZE_CONCURRENCY, INTEL_NORMALIZE_POLL_INTERVAL_SECONDS,
// INTEL_NORMALIZE_CLAIM_TIMEOUT_MINUTES, INTEL_NORMALIZE_ENABLED
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("INTEL_NORMALIZE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}

	if v := os.Getenv("INTEL_NORMALIZE_POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("INTEL_NORMALIZE_CLAIM_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ClaimTimeout = time.Duration(n) * time.Minute
		}
	}

	if v := os.Getenv("INTEL_NORMALIZE_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}
