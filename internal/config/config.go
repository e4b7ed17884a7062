// Package config loads server configuration from file, environment, and
// flags through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cisoworks/asset-intelligence/pkg/ingest"
)

// Config is the full server configuration.
type Config struct {
	Listen string `mapstructure:"listen"`

	Database struct {
		Type string `mapstructure:"type"`
		DSN  string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	// Features holds deployment-wide feature defaults, overridable per org.
	Features map[string]bool `mapstructure:"features"`

	Normalize struct {
		Enabled             bool `mapstructure:"enabled"`
		Concurrency         int  `mapstructure:"concurrency"`
		PollIntervalSeconds int  `mapstructure:"poll_interval_seconds"`
		ClaimTimeoutMinutes int  `mapstructure:"claim_timeout_minutes"`
	} `mapstructure:"normalize"`

	// Connectors configures one entry per source to ingest from.
	Connectors []ingest.ConnectorConfig `mapstructure:"connectors"`
}

// Load reads configuration from the given file path (optional) with
// INTEL_-prefixed environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listen", ":8080")
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "intel.db")
	v.SetDefault("normalize.enabled", true)
	v.SetDefault("normalize.concurrency", 2)
	v.SetDefault("normalize.poll_interval_seconds", 5)
	v.SetDefault("normalize.claim_timeout_minutes", 10)

	v.SetEnvPrefix("INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// PollInterval returns the normalize poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Normalize.PollIntervalSeconds) * time.Second
}

// ClaimTimeout returns the normalize claim timeout as a duration.
func (c *Config) ClaimTimeout() time.Duration {
	return time.Duration(c.Normalize.ClaimTimeoutMinutes) * time.Minute
}
