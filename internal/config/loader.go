// Package config provides configuration management for the betting service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("MYSPORTSBET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields. Missing config files are tolerated so tests and local runs can
// work from environment variables alone.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("MYSPORTSBET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mysportsbet")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8080)

	v.SetDefault("cache.odds_ttl_seconds", 300)
	v.SetDefault("cache.events_ttl_seconds", 600)
	v.SetDefault("cache.scores_ttl_seconds", 60)
	v.SetDefault("cache.sweep_interval_seconds", 60)

	v.SetDefault("odds_api.timeout_seconds", 10)
	v.SetDefault("odds_api.max_retries", 3)
	v.SetDefault("odds_api.rate_limit_per_second", 5.0)
	v.SetDefault("odds_api.regions", []string{"us"})
	v.SetDefault("odds_api.markets", []string{"moneyline", "spread", "total"})

	v.SetDefault("ensemble.weights", map[string]float64{
		"sequence":       0.30,
		"feedforward":    0.25,
		"gradient_boost": 0.25,
		"bagged_trees":   0.20,
	})
	v.SetDefault("ensemble.cache_ttl_seconds", 120)
	v.SetDefault("ensemble.cache_max_size", 10000)

	v.SetDefault("calibration.min_sample_size", 20)
	v.SetDefault("calibration.recompute_batch_size", 10)
	v.SetDefault("calibration.recompute_interval_minutes", 15)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
