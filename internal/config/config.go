// Package config provides configuration management for the betting service.
package config

import (
	"fmt"
	"time"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig            `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig       `mapstructure:"database" validate:"required"`
	OddsAPI     OddsAPIConfig        `mapstructure:"odds_api" validate:"required"`
	Cache       CacheConfig          `mapstructure:"cache" validate:"required"`
	Ensemble    EnsembleConfig       `mapstructure:"ensemble" validate:"required"`
	Calibration CalibrationConfig    `mapstructure:"calibration" validate:"required"`
	Sports      []models.SportConfig `mapstructure:"sports" validate:"required,min=1,dive"`
	Metrics     MetricsConfig        `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	HealthPort  int    `mapstructure:"health_port" validate:"required,min=1,max=65535"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// OddsAPIConfig represents the upstream odds provider configuration
type OddsAPIConfig struct {
	BaseURL            string   `mapstructure:"base_url" validate:"required,url"`
	StreamURL          string   `mapstructure:"stream_url"`
	APIKey             string   `mapstructure:"api_key" validate:"required"`
	Regions            []string `mapstructure:"regions" validate:"required,min=1"`
	Markets            []string `mapstructure:"markets" validate:"required,min=1,markets"`
	TimeoutSeconds     int      `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries         int      `mapstructure:"max_retries" validate:"gte=0"`
	RateLimitPerSecond float64  `mapstructure:"rate_limit_per_second" validate:"required,gt=0"`
	MonthlyQuota       int64    `mapstructure:"monthly_quota" validate:"required,gt=0"`
}

// CacheConfig represents market data cache configuration
type CacheConfig struct {
	OddsTTLSeconds       int `mapstructure:"odds_ttl_seconds" validate:"required,gt=0"`
	EventsTTLSeconds     int `mapstructure:"events_ttl_seconds" validate:"required,gt=0"`
	ScoresTTLSeconds     int `mapstructure:"scores_ttl_seconds" validate:"required,gt=0"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds" validate:"required,gt=0"`
}

// EnsembleConfig represents the ensemble predictor configuration
type EnsembleConfig struct {
	Weights         map[string]float64 `mapstructure:"weights" validate:"required"`
	ArtifactPath    string             `mapstructure:"artifact_path"`
	CacheTTLSeconds int                `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize    int                `mapstructure:"cache_max_size" validate:"required,gt=0"`
}

// CalibrationConfig represents the calibration engine configuration
type CalibrationConfig struct {
	MinSampleSize            int64 `mapstructure:"min_sample_size" validate:"required,gt=0"`
	RecomputeBatchSize       int64 `mapstructure:"recompute_batch_size" validate:"required,gt=0"`
	RecomputeIntervalMinutes int   `mapstructure:"recompute_interval_minutes" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SportTable builds the validated sport table from configuration.
func (c *Config) SportTable() (*models.SportTable, error) {
	return models.NewSportTable(c.Sports)
}

// UpstreamTimeout returns the per-request upstream fetch timeout.
func (c *OddsAPIConfig) UpstreamTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OddsTTL returns the in-play odds cache TTL.
func (c *CacheConfig) OddsTTL() time.Duration {
	return time.Duration(c.OddsTTLSeconds) * time.Second
}

// EventsTTL returns the sports/event list cache TTL.
func (c *CacheConfig) EventsTTL() time.Duration {
	return time.Duration(c.EventsTTLSeconds) * time.Second
}

// ScoresTTL returns the live score cache TTL.
func (c *CacheConfig) ScoresTTL() time.Duration {
	return time.Duration(c.ScoresTTLSeconds) * time.Second
}
