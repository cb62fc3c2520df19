// Package config provides configuration management for the Precognition service.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Crowd     CrowdConfig     `mapstructure:"crowd" validate:"required"`
	Backtest  BacktestConfig  `mapstructure:"backtest" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Metrics   MetricsConfig   `mapstructure:"metrics" validate:"required"`
	AWS       AWSConfig       `mapstructure:"aws"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// CrowdConfig tunes the belief and snapshot pipeline
type CrowdConfig struct {
	HalfLifeHours         float64 `mapstructure:"half_life_hours" validate:"required,gt=0"`
	WeightCacheTTLSeconds int     `mapstructure:"weight_cache_ttl_seconds" validate:"required,gt=0"`
	ScreenerLimit         int     `mapstructure:"screener_limit" validate:"required,gt=0"`
	ScreenerMinConfidence float64 `mapstructure:"screener_min_confidence" validate:"gte=0,lte=1"`
	BackfillPoints        int     `mapstructure:"backfill_points" validate:"required,gt=0"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	DefaultCutoffHours float64 `mapstructure:"default_cutoff_hours" validate:"required,gt=0"`
	SweepMaxHours      int     `mapstructure:"sweep_max_hours" validate:"required,gt=0"`
}

// SchedulerConfig represents the cron schedules for recurring jobs
type SchedulerConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	SnapshotSchedule  string `mapstructure:"snapshot_schedule" validate:"required,cron"`
	RecomputeSchedule string `mapstructure:"recompute_schedule" validate:"required,cron"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// AWSConfig represents the optional AWS Secrets Manager overlay
type AWSConfig struct {
	SecretsEnabled bool   `mapstructure:"secrets_enabled"`
	Region         string `mapstructure:"region"`
	SecretName     string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
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

// WeightCacheTTL returns the weight cache TTL as a duration
func (c *Config) WeightCacheTTL() time.Duration {
	return time.Duration(c.Crowd.WeightCacheTTLSeconds) * time.Second
}
