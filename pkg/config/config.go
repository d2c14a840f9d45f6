package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the hydration bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Bot       BotConfig       `mapstructure:"bot"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	I18n      I18nConfig      `mapstructure:"i18n"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=text json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig controls error reporting.
type SentryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DSN         string `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string `mapstructure:"environment"`
}

// BotConfig holds Telegram connectivity settings.
type BotConfig struct {
	Token   string        `mapstructure:"token" validate:"required"`
	Mode    string        `mapstructure:"mode" validate:"omitempty,oneof=polling webhook"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the HTTP server for health checks and metrics.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// DSN returns a lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode,
	)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr         string `mapstructure:"addr" validate:"required"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// SchedulerConfig tunes the reminder dispatch loop.
type SchedulerConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	Concurrency     int           `mapstructure:"concurrency"`
	BatchSize       int           `mapstructure:"batch_size"`
}

// RemindersConfig tunes reminder policy defaults.
type RemindersConfig struct {
	DailyCap        int    `mapstructure:"daily_cap"`
	DefaultTimezone string `mapstructure:"default_timezone"`
	RetentionDays   int    `mapstructure:"retention_days"`
}

// RateLimitRule describes one rate limit bucket.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// CommandLimits holds per-command rate limit rules.
type CommandLimits struct {
	Add   RateLimitRule `mapstructure:"add"`
	Today RateLimitRule `mapstructure:"today"`
	Stats RateLimitRule `mapstructure:"stats"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Global    RateLimitRule `mapstructure:"global"`
	Commands  CommandLimits `mapstructure:"commands"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// I18nConfig holds localization settings.
type I18nConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
	Dir             string `mapstructure:"dir"`
}
