// Package config provides configuration management for the Overflow Admin server.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Mail       MailConfig       `mapstructure:"mail"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Moderation ModerationConfig `mapstructure:"moderation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database connection settings.
// Supports both PostgreSQL and SQLite backends.
type DatabaseConfig struct {
	// Driver specifies the database driver: "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`

	// PostgreSQL settings (used when Driver is "postgres")
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// SQLite settings (used when Driver is "sqlite")
	Path            string `mapstructure:"path"`             // Path to SQLite database file
	JournalMode     string `mapstructure:"journal_mode"`     // WAL, DELETE, TRUNCATE, etc.
	BusyTimeout     int    `mapstructure:"busy_timeout"`     // Milliseconds to wait for locks
	CacheSize       int    `mapstructure:"cache_size"`       // Page cache size (negative = KB)
	SynchronousMode string `mapstructure:"synchronous_mode"` // NORMAL, FULL, OFF
}

// DSN returns the PostgreSQL connection string.
// Only valid when Driver is "postgres".
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// IsEmbedded returns true if using an embedded database (SQLite).
func (c DatabaseConfig) IsEmbedded() bool {
	return c.Driver == "sqlite"
}

// RedisConfig holds Redis connection settings.
// Redis is only used to coordinate the expiry sweep across replicas.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds settings for the admin API gate.
type AuthConfig struct {
	// JWTSecret is the HS256 key that signs admin tokens.
	JWTSecret string `mapstructure:"jwt_secret"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `mapstructure:"issuer"`
}

// MailConfig holds SMTP settings for moderation notifications.
type MailConfig struct {
	// Enabled sends real email. When false, notifications are only logged.
	Enabled bool `mapstructure:"enabled"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// From is the sender address; FromName is its display name.
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`

	// TLS uses implicit TLS (SMTPS) instead of STARTTLS.
	TLS bool `mapstructure:"tls"`

	// Timeout bounds a single SMTP conversation.
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxRetries is how many times a failed send is retried.
	MaxRetries int `mapstructure:"max_retries"`

	// SiteName and ClientURL are rendered into the templates.
	SiteName     string `mapstructure:"site_name"`
	ClientURL    string `mapstructure:"client_url"`
	SupportEmail string `mapstructure:"support_email"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Port is the port for the metrics HTTP server.
	Port int `mapstructure:"port"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// ModerationConfig holds ban lifecycle settings.
type ModerationConfig struct {
	// SchedulerEnabled starts the expiry sweep with the server.
	SchedulerEnabled bool `mapstructure:"scheduler_enabled"`

	// SchedulerInterval is how often expired bans are reverted.
	SchedulerInterval time.Duration `mapstructure:"scheduler_interval"`

	// RunOnStart runs one sweep immediately when the scheduler starts.
	RunOnStart bool `mapstructure:"run_on_start"`

	// BatchSize caps how many expired bans one sweep reverts.
	BatchSize int `mapstructure:"batch_size"`

	// TestBansEnabled allows the short test ban used by demo environments.
	TestBansEnabled bool `mapstructure:"test_bans_enabled"`

	// TestBanSentinel is the banDuration value the admin UI sends for a test ban.
	TestBanSentinel int `mapstructure:"test_ban_sentinel"`

	// TestBanDuration is how long a test ban lasts.
	TestBanDuration time.Duration `mapstructure:"test_ban_duration"`

	// NotifyOnAutoUnban emails users whose ban expired.
	NotifyOnAutoUnban bool `mapstructure:"notify_on_auto_unban"`

	// MaxReasonLength bounds ban and hide reasons.
	MaxReasonLength int `mapstructure:"max_reason_length"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with OVERFLOW_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("OVERFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/overflow-admin")
	}

	// Read config file (optional - environment variables can be used instead)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_size", 1<<20) // 1MB

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "overflow")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "overflow")
	v.SetDefault("database.ssl_mode", "prefer")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	// SQLite defaults
	v.SetDefault("database.path", "./data/overflow.db")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.busy_timeout", 5000)
	v.SetDefault("database.cache_size", -2000)
	v.SetDefault("database.synchronous_mode", "NORMAL")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "") // Must be provided
	v.SetDefault("auth.issuer", "")

	// Mail defaults
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 465)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@chatoverflow.com")
	v.SetDefault("mail.from_name", "ChatOverflow")
	v.SetDefault("mail.tls", true)
	v.SetDefault("mail.timeout", 15*time.Second)
	v.SetDefault("mail.max_retries", 3)
	v.SetDefault("mail.site_name", "ChatOverflow")
	v.SetDefault("mail.client_url", "http://localhost:3000")
	v.SetDefault("mail.support_email", "support@chatoverflow.com")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")

	// Moderation defaults
	v.SetDefault("moderation.scheduler_enabled", true)
	v.SetDefault("moderation.scheduler_interval", 10*time.Second)
	v.SetDefault("moderation.run_on_start", true)
	v.SetDefault("moderation.batch_size", 500)
	v.SetDefault("moderation.test_bans_enabled", false)
	v.SetDefault("moderation.test_ban_sentinel", 5)
	v.SetDefault("moderation.test_ban_duration", 5*time.Second)
	v.SetDefault("moderation.notify_on_auto_unban", true)
	v.SetDefault("moderation.max_reason_length", 500)
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	validDrivers := map[string]bool{"postgres": true, "sqlite": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite'")
	}

	if c.Database.Driver == "postgres" {
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required for postgres driver")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required for postgres driver")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for postgres driver")
		}
	} else if c.Database.Driver == "sqlite" {
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite driver")
		}
	}

	if c.Mail.Enabled {
		if c.Mail.Host == "" || c.Mail.Port == 0 {
			return fmt.Errorf("mail.host and mail.port are required when mail is enabled")
		}
		if c.Mail.From == "" {
			return fmt.Errorf("mail.from is required when mail is enabled")
		}
	}

	if c.Moderation.SchedulerInterval <= 0 {
		return fmt.Errorf("moderation.scheduler_interval must be positive")
	}
	if c.Moderation.BatchSize < 1 {
		return fmt.Errorf("moderation.batch_size must be at least 1")
	}
	if c.Moderation.MaxReasonLength < 1 {
		return fmt.Errorf("moderation.max_reason_length must be at least 1")
	}
	if c.Moderation.TestBansEnabled {
		if c.Moderation.TestBanDuration <= 0 {
			return fmt.Errorf("moderation.test_ban_duration must be positive when test bans are enabled")
		}
		if c.Moderation.TestBanSentinel <= 0 {
			return fmt.Errorf("moderation.test_ban_sentinel must be positive when test bans are enabled")
		}
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
