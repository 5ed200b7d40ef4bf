// Package config loads process configuration from environment variables,
// applies defaults and validates the result before the server wires up
// its storage and HTTP layers.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved, validated process configuration.
type Config struct {
	// Host is the interface the HTTP server binds to.
	Host string `mapstructure:"app_host"`
	// Port is the HTTP listen port.
	Port int `mapstructure:"app_port"`

	// DatabaseURL is the PostgreSQL connection string for the metadata store.
	DatabaseURL string `mapstructure:"database_url"`

	// StoragePath is the directory backing the blob store.
	StoragePath string `mapstructure:"file_storage_path"`
	// PendingPrefix is prepended to a blob id to name its staging file.
	PendingPrefix string `mapstructure:"pending_file_prefix"`

	// LockTimeout bounds how long a blob-store caller waits to acquire
	// a file lock before giving up.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`

	// DBRetries is how many times to retry the initial database
	// connection attempt at startup.
	DBRetries int `mapstructure:"db_retries"`
	// DBRetryDelay is the pause between startup connection retries.
	DBRetryDelay time.Duration `mapstructure:"db_retry_delay"`

	// Debug enables verbose (DEBUG-level) logging, useful in local
	// development.
	Debug bool `mapstructure:"debug"`
}

// Load reads configuration from the process environment, applies
// defaults for anything unset, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	bindEnv(v)
	applyViperDefaults(v)

	cfg := &Config{
		Host:          v.GetString("app_host"),
		Port:          v.GetInt("app_port"),
		DatabaseURL:   v.GetString("database_url"),
		StoragePath:   v.GetString("file_storage_path"),
		PendingPrefix: v.GetString("pending_file_prefix"),
		LockTimeout:   secondsToDuration(v.GetFloat64("lock_timeout")),
		DBRetries:     v.GetInt("db_retries"),
		DBRetryDelay:  secondsToDuration(v.GetFloat64("db_retry_delay")),
		Debug:         v.GetBool("debug"),
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// bindEnv wires each setting to its own environment variable. Unlike
// the teacher's DITTOFS_-prefixed scheme, these variable names are
// fixed by the external interface and carry no common prefix.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("app_host", "APP_HOST")
	_ = v.BindEnv("app_port", "APP_PORT")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("file_storage_path", "FILE_STORAGE_PATH")
	_ = v.BindEnv("pending_file_prefix", "PENDING_FILE_PREFIX")
	_ = v.BindEnv("lock_timeout", "LOCK_TIMEOUT")
	_ = v.BindEnv("db_retries", "DB_RETRIES")
	_ = v.BindEnv("db_retry_delay", "DB_RETRY_DELAY")
	_ = v.BindEnv("debug", "DEBUG")
}

// applyViperDefaults seeds viper with defaults so GetX calls return a
// sane value even when the corresponding environment variable is unset.
func applyViperDefaults(v *viper.Viper) {
	v.SetDefault("app_host", "0.0.0.0")
	v.SetDefault("app_port", 8000)
	v.SetDefault("file_storage_path", "./uploads")
	v.SetDefault("pending_file_prefix", "pending_")
	v.SetDefault("lock_timeout", 10.0)
	v.SetDefault("db_retries", 5)
	v.SetDefault("db_retry_delay", 2.0)
	v.SetDefault("debug", false)
}

// secondsToDuration converts a fractional-seconds value (as read from an
// env var like LOCK_TIMEOUT=10.0) into a time.Duration.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Validate checks that the loaded configuration is usable.
func Validate(c *Config) error {
	if c.Host == "" {
		return fmt.Errorf("app_host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("app_port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if c.StoragePath == "" {
		return fmt.Errorf("file_storage_path is required")
	}
	if c.PendingPrefix == "" {
		return fmt.Errorf("pending_file_prefix is required")
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive")
	}
	if c.DBRetries < 0 {
		return fmt.Errorf("db_retries cannot be negative")
	}
	if c.DBRetryDelay < 0 {
		return fmt.Errorf("db_retry_delay cannot be negative")
	}

	return nil
}
