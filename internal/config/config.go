package config

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Config holds all configuration for the apptrack application.
// Values are loaded from environment variables; see printUsage() for the full list.
type Config struct {
	DatabaseURL string `json:"database_url"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	HTTPAddr    string `json:"http_addr"`

	DBOpTimeout    time.Duration `json:"-"`
	DBOpTimeoutStr string        `json:"db_op_timeout"`

	DBMaxOpenConns       int           `json:"db_max_open_conns"`
	DBMaxIdleConns       int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime    time.Duration `json:"-"`
	DBConnMaxLifetimeStr string        `json:"db_conn_max_lifetime"`
	DBConnMaxIdleTime    time.Duration `json:"-"`
	DBConnMaxIdleTimeStr string        `json:"db_conn_max_idle_time"`

	HTTPShutdownTimeout    time.Duration `json:"-"`
	HTTPShutdownTimeoutStr string        `json:"http_shutdown_timeout"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`
	MetricsPort    string `json:"metrics_port"`

	ActivityBufferSize int `json:"activity_buffer_size"`

	// ActivityRetention caps how long per-day activity counters live in Redis.
	ActivityRetention    time.Duration `json:"-"`
	ActivityRetentionStr string        `json:"activity_retention"`

	ActivityDrainTimeout    time.Duration `json:"-"`
	ActivityDrainTimeoutStr string        `json:"activity_drain_timeout"`

	// ActivityBreakerThreshold: 0 disables the circuit breaker.
	ActivityBreakerThreshold   int           `json:"activity_breaker_threshold"`
	ActivityBreakerCooldown    time.Duration `json:"-"`
	ActivityBreakerCooldownStr string        `json:"activity_breaker_cooldown"`

	SnapshotEnabled  bool   `json:"snapshot_enabled"`
	SnapshotSchedule string `json:"snapshot_schedule"`

	// SnapshotLockKey: all instances sharing the same database must use the same key.
	SnapshotLockKey int64 `json:"snapshot_lock_key"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		DatabaseURL:                os.Getenv("DATABASE_URL"),
		RedisAddr:                  os.Getenv("REDIS_ADDR"),
		HTTPAddr:                   os.Getenv("HTTP_ADDR"),
		DBOpTimeoutStr:             os.Getenv("DB_OP_TIMEOUT"),
		DBConnMaxLifetimeStr:       os.Getenv("DB_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTimeStr:       os.Getenv("DB_CONN_MAX_IDLE_TIME"),
		HTTPShutdownTimeoutStr:     os.Getenv("HTTP_SHUTDOWN_TIMEOUT"),
		MetricsEnabled:             os.Getenv("METRICS_ENABLED") == "true",
		MetricsPath:                os.Getenv("METRICS_PATH"),
		MetricsPort:                os.Getenv("METRICS_PORT"),
		ActivityRetentionStr:       os.Getenv("ACTIVITY_RETENTION"),
		ActivityDrainTimeoutStr:    os.Getenv("ACTIVITY_DRAIN_TIMEOUT"),
		ActivityBreakerCooldownStr: os.Getenv("ACTIVITY_BREAKER_COOLDOWN"),
		SnapshotEnabled:            os.Getenv("SNAPSHOT_ENABLED") == "true",
		SnapshotSchedule:           os.Getenv("SNAPSHOT_SCHEDULE"),
	}

	if bufStr := os.Getenv("ACTIVITY_BUFFER_SIZE"); bufStr != "" {
		if n, err := parseInt(bufStr); err == nil && n > 0 {
			cfg.ActivityBufferSize = n
		} else {
			log.Printf("config: invalid ACTIVITY_BUFFER_SIZE %q (must be a positive integer), using default 100", bufStr)
		}
	}
	if cfg.ActivityBufferSize == 0 {
		cfg.ActivityBufferSize = 100
	}

	if threshStr := os.Getenv("ACTIVITY_BREAKER_THRESHOLD"); threshStr != "" {
		if n, err := parseInt(threshStr); err == nil {
			cfg.ActivityBreakerThreshold = n
		} else {
			log.Printf("config: invalid ACTIVITY_BREAKER_THRESHOLD %q, using default 5", threshStr)
		}
	}
	if cfg.ActivityBreakerThreshold == 0 && os.Getenv("ACTIVITY_BREAKER_THRESHOLD") == "" {
		cfg.ActivityBreakerThreshold = 5
	}

	if lockKeyStr := os.Getenv("SNAPSHOT_LOCK_KEY"); lockKeyStr != "" {
		if n, err := parseInt(lockKeyStr); err == nil && n > 0 {
			cfg.SnapshotLockKey = int64(n)
		} else {
			log.Printf("config: invalid SNAPSHOT_LOCK_KEY %q (must be a positive integer), using default 914217", lockKeyStr)
		}
	}
	if cfg.SnapshotLockKey == 0 {
		cfg.SnapshotLockKey = 914217
	}

	if maxOpenStr := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpenStr != "" {
		if n, err := parseInt(maxOpenStr); err == nil && n > 0 {
			cfg.DBMaxOpenConns = n
		}
	}
	if cfg.DBMaxOpenConns == 0 {
		cfg.DBMaxOpenConns = 25
	}

	if maxIdleStr := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdleStr != "" {
		if n, err := parseInt(maxIdleStr); err == nil && n > 0 {
			cfg.DBMaxIdleConns = n
		}
	}
	if cfg.DBMaxIdleConns == 0 {
		cfg.DBMaxIdleConns = 5
	}

	// Support Railway's PORT variable as fallback for HTTP_ADDR.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}
	if cfg.DBOpTimeoutStr == "" {
		cfg.DBOpTimeoutStr = "5s"
	}
	if cfg.DBConnMaxLifetimeStr == "" {
		cfg.DBConnMaxLifetimeStr = "30m"
	}
	if cfg.DBConnMaxIdleTimeStr == "" {
		cfg.DBConnMaxIdleTimeStr = "5m"
	}
	if cfg.HTTPShutdownTimeoutStr == "" {
		cfg.HTTPShutdownTimeoutStr = "10s"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.MetricsPort == "" {
		cfg.MetricsPort = "9090"
	}
	if cfg.ActivityRetentionStr == "" {
		cfg.ActivityRetentionStr = "720h"
	}
	if cfg.ActivityDrainTimeoutStr == "" {
		cfg.ActivityDrainTimeoutStr = "10s"
	}
	if cfg.ActivityBreakerCooldownStr == "" {
		cfg.ActivityBreakerCooldownStr = "2m"
	}
	if cfg.SnapshotSchedule == "" {
		cfg.SnapshotSchedule = "0 6 * * *"
	}

	// Parse durations; validation is handled separately by Validate().
	if d, err := time.ParseDuration(cfg.DBOpTimeoutStr); err == nil {
		cfg.DBOpTimeout = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxLifetimeStr); err == nil {
		cfg.DBConnMaxLifetime = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxIdleTimeStr); err == nil {
		cfg.DBConnMaxIdleTime = d
	}
	if d, err := time.ParseDuration(cfg.HTTPShutdownTimeoutStr); err == nil {
		cfg.HTTPShutdownTimeout = d
	}
	if d, err := time.ParseDuration(cfg.ActivityRetentionStr); err == nil {
		cfg.ActivityRetention = d
	}
	if d, err := time.ParseDuration(cfg.ActivityDrainTimeoutStr); err == nil {
		cfg.ActivityDrainTimeout = d
	}
	if d, err := time.ParseDuration(cfg.ActivityBreakerCooldownStr); err == nil {
		cfg.ActivityBreakerCooldown = d
	}

	return cfg
}

// parseInt parses a string as an integer.
func parseInt(s string) (int, error) {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, os.ErrInvalid
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := struct {
		DatabaseURL              string `json:"database_url"`
		RedisAddr                string `json:"redis_addr,omitempty"`
		HTTPAddr                 string `json:"http_addr"`
		DBOpTimeout              string `json:"db_op_timeout"`
		DBMaxOpenConns           int    `json:"db_max_open_conns"`
		DBMaxIdleConns           int    `json:"db_max_idle_conns"`
		DBConnMaxLifetime        string `json:"db_conn_max_lifetime"`
		DBConnMaxIdleTime        string `json:"db_conn_max_idle_time"`
		HTTPShutdownTimeout      string `json:"http_shutdown_timeout"`
		MetricsEnabled           bool   `json:"metrics_enabled"`
		MetricsPath              string `json:"metrics_path"`
		MetricsPort              string `json:"metrics_port"`
		ActivityBufferSize       int    `json:"activity_buffer_size"`
		ActivityRetention        string `json:"activity_retention"`
		ActivityDrainTimeout     string `json:"activity_drain_timeout"`
		ActivityBreakerThreshold int    `json:"activity_breaker_threshold"`
		ActivityBreakerCooldown  string `json:"activity_breaker_cooldown"`
		SnapshotEnabled          bool   `json:"snapshot_enabled"`
		SnapshotSchedule         string `json:"snapshot_schedule"`
		SnapshotLockKey          int64  `json:"snapshot_lock_key"`
	}{
		DatabaseURL:              maskSecret(c.DatabaseURL),
		RedisAddr:                c.RedisAddr,
		HTTPAddr:                 c.HTTPAddr,
		DBOpTimeout:              c.DBOpTimeoutStr,
		DBMaxOpenConns:           c.DBMaxOpenConns,
		DBMaxIdleConns:           c.DBMaxIdleConns,
		DBConnMaxLifetime:        c.DBConnMaxLifetimeStr,
		DBConnMaxIdleTime:        c.DBConnMaxIdleTimeStr,
		HTTPShutdownTimeout:      c.HTTPShutdownTimeoutStr,
		MetricsEnabled:           c.MetricsEnabled,
		MetricsPath:              c.MetricsPath,
		MetricsPort:              c.MetricsPort,
		ActivityBufferSize:       c.ActivityBufferSize,
		ActivityRetention:        c.ActivityRetentionStr,
		ActivityDrainTimeout:     c.ActivityDrainTimeoutStr,
		ActivityBreakerThreshold: c.ActivityBreakerThreshold,
		ActivityBreakerCooldown:  c.ActivityBreakerCooldownStr,
		SnapshotEnabled:          c.SnapshotEnabled,
		SnapshotSchedule:         c.SnapshotSchedule,
		SnapshotLockKey:          c.SnapshotLockKey,
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if len(s) >= len(scheme) && s[:len(scheme)] == scheme {
			return scheme + "***"
		}
	}
	return "***"
}
