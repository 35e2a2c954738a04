// Package config defines the top-level configuration for the odds router
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ODDSROUTER_* environment variables.
type Config struct {
	Upstream  UpstreamConfig  `toml:"upstream"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Publisher PublisherConfig `toml:"publisher"`
	LogLevel  string          `toml:"log_level"`
}

// UpstreamConfig holds the upstream odds feed connection parameters. An empty
// URL disables the intake; the router then only serves direct publish calls.
type UpstreamConfig struct {
	URL         string   `toml:"url"`
	APIToken    string   `toml:"api_token"`
	DialTimeout duration `toml:"dial_timeout"`
	MaxBackoff  duration `toml:"max_backoff"`
}

// PostgresConfig holds PostgreSQL connection parameters for the tenant and
// boost catalogs.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis carries both the
// market mapping cache and the per-tenant feed streams.
type RedisConfig struct {
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	StreamMaxLen int64  `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters for the feed log.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PublisherConfig holds routing and archival behaviour.
type PublisherConfig struct {
	FeedLogEnabled         bool     `toml:"feed_log_enabled"`
	FeedLogQueueSize       int      `toml:"feed_log_queue_size"`
	TenantsRefreshInterval duration `toml:"tenants_refresh_interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "10m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "10m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Upstream: UpstreamConfig{
			URL:         "",
			DialTimeout: duration{10 * time.Second},
			MaxBackoff:  duration{time.Minute},
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "oddsrouter",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     20,
			MaxRetries:   3,
			TLSEnabled:   false,
			StreamMaxLen: 10_000,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "oddsrouter-feedlog",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Publisher: PublisherConfig{
			FeedLogEnabled:         false,
			FeedLogQueueSize:       256,
			TenantsRefreshInterval: duration{10 * time.Minute},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.StreamMaxLen < 1 {
		errs = append(errs, "redis: stream_max_len must be >= 1")
	}

	// S3 settings are only required when the feed log actually writes.
	if c.Publisher.FeedLogEnabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when publisher.feed_log_enabled is set")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when publisher.feed_log_enabled is set")
		}
	}

	// Publisher
	if c.Publisher.TenantsRefreshInterval.Duration <= 0 {
		errs = append(errs, "publisher: tenants_refresh_interval must be > 0")
	}
	if c.Publisher.FeedLogQueueSize < 1 {
		errs = append(errs, "publisher: feed_log_queue_size must be >= 1")
	}

	// Upstream settings are only checked when the intake is enabled.
	if c.Upstream.URL != "" {
		if !strings.HasPrefix(c.Upstream.URL, "ws://") && !strings.HasPrefix(c.Upstream.URL, "wss://") {
			errs = append(errs, fmt.Sprintf("upstream: url must be a ws:// or wss:// endpoint, got %q", c.Upstream.URL))
		}
		if c.Upstream.DialTimeout.Duration <= 0 {
			errs = append(errs, "upstream: dial_timeout must be > 0")
		}
		if c.Upstream.MaxBackoff.Duration <= 0 {
			errs = append(errs, "upstream: max_backoff must be > 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
