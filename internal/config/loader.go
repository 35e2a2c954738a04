package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ODDSROUTER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ODDSROUTER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Upstream ──
	setStr(&cfg.Upstream.URL, "ODDSROUTER_UPSTREAM_URL")
	setStr(&cfg.Upstream.APIToken, "ODDSROUTER_UPSTREAM_API_TOKEN")
	setDuration(&cfg.Upstream.DialTimeout, "ODDSROUTER_UPSTREAM_DIAL_TIMEOUT")
	setDuration(&cfg.Upstream.MaxBackoff, "ODDSROUTER_UPSTREAM_MAX_BACKOFF")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ODDSROUTER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ODDSROUTER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ODDSROUTER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ODDSROUTER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ODDSROUTER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ODDSROUTER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ODDSROUTER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ODDSROUTER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ODDSROUTER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ODDSROUTER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ODDSROUTER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ODDSROUTER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ODDSROUTER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ODDSROUTER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ODDSROUTER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ODDSROUTER_REDIS_TLS_ENABLED")
	setInt64(&cfg.Redis.StreamMaxLen, "ODDSROUTER_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ODDSROUTER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ODDSROUTER_S3_REGION")
	setStr(&cfg.S3.Bucket, "ODDSROUTER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ODDSROUTER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ODDSROUTER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ODDSROUTER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ODDSROUTER_S3_FORCE_PATH_STYLE")

	// ── Publisher ──
	setBool(&cfg.Publisher.FeedLogEnabled, "ODDSROUTER_PUBLISHER_FEED_LOG_ENABLED")
	setInt(&cfg.Publisher.FeedLogQueueSize, "ODDSROUTER_PUBLISHER_FEED_LOG_QUEUE_SIZE")
	setDuration(&cfg.Publisher.TenantsRefreshInterval, "ODDSROUTER_PUBLISHER_TENANTS_REFRESH_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ODDSROUTER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
