package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 10*time.Minute, cfg.Publisher.TenantsRefreshInterval.Duration)
	require.False(t, cfg.Publisher.FeedLogEnabled)
	require.Equal(t, int64(10_000), cfg.Redis.StreamMaxLen)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[upstream]
url = "wss://feed.example.com/v1"

[postgres]
host = "db.internal"
password = "hunter2"

[publisher]
feed_log_enabled = true
tenants_refresh_interval = "3m"

[s3]
bucket = "feedlog-prod"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "wss://feed.example.com/v1", cfg.Upstream.URL)
	require.Equal(t, "db.internal", cfg.Postgres.Host)
	// Untouched keys keep their defaults.
	require.Equal(t, 5432, cfg.Postgres.Port)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.True(t, cfg.Publisher.FeedLogEnabled)
	require.Equal(t, 3*time.Minute, cfg.Publisher.TenantsRefreshInterval.Duration)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[postgres]
host = "from-file"
`)
	t.Setenv("ODDSROUTER_POSTGRES_HOST", "from-env")
	t.Setenv("ODDSROUTER_PUBLISHER_TENANTS_REFRESH_INTERVAL", "90s")
	t.Setenv("ODDSROUTER_PUBLISHER_FEED_LOG_ENABLED", "true")
	t.Setenv("ODDSROUTER_REDIS_STREAM_MAX_LEN", "5000")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Postgres.Host)
	require.Equal(t, 90*time.Second, cfg.Publisher.TenantsRefreshInterval.Duration)
	require.True(t, cfg.Publisher.FeedLogEnabled)
	require.Equal(t, int64(5000), cfg.Redis.StreamMaxLen)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Publisher.TenantsRefreshInterval = duration{0}
	cfg.Publisher.FeedLogEnabled = true
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "log_level")
	require.Contains(t, err.Error(), "redis: addr")
	require.Contains(t, err.Error(), "tenants_refresh_interval")
	require.Contains(t, err.Error(), "s3: bucket")
}

func TestValidateUpstreamScheme(t *testing.T) {
	cfg := Defaults()
	cfg.Upstream.URL = "https://feed.example.com"
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "upstream: url")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Upstream.APIToken = "token-123"
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "redispass"
	cfg.S3.AccessKey = "AKIA"
	cfg.S3.SecretKey = "secret"

	out := RedactedConfig(&cfg)
	require.Equal(t, "***", out.Upstream.APIToken)
	require.Equal(t, "***", out.Postgres.Password)
	require.Equal(t, "***", out.Redis.Password)
	require.Equal(t, "***", out.S3.AccessKey)
	require.Equal(t, "***", out.S3.SecretKey)

	// Empty secrets stay empty and the original is untouched.
	require.Empty(t, out.Postgres.DSN)
	require.Equal(t, "hunter2", cfg.Postgres.Password)
	require.Equal(t, cfg.Redis.Addr, out.Redis.Addr)
}
