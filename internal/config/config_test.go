package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 9394, cfg.Server.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.Storage.CartTTL)
	assert.Equal(t, ":9394", cfg.Server.Addr())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studiorent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
  shutdown_timeout: 3s
storage:
  driver: redis
  redis_addr: cache:6379
  cart_ttl: 48h
log:
  format: console
`), 0o644))

	t.Setenv("PORT", "9000")
	t.Setenv("SMTP_USER", "desk@studio.test")
	t.Setenv("STUDIORENT_TELEMETRY_ENABLED", "yes")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "cache:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 48*time.Hour, cfg.Storage.CartTTL)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "desk@studio.test", cfg.Email.User)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_StudiorentPortBeatsPort(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STUDIORENT_PORT", "9100")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load("config.toml")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"driver", func(c *Config) { c.Storage.Driver = "etcd" }, "storage.driver"},
		{"file path", func(c *Config) { c.Storage.FilePath = "" }, "storage.file_path"},
		{"redis addr", func(c *Config) { c.Storage.Driver = "redis"; c.Storage.RedisAddr = "" }, "storage.redis_addr"},
		{"ttl", func(c *Config) { c.Storage.CartTTL = -time.Second }, "storage.cart_ttl"},
		{"cache size", func(c *Config) { c.Storage.CartCacheSize = 0 }, "storage.cart_cache_size"},
		{"admin hash", func(c *Config) { c.Admin.KeyHash = "plaintext" }, "admin.key_hash"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfiguration)
			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}
