package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "otec.yaml", `
store:
  backend: redis
redis:
  addr: redis:6379
  ttl: 1h
  lock: true
log:
  level: debug
lock_ttl: 5s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.True(t, cfg.Redis.Lock)
	assert.Equal(t, "otec:", cfg.Redis.Prefix, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "otec.json", `{"store": {"backend": "file", "dir": "/tmp/x"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreFile, cfg.Store.Backend)
	assert.Equal(t, "/tmp/x", cfg.Store.Dir)
}

func TestLoad_JSONDurations(t *testing.T) {
	path := write(t, "otec.json", `{"lock_ttl": "45s", "redis": {"ttl": "2h"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.LockTTL)
	assert.Equal(t, 2*time.Hour, cfg.Redis.TTL)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(write(t, "bad.yaml", "store: [unclosed"))
	assert.Error(t, err)

	_, err = Load(write(t, "otec.yaml", "store:\n  backend: s3\n"))
	assert.ErrorContains(t, err, "unknown store backend")

	_, err = Load(write(t, "otec.yaml", "log:\n  format: xml\n"))
	assert.ErrorContains(t, err, "unknown log format")

	cfg := Default()
	cfg.Store = StoreConfig{Backend: StoreFile}
	assert.ErrorContains(t, cfg.Validate(), "store.dir")
}

func TestEncryptionConfig(t *testing.T) {
	const key = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

	t.Run("Disabled By Default", func(t *testing.T) {
		assert.False(t, Default().Store.Encryption.Enabled())
	})

	t.Run("Keys", func(t *testing.T) {
		path := write(t, "otec.yaml", `
store:
  encryption:
    key: `+key+`
    fallback_keys: [`+key+`]
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		require.True(t, cfg.Store.Encryption.Enabled())

		active, fallback, err := cfg.Store.Encryption.Keys()
		require.NoError(t, err)
		assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), active)
		assert.Len(t, fallback, 1)
	})

	t.Run("Short Key", func(t *testing.T) {
		cfg := Default()
		cfg.Store.Encryption.Key = "c2hvcnQ="
		assert.ErrorContains(t, cfg.Validate(), "32 bytes")
	})

	t.Run("Bad Fallback", func(t *testing.T) {
		cfg := Default()
		cfg.Store.Encryption = EncryptionConfig{Key: key, FallbackKeys: []string{"!!"}}
		assert.ErrorContains(t, cfg.Validate(), "fallback_keys[0]")
	})
}
