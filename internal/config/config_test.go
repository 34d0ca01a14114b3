package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/kimhsiao/plantcare/backend/internal/logging"
)

// clearEnv blanks overrides inherited from the test environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDataDir, EnvStore, EnvRedis, EnvLogLevel, EnvLocale} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plantcare.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.True(t, cfg.SeedSamples)
}

func TestLoad_file(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
data_dir: /var/lib/plantcare
store:
  backend: redis
  redis:
    addr: cache:6380
    db: 2
log:
  level: debug
locale: fr
seed_samples: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/plantcare", cfg.DataDir)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "plantcare", cfg.Store.Redis.Prefix, "unset keys keep defaults")
	assert.Equal(t, logging.LevelDebug, cfg.LogLevel())
	assert.Equal(t, language.French, cfg.Language())
	assert.False(t, cfg.SeedSamples)
}

func TestLoad_envOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "store:\n  backend: sqlite\n")
	t.Setenv(EnvDataDir, "/tmp/plants")
	t.Setenv(EnvStore, " JSON ")
	t.Setenv(EnvRedis, "redis.local:6379/3")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLocale, "es")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/plants", cfg.DataDir)
	assert.Equal(t, BackendJSON, cfg.Store.Backend)
	assert.Equal(t, "redis.local:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 3, cfg.Store.Redis.DB)
	assert.Equal(t, logging.LevelWarn, cfg.LogLevel())
	assert.Equal(t, language.Spanish, cfg.Language())
}

func TestLoad_errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "bad yaml", body: "store: [unclosed"},
		{name: "unknown backend", body: "store:\n  backend: mongo\n"},
		{name: "empty data dir", body: "data_dir: \"\"\n"},
		{name: "unknown level", body: "log:\n  level: loud\n"},
		{name: "bad locale", body: "locale: \"!!\"\n"},
		{name: "negative redis db", body: "store:\n  backend: redis\n  redis:\n    db: -1\n"},
		{name: "bad redis env", body: "", env: map[string]string{EnvRedis: "host:6379/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Language_fallback(t *testing.T) {
	cfg := Default()
	cfg.Locale = "!!"
	assert.Equal(t, language.English, cfg.Language())
}
