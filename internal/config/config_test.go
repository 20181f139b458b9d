package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvCacheDir, EnvIndexDir, EnvToken, EnvAPIURL, EnvSingleFlight} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def, cfg)
	assert.Equal(t, DefaultKeywords, cfg.Keywords)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.SingleFlight)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache_dir: /data/cache
index_dir: /data/index
http_timeout: 5s
memory_entries: 0
single_flight: true
keywords: [axum, hyper]
log_format: json
verbose: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/cache", cfg.CacheDir)
	assert.Equal(t, "/data/index", cfg.IndexDir)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.MemoryEntries)
	assert.True(t, cfg.SingleFlight)
	assert.Equal(t, []string{"axum", "hyper"}, cfg.Keywords)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "https://api.github.com", cfg.APIBaseURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCacheDir, "/env/cache")
	t.Setenv(EnvIndexDir, "/env/index")
	t.Setenv(EnvToken, "ghp_test")
	t.Setenv(EnvAPIURL, "http://localhost:9999")
	t.Setenv(EnvSingleFlight, "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/env/cache", cfg.CacheDir)
	assert.Equal(t, "/env/index", cfg.IndexDir)
	assert.Equal(t, "ghp_test", cfg.GitHubToken)
	assert.Equal(t, "http://localhost:9999", cfg.APIBaseURL)
	assert.True(t, cfg.SingleFlight)
}

func TestLoad_BadEnvBool(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSingleFlight, "sometimes")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_dir: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty cache dir", func(c *Config) { c.CacheDir = "" }, true},
		{"empty index dir", func(c *Config) { c.IndexDir = "" }, true},
		{"shared dir", func(c *Config) { c.IndexDir = c.CacheDir }, true},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }, true},
		{"negative memory", func(c *Config) { c.MemoryEntries = -1 }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.SingleFlight = true
	cfg.HTTPTimeout = 10 * time.Second

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
