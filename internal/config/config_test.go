package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes into dir for the duration of the test, mirroring
// testing.T.Chdir, which needs Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config file present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 10.0, cfg.Places.RateLimit, 1e-9)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Research.Model)
	assert.Equal(t, int64(1024), cfg.Research.MaxTokens)
	assert.Equal(t, "geocode-cache.db", cfg.Geocode.CachePath)
	assert.Equal(t, 720, cfg.Geocode.CacheTTLH)
	assert.Equal(t, 60, cfg.Engine.MaxResults)
	assert.Equal(t, 5, cfg.Engine.MaxConcurrentResearch)
	assert.Equal(t, 90, cfg.Engine.CallTimeoutSecs)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
places:
  key: places-key
  rate_limit: 2.5
research:
  key: research-key
  model: claude-sonnet-4-5
notion:
  token: notion-token
  lead_db: db-123
server:
  port: 9090
log:
  level: debug
  format: console
`), 0o600))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "places-key", cfg.Places.Key)
	assert.InDelta(t, 2.5, cfg.Places.RateLimit, 1e-9)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Research.Model)
	assert.Equal(t, "notion-token", cfg.Notion.Token)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, int64(1024), cfg.Research.MaxTokens)
	assert.Equal(t, 60, cfg.Engine.MaxResults)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LEADGEN_SERVER_PORT", "3000")
	t.Setenv("LEADGEN_LOG_LEVEL", "warn")
	t.Setenv("LEADGEN_RESEARCH_MODEL", "claude-opus-4-5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "claude-opus-4-5", cfg.Research.Model)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9090\n"), 0o600))
	chdir(t, dir)
	t.Setenv("LEADGEN_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoad_GeocodeKeyFallsBackToPlacesKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("places:\n  key: shared-key\n"), 0o600))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "shared-key", cfg.Geocode.Key)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("places: [not a map"), 0o600))
	chdir(t, dir)

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Places:   PlacesConfig{Key: "k"},
			Research: ResearchConfig{Key: "k"},
			Engine:   EngineConfig{MaxConcurrentResearch: 5},
			Server:   ServerConfig{Port: 8080},
		}
	}

	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{"discover ok", "discover", func(*Config) {}, ""},
		{"serve ok", "serve", func(*Config) {}, ""},
		{"discover needs a key", "discover", func(c *Config) {
			c.Places.Key = ""
			c.Research.Key = ""
		}, "places.key or research.key"},
		{"discover with one key", "discover", func(c *Config) {
			c.Places.Key = ""
		}, ""},
		{"serve bad port", "serve", func(c *Config) {
			c.Server.Port = 0
		}, "server.port"},
		{"serve port too high", "serve", func(c *Config) {
			c.Server.Port = 70000
		}, "server.port"},
		{"concurrency out of range", "serve", func(c *Config) {
			c.Engine.MaxConcurrentResearch = 100
		}, "max_concurrent_research"},
		{"unknown mode", "bogus", func(*Config) {}, "unknown mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "shouting", Format: "json"}))
}
