package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{
		"CODECOACH_PROVIDER", "CODECOACH_MODEL", "CODECOACH_FORMAT", "CODECOACH_FAIL_ON",
		"CODECOACH_CONCURRENCY", "CODECOACH_CACHE_TTL_SECONDS", "CODECOACH_SERVER_ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 0, cfg.FailOn)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.True(t, cfg.Privacy.RedactSecrets)
	assert.True(t, cfg.Cache.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "codecoach", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`
provider: openai
model: gpt-4o
format: json
concurrency: 2
cache:
  ttl_seconds: 60
`), 0o644))

	t.Setenv("CODECOACH_FORMAT", "sarif")
	t.Setenv("CODECOACH_CACHE_TTL_SECONDS", "120")

	cfg, err := Load(map[string]string{"model": "gpt-4.1", "fail_on": "4", "provider": ""})
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider, "file beats default; empty override ignored")
	assert.Equal(t, "gpt-4.1", cfg.Model, "override beats file")
	assert.Equal(t, "sarif", cfg.Format, "env beats file")
	assert.Equal(t, 4, cfg.FailOn)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 120, cfg.Cache.TTLSeconds)
	assert.True(t, cfg.Cache.Enabled, "unset nested default survives a partial section")
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	isolate(t)
	_, err := NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")).Load(nil)
	require.Error(t, err)
}

func TestLoad_AllowedOriginsOverride(t *testing.T) {
	isolate(t)
	cfg, err := Load(map[string]string{"server.allowed_origins": "http://a, http://b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.AllowedOrigins)
}

func TestSaveAndLoadFile(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Provider = "gemini"
	cfg.Model = "gemini-2.0-flash"
	cfg.Cache.Enabled = false
	require.NoError(t, Save(cfg))

	path, err := ConfigPath()
	require.NoError(t, err)
	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestSetField(t *testing.T) {
	cfg := Default()
	require.NoError(t, SetField(&cfg, "provider", "openai"))
	require.NoError(t, SetField(&cfg, "fail_on", "3"))
	require.NoError(t, SetField(&cfg, "cache.enabled", "false"))
	require.NoError(t, SetField(&cfg, "temperature", "0.2"))
	require.NoError(t, SetField(&cfg, "server.allowed_origins", "http://x,http://y"))

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 3, cfg.FailOn)
	assert.False(t, cfg.Cache.Enabled)
	assert.InDelta(t, 0.2, cfg.Temperature, 1e-9)
	assert.Equal(t, []string{"http://x", "http://y"}, cfg.Server.AllowedOrigins)

	assert.Error(t, SetField(&cfg, "fail_on", "high"))
	assert.Error(t, SetField(&cfg, "cache.enabled", "maybe"))
	assert.Error(t, SetField(&cfg, "nonsense", "x"))
}

func TestSetField_CoversKeys(t *testing.T) {
	values := map[string]string{
		"fail_on": "1", "concurrency": "1", "max_tokens": "1", "temperature": "0",
		"cache.enabled": "true", "cache.ttl_seconds": "1", "privacy.redact_secrets": "true",
	}
	for _, k := range Keys {
		cfg := Default()
		v, ok := values[k]
		if !ok {
			v = "x"
		}
		assert.NoError(t, SetField(&cfg, k, v), k)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"format", func(c *Config) { c.Format = "html" }},
		{"fail_on high", func(c *Config) { c.FailOn = 6 }},
		{"fail_on negative", func(c *Config) { c.FailOn = -1 }},
		{"concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"provider", func(c *Config) { c.Provider = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
