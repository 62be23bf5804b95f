package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Crawler.CooldownSeconds)
	assert.Equal(t, 6, cfg.Crawler.HostRequestsPerMinute)
	assert.True(t, cfg.Crawler.RespectRobots)
	assert.Equal(t, "fanfan-bot/1.0", cfg.Crawler.UserAgent)
	assert.True(t, cfg.Render.Headless)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 10000, cfg.AI.MaxChars)
	assert.Equal(t, "pages", cfg.Storage.Prefix)

	assert.Equal(t, 45*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 10*time.Second, cfg.Cooldown())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
crawler:
  cooldown_seconds: 30
  user_agent: custom-bot/2.0
render:
  headless: false
extract:
  venue_suffixes:
    - Basement
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Crawler.CooldownSeconds)
	assert.Equal(t, "custom-bot/2.0", cfg.Crawler.UserAgent)
	assert.False(t, cfg.Render.Headless)
	assert.Equal(t, []string{"Basement"}, cfg.Extract.VenueSuffixes)
	assert.Equal(t, 6, cfg.Crawler.HostRequestsPerMinute, "unset keys keep defaults")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FANFAN_SERVER_PORT", "7070")
	t.Setenv("FANFAN_CRAWLER_HOST_REQUESTS_PER_MINUTE", "12")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Crawler.HostRequestsPerMinute)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"negative cooldown", func(c *Config) { c.Crawler.CooldownSeconds = -1 }},
		{"zero host budget", func(c *Config) { c.Crawler.HostRequestsPerMinute = 0 }},
		{"zero request timeout", func(c *Config) { c.Crawler.RequestTimeoutMs = 0 }},
		{"empty user agent", func(c *Config) { c.Crawler.UserAgent = "" }},
		{"headless without nav timeout", func(c *Config) {
			c.Render.Headless = true
			c.Render.NavTimeoutSec = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
