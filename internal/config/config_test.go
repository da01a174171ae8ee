package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Probe.PrimaryURLTemplate = "https://primary.example/%s"
	cfg.Probe.SecondaryURLTemplate = "https://secondary.example/%s"
	return cfg
}

func TestDefaultConfigNeedsTemplates(t *testing.T) {
	err := DefaultConfig().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary_url_template")
}

func TestValidConfigPasses(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 9090
probe:
  primary_url_template: "https://primary.example/%s"
  secondary_url_template: "https://secondary.example/%s"
circuit_breaker:
  failure_threshold: 5
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://primary.example/%s", cfg.Probe.PrimaryURLTemplate)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Values absent from the file keep their defaults.
	assert.Equal(t, 10*time.Minute, cfg.Cache.Routes.TTL)
	assert.Equal(t, 72*time.Hour, cfg.Index.SnapshotTTL)
	assert.Equal(t, "os-", cfg.Probe.PluginPrefix)
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	content := `
server:
  port: -1
probe:
  primary_url_template: "https://primary.example/%s"
  secondary_url_template: "https://secondary.example/%s"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PROXY_PORT", "7070")
	t.Setenv("PROXY_PRIMARY_URL_TEMPLATE", "https://p.example/%s")
	t.Setenv("PROXY_SECONDARY_URL_TEMPLATE", "https://s.example/%s")
	t.Setenv("PROXY_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "https://p.example/%s", cfg.Probe.PrimaryURLTemplate)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestAdminEnabledRequiresSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Admin.Enabled = true
	cfg.Admin.SecretKey = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_key")
}
