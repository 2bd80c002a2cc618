package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.Empty(t, cfg.Profiles)
}

func TestLoad_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `current_profile: production
profiles:
  production:
    api_url: https://copilot.example.com
    token: test-token-123
`
	err := os.WriteFile(configPath, []byte(configContent), 0600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.CurrentProfile)
	require.Contains(t, cfg.Profiles, "production")
	assert.Equal(t, "https://copilot.example.com", cfg.Profiles["production"].APIURL)
	assert.Equal(t, "test-token-123", cfg.Profiles["production"].Token)
}

func TestSaveProfileRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	err = cfg.SaveProfile("staging", "http://localhost:8088", "tok")
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.CurrentProfile)

	reloaded, err := Load(configPath)
	require.NoError(t, err)

	p, err := reloaded.GetProfile("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8088", p.APIURL)
	assert.Equal(t, "tok", p.Token)
}

func TestGetProfileNotFound(t *testing.T) {
	cfg := Default()

	_, err := cfg.GetProfile("missing")
	assert.ErrorContains(t, err, "profile 'missing' not found")
}
