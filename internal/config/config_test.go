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

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Analysis.BatchSize)
	assert.Equal(t, 10, cfg.Analysis.MaxPages)
	assert.Equal(t, 24*time.Hour, cfg.Analysis.Lookback)
	assert.Equal(t, 10, cfg.Analysis.WorkerBatch)
	assert.False(t, cfg.Analysis.MarkExcluded)
	assert.Equal(t, 5, cfg.Analysis.WazuhFailureThreshold)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9999
analysis:
  batch_size: 50
  mark_excluded: true
cases:
  url: http://cases.internal:8000
  api_key: sekrit
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Analysis.BatchSize)
	assert.True(t, cfg.Analysis.MarkExcluded)
	assert.Equal(t, "sekrit", cfg.Cases.APIKey)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10, cfg.Analysis.MaxPages)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("COPILOT_SERVER_PORT", "7070")
	t.Setenv("COPILOT_ANALYSIS_MAX_PAGES", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Analysis.MaxPages)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5432, User: "copilot", Password: "pw",
		Database: "copilot", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://copilot:pw@db:5432/copilot?sslmode=disable", p.DSN())
}
