package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "mysportsbet", cfg.App.Name)
	assert.Equal(t, 300, cfg.Cache.OddsTTLSeconds)
	assert.Equal(t, int64(20), cfg.Calibration.MinSampleSize)

	sum := 0.0
	for _, w := range cfg.Ensemble.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_ODDS_KEY", "key-from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  name: mysportsbet
  environment: development
  log_level: info
  health_port: 8080
odds_api:
  base_url: https://api.example.com/v4
  api_key: ${TEST_ODDS_KEY}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", cfg.OddsAPI.APIKey)
	assert.Equal(t, 8080, cfg.App.HealthPort)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
