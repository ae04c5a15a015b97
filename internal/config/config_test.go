package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chtmp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtmp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.cohere.com", cfg.Cohere.BaseURL)
	assert.Equal(t, "embed-v4.0", cfg.Cohere.Model)
	assert.Equal(t, 90, cfg.Cohere.BatchSize)
	assert.Equal(t, 3, cfg.Cohere.MaxAttempts)
	assert.Equal(t, 100, cfg.Cohere.MinDimension)
	assert.InDelta(t, 0.3, cfg.Match.SimilarityThreshold, 0.001)
	assert.InDelta(t, 0.10, cfg.Match.CategoryBoost, 0.001)
	assert.InDelta(t, 0.15, cfg.Match.KeywordBoostMax, 0.001)
	assert.InDelta(t, 0.10, cfg.Match.PhraseBoostMax, 0.001)
	assert.InDelta(t, 0.05, cfg.Match.PhraseBoostStep, 0.001)
	assert.InDelta(t, 0.10, cfg.Match.UnitBoost, 0.001)
	assert.Equal(t, 15, cfg.Detect.MaxHeaderRows)
	assert.Equal(t, 20, cfg.Detect.SampleRows)
	assert.Equal(t, 20, cfg.Detect.MaxSearchColumns)
	assert.Equal(t, 3, cfg.Detect.MinDescQuality)
}

func TestLoadFromYAML(t *testing.T) {
	chtmp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/pricematch
match:
  similarity_threshold: 0.5
cohere:
  batch_size: 40
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/pricematch", cfg.Store.DatabaseURL)
	assert.InDelta(t, 0.5, cfg.Match.SimilarityThreshold, 0.001)
	assert.Equal(t, 40, cfg.Cohere.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep defaults.
	assert.Equal(t, "embed-v4.0", cfg.Cohere.Model)
	assert.InDelta(t, 0.10, cfg.Match.UnitBoost, 0.001)
}

func TestLoadFromEnv(t *testing.T) {
	chtmp(t)
	t.Setenv("PRICEMATCH_MATCH_SIMILARITY_THRESHOLD", "0.45")
	t.Setenv("PRICEMATCH_COHERE_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.45, cfg.Match.SimilarityThreshold, 0.001)
	assert.Equal(t, "test-key", cfg.Cohere.Key)
}

func TestValidate(t *testing.T) {
	chtmp(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Match.SimilarityThreshold = 1.5
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "similarity_threshold")

	cfg, _ = Load()
	cfg.Cohere.BatchSize = 0
	cfg.Match.UnitBoost = -0.1
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
	assert.Contains(t, err.Error(), "unit_boost")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
