package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "docintake.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "page_cache", cfg.Cache.Dir)
	assert.Equal(t, "processed_documents.json", cfg.Dedup.StatePath)
	assert.Equal(t, "/tmp/docintake", cfg.Intake.TempDir)
	assert.Equal(t, 30, cfg.Intake.FTPTimeoutSecs)
	assert.True(t, cfg.Intake.ValidatePDF)
	assert.Equal(t, "local", cfg.OCR.Provider)
	assert.Equal(t, "pixtral-large-latest", cfg.OCR.MistralModel)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Extract.Model)
	assert.Equal(t, int64(4096), cfg.Extract.MaxTokens)
	assert.Equal(t, 4, cfg.Extract.MaxConcurrent)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.2, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.InDelta(t, 0.5, cfg.Monitoring.UnassociatedRateThreshold, 0.001)
	assert.Equal(t, 3, cfg.Batch.MaxConcurrentDocuments)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/docintake
log:
  level: debug
  format: console
server:
  port: 9090
intake:
  local_dirs:
    - /data/scans
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/docintake", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"/data/scans"}, cfg.Intake.LocalDirs)
	// Defaults still apply for unset values
	assert.Equal(t, "local", cfg.OCR.Provider)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DOCINTAKE_STORE_DRIVER", "postgres")
	t.Setenv("DOCINTAKE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("DOCINTAKE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestValidateIngest_AllPresent(t *testing.T) {
	cfg := &Config{}
	cfg.Store.DatabaseURL = "docintake.db"
	cfg.Dedup.StatePath = "processed.json"
	cfg.OCR.Provider = "local"
	cfg.Extract.AnthropicKey = "sk-ant-key"

	assert.NoError(t, cfg.Validate("ingest"))
}

func TestValidateIngest_MistralNeedsKey(t *testing.T) {
	cfg := &Config{}
	cfg.Store.DatabaseURL = "docintake.db"
	cfg.Dedup.StatePath = "processed.json"
	cfg.OCR.Provider = "mistral"
	cfg.Extract.AnthropicKey = "sk-ant-key"

	err := cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral_api_key")
}

func TestValidateIngest_MissingAnthropicKey(t *testing.T) {
	cfg := &Config{}
	cfg.Store.DatabaseURL = "docintake.db"
	cfg.Dedup.StatePath = "processed.json"

	err := cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic_api_key")
}

func TestValidateServe_MissingCacheDir(t *testing.T) {
	cfg := &Config{}
	cfg.Store.DatabaseURL = "docintake.db"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.dir")
}

func TestValidateUnknownCommandIsPermissive(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate("status"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
