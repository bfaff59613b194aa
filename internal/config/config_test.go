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
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "/tmp/files_manager", cfg.FolderPath)
	assert.Equal(t, TokenBackendRedis, cfg.TokenBackend)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 3, cfg.JobMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.WorkerPollInterval())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("FOLDER_PATH", "/srv/blobs")
	t.Setenv("TOKEN_BACKEND", "memory")
	t.Setenv("LOG_DEV", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/srv/blobs", cfg.FolderPath)
	assert.Equal(t, TokenBackendMemory, cfg.TokenBackend)
	assert.True(t, cfg.LogDev)
}

func TestLoadEnvFileDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("JOB_MAX_ATTEMPTS=7\nMETRICS_PORT=9191\n"), 0o600))

	t.Setenv("METRICS_PORT", "9999")
	t.Setenv("JOB_MAX_ATTEMPTS", "")
	os.Unsetenv("JOB_MAX_ATTEMPTS")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.JobMaxAttempts)
	assert.Equal(t, 9999, cfg.MetricsPort)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Port:                      5000,
		FolderPath:                "/tmp/x",
		TokenBackend:              "etcd",
		TokenTTLSeconds:           1,
		UploadMaxConcurrent:       0,
		UploadWriteTimeoutSeconds: 1,
		MaxUploadBytes:            1,
		WorkerConcurrency:         1,
		WorkerPollIntervalMs:      1,
		JobMaxAttempts:            1,
		JobTimeoutSeconds:         1,
		JobLeaseSeconds:           1,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_BACKEND")
	assert.Contains(t, err.Error(), "UPLOAD_MAX_CONCURRENT")
}
