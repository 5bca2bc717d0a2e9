package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 7860, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "olmocr_workspace", cfg.Workspace.Dir)
	assert.Equal(t, []string{"python", "-m", "olmocr.pipeline"}, cfg.Pipeline.ExtractCommand)
	assert.Equal(t, []string{"python", "-m", "olmocr.viewer.dolmaviewer"}, cfg.Pipeline.PreviewCommand)
	assert.Equal(t, "dolma_previews", cfg.Pipeline.PreviewDirName)
	assert.Equal(t, 2, cfg.Batch.Concurrency)
	assert.Equal(t, "extracted_texts.zip", cfg.Batch.ArchiveName)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Retention.Enabled)
}

func TestLoadFromFiles_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.toml")
	content := `
[server]
port = 9000
host = "127.0.0.1"

[workspace]
dir = "/tmp/scribe-work"

[batch]
concurrency = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "/tmp/scribe-work", cfg.Workspace.Dir)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	// Untouched sections keep defaults
	assert.Equal(t, "dolma_previews", cfg.Pipeline.PreviewDirName)
}

func TestLoadFromFiles_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.yaml")
	content := `
server:
  port: 8100
  host: localhost
pipeline:
  timeout: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 8100, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 10*time.Minute, cfg.PipelineTimeout())
}

func TestLoadFromFiles_LaterFileOverrides(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte("[server]\nport = 7000\n"), 0644))
	require.NoError(t, os.WriteFile(override, []byte("[server]\nport = 7001\n"), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/scribe.toml")
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SCRIBE_SERVER_PORT", "7999")
	t.Setenv("SCRIBE_WORKSPACE_DIR", "/var/scribe")
	t.Setenv("SCRIBE_BATCH_CONCURRENCY", "8")
	t.Setenv("SCRIBE_PIPELINE_EXTRACT_COMMAND", "olmocr-pipeline --gpu")
	t.Setenv("SCRIBE_LOG_OUTPUT", "stdout, file")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7999, cfg.Server.Port)
	assert.Equal(t, "/var/scribe", cfg.Workspace.Dir)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, []string{"olmocr-pipeline", "--gpu"}, cfg.Pipeline.ExtractCommand)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
}

func TestLoadFromFiles_InvalidConcurrency(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.toml")
	require.NoError(t, os.WriteFile(path, []byte("[batch]\nconcurrency = 0\n"), 0644))

	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, 9090, "192.168.1.10", "work")
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "192.168.1.10", cfg.Server.Host)
	assert.Equal(t, "work", cfg.Workspace.Dir)

	// Zero values leave config untouched
	ApplyFlagOverrides(cfg, 0, "", "")
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "192.168.1.10", cfg.Server.Host)
}

func TestRetentionMaxAge_Fallback(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Retention.MaxAge = "not-a-duration"
	assert.Equal(t, 168*time.Hour, cfg.RetentionMaxAge())

	cfg.Retention.MaxAge = "24h"
	assert.Equal(t, 24*time.Hour, cfg.RetentionMaxAge())
}
