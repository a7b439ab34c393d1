package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tissdb/tissdb/internal/wal"
)

func TestDefaultConfigIsUsable(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "default", cfg.Sinew.Database)
	assert.Greater(t, cfg.Sinew.MaxPoolSize, 0)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
data_dir: /var/lib/tissdb
sinew:
  listen_addr: "0.0.0.0:9999"
  database: "primary"
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tissdb", cfg.DataDir)
	assert.Equal(t, "0.0.0.0:9999", cfg.Sinew.ListenAddr)
	assert.Equal(t, "primary", cfg.Sinew.Database)
	// fields the file omits keep their default
	assert.Equal(t, Default().Storage.CompactionTrigger, cfg.Storage.CompactionTrigger)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestWALOptionsSyncPolicy(t *testing.T) {
	cfg := Default()
	cfg.Storage.WALSyncPolicy = "batch"
	opts := cfg.WALOptions("/tmp/data/db1")
	assert.Equal(t, "/tmp/data/db1", opts.DirPath)
	assert.Equal(t, wal.SyncBatch, opts.SyncPolicy)
}
