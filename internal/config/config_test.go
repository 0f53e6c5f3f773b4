package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.IndexingCheckInterval)
	assert.Empty(t, cfg.Elasticsearch.URL)
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/var/lib/quarry"
verbose = true

[elasticsearch]
url = "http://localhost:9200"
index = "docs"

[scheduler]
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/quarry", cfg.DataDir)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "http://localhost:9200", cfg.Elasticsearch.URL)
	assert.Equal(t, "docs", cfg.Elasticsearch.Index)
	assert.False(t, cfg.Scheduler.Enabled)
	// Unset durations keep their defaults.
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.PruneCheckInterval)
}

func TestLoadRejectsInvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir = ["), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.DataDir = "/tmp/quarry"
	cfg.Elasticsearch.URL = "http://es:9200"

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
