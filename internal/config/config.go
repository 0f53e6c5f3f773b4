// Package config loads quarry's TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration.
type Config struct {
	// DataDir is where the metadata database lives.
	// Defaults to ~/.quarry/data.
	DataDir string `toml:"data_dir"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`

	// FailureThreshold is how many consecutive failed attempts park a
	// pair in FAILED. Zero means the built-in default.
	FailureThreshold int `toml:"failure_threshold"`

	Elasticsearch Elasticsearch `toml:"elasticsearch"`
	Scheduler     Scheduler     `toml:"scheduler"`
}

// Elasticsearch configures the search index backend. An empty URL
// disables indexing to Elasticsearch; documents are still tracked in
// the metadata store.
type Elasticsearch struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Index    string `toml:"index"`
}

// Scheduler configures the background loop.
type Scheduler struct {
	Enabled bool `toml:"enabled"`

	// IndexingCheckInterval is how often due pairs are looked for.
	IndexingCheckInterval time.Duration `toml:"indexing_check_interval"`

	// PruneCheckInterval is how often prune-due pairs are looked for.
	PruneCheckInterval time.Duration `toml:"prune_check_interval"`

	// CleanupInterval is how often failed-attempt history is swept.
	CleanupInterval time.Duration `toml:"cleanup_interval"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Scheduler: Scheduler{
			Enabled:               true,
			IndexingCheckInterval: 2 * time.Minute,
			PruneCheckInterval:    5 * time.Minute,
			CleanupInterval:       time.Hour,
		},
	}
}

// DefaultPath returns ~/.quarry/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".quarry", "config.toml"), nil
}

// Load reads the config file at path, falling back to defaults for a
// missing file. An empty path means the default location.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating the directory if needed.
func Save(cfg Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
