package localdir

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// Localdir-specific errors.
var (
	// ErrConfigMissingPath indicates no directory path was configured.
	ErrConfigMissingPath = errors.New("localdir: no path configured")
)

// Config holds the parsed configuration for a localdir connector.
type Config struct {
	// Path is the root directory to index.
	Path string

	// Patterns are glob patterns matched against file names.
	// Empty means all files.
	Patterns []string
}

// ParseConfig parses a connector's config map into a Config struct.
// The "path" key is required; "patterns" is optional.
func ParseConfig(connector domain.Connector) (*Config, error) {
	path, ok := connector.Config["path"]
	if !ok || strings.TrimSpace(path) == "" {
		return nil, ErrConfigMissingPath
	}

	cfg := &Config{Path: strings.TrimSpace(path)}

	if patterns, ok := connector.Config["patterns"]; ok && patterns != "" {
		for _, part := range strings.Split(patterns, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				cfg.Patterns = append(cfg.Patterns, part)
			}
		}
	}

	return cfg, nil
}

// Matches reports whether a file name passes the configured patterns.
func (c *Config) Matches(name string) bool {
	if len(c.Patterns) == 0 {
		return true
	}
	for _, pattern := range c.Patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
