package box

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// RootFolderID is the Box ID of the account root folder.
const RootFolderID = "0"

// ErrConfigInvalidFolder indicates a malformed folder ID.
var ErrConfigInvalidFolder = errors.New("box: folder_id must be numeric")

// Config holds the parsed configuration for a Box connector.
type Config struct {
	// FolderID is the Box folder to index from. "0" is the root.
	FolderID string

	// Patterns are glob patterns matched against file names.
	// Empty means all files.
	Patterns []string
}

// ParseConfig parses a connector's config map into a Config struct.
// All keys are optional; the default indexes the whole account.
func ParseConfig(connector domain.Connector) (*Config, error) {
	cfg := &Config{FolderID: RootFolderID}

	if folderID, ok := connector.Config["folder_id"]; ok && folderID != "" {
		folderID = strings.TrimSpace(folderID)
		for _, r := range folderID {
			if r < '0' || r > '9' {
				return nil, ErrConfigInvalidFolder
			}
		}
		cfg.FolderID = folderID
	}

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
