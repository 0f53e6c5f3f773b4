package github

import (
	"fmt"
	"strings"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// ContentType represents the type of content to index.
type ContentType string

const (
	ContentIssues ContentType = "issues"
	ContentPRs    ContentType = "prs"
)

// AllContentTypes returns all supported content types.
func AllContentTypes() []ContentType {
	return []ContentType{ContentIssues, ContentPRs}
}

// Repo identifies a single repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Config holds the parsed configuration for a GitHub connector.
type Config struct {
	// Repos are the repositories to index.
	Repos []Repo

	// ContentTypes specifies what content to index.
	// Default: issues and pull requests.
	ContentTypes []ContentType
}

// ParseConfig parses a connector's config map into a Config struct.
// The "repos" key is required; "content_types" is optional.
func ParseConfig(connector domain.Connector) (*Config, error) {
	cfg := &Config{
		ContentTypes: AllContentTypes(),
	}

	repos, ok := connector.Config["repos"]
	if !ok || strings.TrimSpace(repos) == "" {
		return nil, ErrConfigMissingRepos
	}
	parsed, err := parseRepos(repos)
	if err != nil {
		return nil, err
	}
	cfg.Repos = parsed

	if contentTypes, ok := connector.Config["content_types"]; ok && contentTypes != "" {
		types, err := parseContentTypes(contentTypes)
		if err != nil {
			return nil, err
		}
		cfg.ContentTypes = types
	}

	return cfg, nil
}

// parseRepos parses a comma-separated list of owner/name repositories.
func parseRepos(s string) ([]Repo, error) {
	parts := strings.Split(s, ",")
	repos := make([]Repo, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		owner, name, found := strings.Cut(part, "/")
		if !found || owner == "" || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrConfigInvalidRepo, part)
		}
		repos = append(repos, Repo{Owner: owner, Name: name})
	}
	if len(repos) == 0 {
		return nil, ErrConfigMissingRepos
	}
	return repos, nil
}

// parseContentTypes parses a comma-separated content types string.
func parseContentTypes(s string) ([]ContentType, error) {
	valid := map[string]ContentType{
		"issues": ContentIssues,
		"prs":    ContentPRs,
	}

	parts := strings.Split(s, ",")
	types := make([]ContentType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		ct, ok := valid[part]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrConfigInvalidContentType, part)
		}
		types = append(types, ct)
	}

	if len(types) == 0 {
		return AllContentTypes(), nil
	}
	return types, nil
}

// HasContentType checks if a content type is enabled.
func (c *Config) HasContentType(ct ContentType) bool {
	for _, t := range c.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}
