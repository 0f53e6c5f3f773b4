package github

import (
	"context"
	"fmt"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector fetches issues and pull requests from GitHub repositories.
type Connector struct {
	config *Config
	client *Client
	mu     sync.Mutex
	closed bool
}

// New creates a new GitHub connector.
func New(cfg *Config, tokenProvider driven.TokenProvider) *Connector {
	return &Connector{
		config: cfg,
		client: NewClient(tokenProvider),
	}
}

// NewFromConnector builds a connector from stored configuration.
func NewFromConnector(connector domain.Connector, tokenProvider driven.TokenProvider) (driven.Connector, error) {
	cfg, err := ParseConfig(connector)
	if err != nil {
		return nil, err
	}
	return New(cfg, tokenProvider), nil
}

// Type returns the source type identifier.
func (c *Connector) Type() string {
	return "github"
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsIncremental:  true,
		SupportsLiveListing:  true,
		SupportsWatch:        false, // No webhooks without a public endpoint
		RequiresAuth:         true,
		SupportsValidation:   true,
		SupportsRateLimiting: true,
		SupportsPagination:   true,
	}
}

// Validate checks if the GitHub connector is properly configured.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := c.client.ValidateCredentials(ctx); err != nil {
		if IsUnauthorized(err) {
			return domain.ErrAuthInvalid
		}
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}

	return nil
}

// LoadAll fetches every issue and pull request from the configured
// repositories.
func (c *Connector) LoadAll(ctx context.Context) (<-chan domain.Item, <-chan error) {
	return c.stream(ctx, nil)
}

// PollSince fetches only issues and pull requests updated after the
// cursor.
func (c *Connector) PollSince(ctx context.Context, cursor domain.Cursor) (<-chan domain.Item, <-chan error) {
	since := cursor.Since
	return c.stream(ctx, &since)
}

// stream lists issues for each configured repository and emits them as
// items. A nil since means a full load.
func (c *Connector) stream(ctx context.Context, since *time.Time) (<-chan domain.Item, <-chan error) {
	itemsChan := make(chan domain.Item)
	errsChan := make(chan error, 1)

	go func() {
		defer close(itemsChan)
		defer close(errsChan)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			errsChan <- domain.ErrConnectorClosed
			return
		}
		c.mu.Unlock()

		for _, repo := range c.config.Repos {
			opts := &gh.IssueListByRepoOptions{
				State:       "all",
				ListOptions: gh.ListOptions{PerPage: 100},
			}
			if since != nil {
				opts.Since = *since
			}

			issues, err := c.client.ListIssues(ctx, repo.Owner, repo.Name, opts)
			if err != nil {
				errsChan <- fmt.Errorf("list issues for %s: %w", repo, err)
				return
			}

			for _, issue := range issues {
				if !c.wants(issue) {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case itemsChan <- issueToItem(repo, issue):
				}
			}
		}
	}()

	return itemsChan, errsChan
}

// ListLiveIDs enumerates every issue and pull request ID currently
// present in the configured repositories.
func (c *Connector) ListLiveIDs(ctx context.Context) (map[string]struct{}, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrConnectorClosed
	}
	c.mu.Unlock()

	live := make(map[string]struct{})
	for _, repo := range c.config.Repos {
		opts := &gh.IssueListByRepoOptions{
			State:       "all",
			ListOptions: gh.ListOptions{PerPage: 100},
		}
		issues, err := c.client.ListIssues(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("list issues for %s: %w", repo, err)
		}
		for _, issue := range issues {
			if !c.wants(issue) {
				continue
			}
			live[issueID(repo, issue)] = struct{}{}
		}
	}
	return live, nil
}

// Watch is not supported for GitHub.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.Item, error) {
	return nil, fmt.Errorf("%w: github does not support watch", domain.ErrUnsupportedType)
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// wants reports whether the issue matches the configured content types.
func (c *Connector) wants(issue *gh.Issue) bool {
	if issue.IsPullRequest() {
		return c.config.HasContentType(ContentPRs)
	}
	return c.config.HasContentType(ContentIssues)
}

// issueID builds the stable source-native ID for an issue.
func issueID(repo Repo, issue *gh.Issue) string {
	return fmt.Sprintf("%s#%d", repo, issue.GetNumber())
}

// issueToItem converts a GitHub issue to a sync item.
func issueToItem(repo Repo, issue *gh.Issue) domain.Item {
	kind := "issue"
	if issue.IsPullRequest() {
		kind = "pr"
	}
	return domain.Item{
		SourceID:   issueID(repo, issue),
		Name:       issue.GetTitle(),
		Path:       repo.String(),
		Link:       issue.GetHTMLURL(),
		MIMEType:   "text/markdown",
		ModifiedAt: issue.GetUpdatedAt().Time,
		Metadata: map[string]any{
			"repo":   repo.String(),
			"number": issue.GetNumber(),
			"state":  issue.GetState(),
			"kind":   kind,
			"author": issue.GetUser().GetLogin(),
		},
	}
}
