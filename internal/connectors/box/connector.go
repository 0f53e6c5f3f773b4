package box

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// syncFields are the entry attributes needed to build items.
const syncFields = "type,id,name,size,sha1,modified_at"

// pruneFields are the minimal attributes needed for live listings.
const pruneFields = "type,id,name"

// Connector fetches files from a Box folder tree.
type Connector struct {
	config *Config
	client *Client
	mu     sync.Mutex
	closed bool
}

// New creates a new Box connector.
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
	return "box"
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsIncremental:  true,
		SupportsLiveListing:  true,
		SupportsWatch:        false, // Box webhooks need a public endpoint
		RequiresAuth:         true,
		SupportsValidation:   true,
		SupportsRateLimiting: true,
		SupportsPagination:   true,
	}
}

// Validate checks the credential by fetching the current user.
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

	if _, err := c.client.CurrentUser(ctx); err != nil {
		if IsUnauthorized(err) {
			return domain.ErrAuthInvalid
		}
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}
	return nil
}

// LoadAll walks the folder tree and emits every matching file.
func (c *Connector) LoadAll(ctx context.Context) (<-chan domain.Item, <-chan error) {
	return c.stream(ctx, time.Time{})
}

// PollSince emits only files modified after the cursor. Box listings
// always return full metadata, so the walk is the same as a full load
// with a client-side filter.
func (c *Connector) PollSince(ctx context.Context, cursor domain.Cursor) (<-chan domain.Item, <-chan error) {
	return c.stream(ctx, cursor.Since)
}

// stream walks folders breadth-first and emits files modified after
// since. A zero since emits everything.
func (c *Connector) stream(ctx context.Context, since time.Time) (<-chan domain.Item, <-chan error) {
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

		err := c.walkFolders(ctx, syncFields, func(folderPath string, entry Entry) error {
			if !c.config.Matches(entry.Name) {
				return nil
			}

			item, err := entryToItem(folderPath, entry)
			if err != nil {
				return err
			}
			if !since.IsZero() && !item.ModifiedAt.After(since) {
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case itemsChan <- item:
				return nil
			}
		})
		if err != nil && ctx.Err() == nil {
			errsChan <- err
		}
	}()

	return itemsChan, errsChan
}

// ListLiveIDs walks the tree collecting file IDs without full metadata.
func (c *Connector) ListLiveIDs(ctx context.Context) (map[string]struct{}, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrConnectorClosed
	}
	c.mu.Unlock()

	live := make(map[string]struct{})
	err := c.walkFolders(ctx, pruneFields, func(_ string, entry Entry) error {
		if c.config.Matches(entry.Name) {
			live[entry.ID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return live, nil
}

// Watch is not supported for Box.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.Item, error) {
	return nil, fmt.Errorf("%w: box does not support watch", domain.ErrUnsupportedType)
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// folder is a pending tree node during the walk.
type folder struct {
	id   string
	path string
}

// walkFolders traverses the configured folder tree breadth-first,
// calling fn for every file entry. Folders found along the way are
// queued for listing.
func (c *Connector) walkFolders(ctx context.Context, fields string, fn func(folderPath string, entry Entry) error) error {
	queue := []folder{{id: c.config.FolderID, path: ""}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		offset := 0
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			page, err := c.client.ListFolderItems(ctx, current.id, offset, fields)
			if err != nil {
				return fmt.Errorf("list folder %s: %w", current.id, err)
			}

			for _, entry := range page.Entries {
				switch entry.Type {
				case "folder":
					queue = append(queue, folder{
						id:   entry.ID,
						path: path.Join(current.path, entry.Name),
					})
				case "file":
					if err := fn(current.path, entry); err != nil {
						return err
					}
				}
			}

			offset += len(page.Entries)
			if offset >= page.TotalCount || len(page.Entries) == 0 {
				break
			}
		}
	}
	return nil
}

// entryToItem converts a Box file entry to a sync item.
func entryToItem(folderPath string, entry Entry) (domain.Item, error) {
	var modified time.Time
	if entry.ModifiedAt != "" {
		parsed, err := time.Parse(time.RFC3339, entry.ModifiedAt)
		if err != nil {
			return domain.Item{}, fmt.Errorf("parse modified_at for file %s: %w", entry.ID, err)
		}
		modified = parsed
	}

	return domain.Item{
		SourceID:   entry.ID,
		Name:       entry.Name,
		Path:       path.Join(folderPath, entry.Name),
		Link:       "https://app.box.com/file/" + entry.ID,
		SizeBytes:  entry.Size,
		ModifiedAt: modified,
		Checksum:   entry.SHA1,
		Metadata: map[string]any{
			"path": path.Join(folderPath, entry.Name),
		},
	}, nil
}
