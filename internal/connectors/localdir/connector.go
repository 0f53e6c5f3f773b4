package localdir

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector indexes files from a local directory tree.
type Connector struct {
	config *Config
	mu     sync.Mutex
	closed bool
}

// New creates a new localdir connector.
func New(cfg *Config) *Connector {
	return &Connector{config: cfg}
}

// NewFromConnector builds a connector from stored configuration.
// The token provider is ignored; localdir needs no auth.
func NewFromConnector(connector domain.Connector, _ driven.TokenProvider) (driven.Connector, error) {
	cfg, err := ParseConfig(connector)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

// Type returns the source type identifier.
func (c *Connector) Type() string {
	return "localdir"
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsIncremental: true,
		SupportsLiveListing: true,
		SupportsWatch:       true,
		RequiresAuth:        false,
		SupportsValidation:  true,
	}
}

// Validate checks that the configured path exists and is a readable
// directory.
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

	info, err := os.Stat(c.config.Path)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", domain.ErrConnectorValidation, c.config.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrConnectorValidation, c.config.Path)
	}
	return nil
}

// LoadAll walks the directory tree and emits every matching file.
func (c *Connector) LoadAll(ctx context.Context) (<-chan domain.Item, <-chan error) {
	return c.walk(ctx, time.Time{})
}

// PollSince emits only files modified after the cursor.
func (c *Connector) PollSince(ctx context.Context, cursor domain.Cursor) (<-chan domain.Item, <-chan error) {
	return c.walk(ctx, cursor.Since)
}

// walk traverses the tree and emits files modified after since.
// A zero since emits everything.
func (c *Connector) walk(ctx context.Context, since time.Time) (<-chan domain.Item, <-chan error) {
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

		err := filepath.WalkDir(c.config.Path, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if d.IsDir() || !c.config.Matches(d.Name()) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}
			if !since.IsZero() && !info.ModTime().After(since) {
				return nil
			}

			item, err := c.fileToItem(path, info)
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case itemsChan <- item:
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errsChan <- fmt.Errorf("walk %s: %w", c.config.Path, err)
		}
	}()

	return itemsChan, errsChan
}

// ListLiveIDs walks the tree collecting relative paths without reading
// content.
func (c *Connector) ListLiveIDs(ctx context.Context) (map[string]struct{}, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrConnectorClosed
	}
	c.mu.Unlock()

	live := make(map[string]struct{})
	err := filepath.WalkDir(c.config.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() || !c.config.Matches(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(c.config.Path, path)
		if err != nil {
			return err
		}
		live[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", c.config.Path, err)
	}
	return live, nil
}

// Watch emits an item whenever a matching file is created or written
// anywhere under the root. New subdirectories are added to the watch
// as they appear. Deletions are not emitted; pruning handles those.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.Item, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrConnectorClosed
	}
	c.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the root and all existing subdirectories.
	err = filepath.WalkDir(c.config.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.config.Path, err)
	}

	itemsChan := make(chan domain.Item)

	go func() {
		defer close(itemsChan)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
					continue
				}
				info, err := os.Stat(event.Name)
				if err != nil {
					continue
				}
				if info.IsDir() {
					if event.Op.Has(fsnotify.Create) {
						watcher.Add(event.Name)
					}
					continue
				}
				if !c.config.Matches(filepath.Base(event.Name)) {
					continue
				}
				item, err := c.fileToItem(event.Name, info)
				if err != nil {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case itemsChan <- item:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return itemsChan, nil
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// fileToItem converts a file to a sync item. The source-native ID is
// the slash-separated path relative to the root.
func (c *Connector) fileToItem(path string, info fs.FileInfo) (domain.Item, error) {
	rel, err := filepath.Rel(c.config.Path, path)
	if err != nil {
		return domain.Item{}, err
	}
	rel = filepath.ToSlash(rel)

	return domain.Item{
		SourceID:   rel,
		Name:       info.Name(),
		Path:       rel,
		Link:       "file://" + filepath.ToSlash(path),
		SizeBytes:  info.Size(),
		MIMEType:   mime.TypeByExtension(filepath.Ext(path)),
		ModifiedAt: info.ModTime(),
		Metadata: map[string]any{
			"root": c.config.Path,
		},
	}, nil
}
