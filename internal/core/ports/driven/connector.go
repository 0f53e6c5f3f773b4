package driven

import (
	"context"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// Connector pulls items from an external source.
// Each source type (box, github, localdir, ...) implements this interface.
type Connector interface {
	// Type returns the source type identifier.
	Type() string

	// Capabilities returns what this connector supports.
	Capabilities() ConnectorCapabilities

	// Validate checks if the connector is properly configured and
	// authenticated. For API connectors this makes a lightweight test
	// call; for localdir it checks the path exists and is readable.
	// Returns nil if ready to sync, an error describing the problem
	// otherwise.
	Validate(ctx context.Context) error

	// LoadAll yields every item at the source. The sequence is lazy,
	// finite and restartable from scratch. A transport error is sent on
	// the error channel and aborts the remaining sequence; items already
	// yielded stand.
	LoadAll(ctx context.Context) (<-chan domain.Item, <-chan error)

	// PollSince yields only items modified after the cursor.
	// Only available if SupportsIncremental is true.
	PollSince(ctx context.Context, cursor domain.Cursor) (<-chan domain.Item, <-chan error)

	// ListLiveIDs returns the set of source-native item IDs currently
	// present upstream, without fetching content. Only available if
	// SupportsLiveListing is true. Used exclusively by pruning; any
	// error means the caller must not prune this cycle.
	ListLiveIDs(ctx context.Context) (map[string]struct{}, error)

	// Watch listens for real-time changes.
	// Only available if SupportsWatch is true.
	Watch(ctx context.Context) (<-chan domain.Item, error)

	// Close releases resources.
	Close() error
}

// ConnectorCapabilities describes what a connector supports.
type ConnectorCapabilities struct {
	// SupportsIncremental indicates PollSince is implemented.
	SupportsIncremental bool

	// SupportsLiveListing indicates ListLiveIDs is implemented and cheap
	// relative to LoadAll. Without it the pair is never pruned.
	SupportsLiveListing bool

	// SupportsWatch indicates the connector can push real-time events.
	SupportsWatch bool

	// RequiresAuth indicates the connector needs a credential.
	// False for local connectors like localdir.
	RequiresAuth bool

	// SupportsValidation indicates Validate() performs a real check.
	SupportsValidation bool

	// SupportsRateLimiting indicates the connector throttles its own
	// API calls. Informational.
	SupportsRateLimiting bool

	// SupportsPagination indicates the connector handles paginated APIs
	// internally. Informational.
	SupportsPagination bool
}
