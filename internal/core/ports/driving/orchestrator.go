package driving

import (
	"context"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// SyncResult summarises one completed sync or prune attempt.
type SyncResult struct {
	// AttemptID identifies the index attempt that ran.
	AttemptID string

	// NewDocsIndexed counts documents upserted during the attempt.
	NewDocsIndexed int

	// DocsRemoved counts documents dissociated during the attempt.
	DocsRemoved int

	// ItemsSkipped counts malformed items skipped without aborting.
	ItemsSkipped int
}

// SyncOrchestrator drives indexing and pruning cycles for
// connector-credential pairs. Both operations are idempotent at the
// request level: a trigger while an attempt is already running returns
// domain.ErrSyncInProgress without creating new state.
type SyncOrchestrator interface {
	// Sync runs one indexing attempt for the pair end to end:
	// claim, token, fetch, upsert, index, finalize.
	Sync(ctx context.Context, ccpairID string) (*SyncResult, error)

	// Prune reconciles the pair's stored documents against the source's
	// live ID set, dissociating documents no longer present upstream.
	// Skips destructively doing anything when the live set cannot be
	// fetched in full.
	Prune(ctx context.Context, ccpairID string) (*SyncResult, error)

	// LastAttempt returns the most recent attempt for the pair, or
	// domain.ErrNotFound when the pair has never run.
	LastAttempt(ctx context.Context, ccpairID string) (*domain.IndexAttempt, error)
}
