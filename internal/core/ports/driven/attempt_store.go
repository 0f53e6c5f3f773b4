package driven

import (
	"context"
	"time"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// AttemptStore records index attempt lifecycles and enforces the per-pair
// claim. The claim is a single atomic conditional transition at the
// storage layer, not an in-process lock: orchestrators in separate
// processes still serialise correctly.
type AttemptStore interface {
	// Claim creates an IN_PROGRESS attempt for the pair if and only if
	// no other attempt for the same pair is currently IN_PROGRESS.
	// Sync and prune attempts contend for the same claim. The loser gets
	// ErrSyncInProgress and no state changes.
	Claim(ctx context.Context, ccpairID string, kind domain.AttemptKind) (*domain.IndexAttempt, error)

	// Complete transitions the attempt to SUCCESS with final counts.
	// No-op with an error if the attempt is already terminal.
	Complete(ctx context.Context, attemptID string, newDocs, removedDocs, skipped int) error

	// Fail transitions the attempt to FAILED with an error detail.
	// No-op with an error if the attempt is already terminal.
	Fail(ctx context.Context, attemptID, errorMsg string) error

	// Get retrieves an attempt by ID.
	Get(ctx context.Context, attemptID string) (*domain.IndexAttempt, error)

	// ListForPair returns recent attempts for a pair, newest first.
	ListForPair(ctx context.Context, ccpairID string, limit int) ([]domain.IndexAttempt, error)

	// DeleteFailedBefore removes FAILED attempts last updated before the
	// cutoff. Used by periodic history cleanup.
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
