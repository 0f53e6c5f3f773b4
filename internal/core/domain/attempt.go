package domain

import "time"

// AttemptStatus is the lifecycle state of an index attempt.
// Transitions: NOT_STARTED -> IN_PROGRESS -> {SUCCESS, FAILED}.
// A terminal attempt is never mutated again.
type AttemptStatus string

const (
	// AttemptNotStarted is the initial state before a claim.
	AttemptNotStarted AttemptStatus = "NOT_STARTED"
	// AttemptInProgress means the attempt holds the pair's claim.
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	// AttemptSuccess is the successful terminal state.
	AttemptSuccess AttemptStatus = "SUCCESS"
	// AttemptFailed is the failed terminal state.
	AttemptFailed AttemptStatus = "FAILED"
)

// Terminal reports whether the status is SUCCESS or FAILED.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptSuccess || s == AttemptFailed
}

// AttemptKind distinguishes what an attempt does. Sync and prune attempts
// share the per-pair claim so they never run concurrently.
type AttemptKind string

const (
	// AttemptSync indexes new and updated documents.
	AttemptSync AttemptKind = "sync"
	// AttemptPrune reconciles stored documents against the live ID set.
	AttemptPrune AttemptKind = "prune"
)

// IndexAttempt records one orchestration run for a connector-credential
// pair. Rows are append-only history once they reach a terminal state.
type IndexAttempt struct {
	// ID is the unique identifier for the attempt.
	ID string

	// CCPairID references the pair being synced or pruned.
	CCPairID string

	// Kind is sync or prune.
	Kind AttemptKind

	// Status is the lifecycle state.
	Status AttemptStatus

	// ErrorMsg holds the failure detail when Status is FAILED.
	ErrorMsg string

	// NewDocsIndexed counts documents upserted by this attempt.
	NewDocsIndexed int

	// DocsRemoved counts documents dissociated by this attempt.
	DocsRemoved int

	// ItemsSkipped counts malformed items skipped without aborting.
	ItemsSkipped int

	// TimeStarted is when the claim succeeded.
	TimeStarted time.Time

	// TimeUpdated is the last transition time.
	TimeUpdated time.Time
}
