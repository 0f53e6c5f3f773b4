package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
	"github.com/quarry-search/quarry/internal/core/ports/driving"
	"github.com/quarry-search/quarry/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// DefaultFailureThreshold is the consecutive-failure count at which a
// pair's status flips to FAILED and scheduling stops until an
// administrator resumes it.
const DefaultFailureThreshold = 3

// SyncOrchestrator coordinates indexing and pruning cycles for
// connector-credential pairs. All cross-process exclusion happens at the
// attempt store's claim; the orchestrator itself holds no locks.
type SyncOrchestrator struct {
	connectors  driven.ConnectorStore
	pairs       driven.CCPairStore
	documents   driven.DocumentStore
	attempts    driven.AttemptStore
	factory     driven.ConnectorFactory
	searchIndex driven.SearchIndex

	failureThreshold int
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	connectors driven.ConnectorStore,
	pairs driven.CCPairStore,
	documents driven.DocumentStore,
	attempts driven.AttemptStore,
	factory driven.ConnectorFactory,
	searchIndex driven.SearchIndex,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		connectors:       connectors,
		pairs:            pairs,
		documents:        documents,
		attempts:         attempts,
		factory:          factory,
		searchIndex:      searchIndex,
		failureThreshold: DefaultFailureThreshold,
	}
}

// SetFailureThreshold overrides the consecutive-failure threshold.
func (o *SyncOrchestrator) SetFailureThreshold(n int) {
	if n > 0 {
		o.failureThreshold = n
	}
}

// Sync runs one indexing attempt for the pair.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *SyncOrchestrator) Sync(ctx context.Context, ccpairID string) (*driving.SyncResult, error) {
	pair, connector, err := o.loadPair(ctx, ccpairID)
	if err != nil {
		return nil, err
	}

	// Resolving the connector happens before the claim: an unknown
	// source type must not burn an attempt.
	conn, err := o.factory.Create(ctx, *connector, pair.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	defer conn.Close()

	attempt, err := o.attempts.Claim(ctx, pair.ID, domain.AttemptSync)
	if err != nil {
		return nil, err
	}
	logger.Info("Starting sync for pair %s (attempt %s)", pair.ID, attempt.ID)

	var newDocs, skipped int
	var runErr error
	defer func() {
		o.finalize(ctx, pair, attempt, newDocs, 0, skipped, runErr)
	}()

	caps := conn.Capabilities()
	if caps.SupportsValidation {
		if err := conn.Validate(ctx); err != nil {
			runErr = fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
			return nil, runErr
		}
	}

	// Items modified while this sync runs are picked up next cycle.
	syncStart := time.Now().UTC()

	var items <-chan domain.Item
	var errs <-chan error
	if caps.SupportsIncremental && !pair.LastSuccessfulIndexTime.IsZero() {
		logger.Debug("Incremental sync for pair %s since %s", pair.ID, pair.LastSuccessfulIndexTime)
		items, errs = conn.PollSince(ctx, domain.Cursor{Since: pair.LastSuccessfulIndexTime})
	} else {
		logger.Debug("Full sync for pair %s", pair.ID)
		items, errs = conn.LoadAll(ctx)
	}

	newDocs, skipped, runErr = o.drainItems(ctx, connector, pair.ID, items, errs)
	if runErr != nil {
		return nil, runErr
	}

	// Success path. The finalizer advances the cursor to syncStart.
	attempt.TimeStarted = syncStart
	logger.Info("Sync complete for pair %s: %d indexed, %d skipped", pair.ID, newDocs, skipped)
	return &driving.SyncResult{
		AttemptID:      attempt.ID,
		NewDocsIndexed: newDocs,
		ItemsSkipped:   skipped,
	}, nil
}

// drainItems consumes the connector's item stream, upserting each item
// and forwarding changed documents to the search index. Both channels
// are drained to closure: connectors send a trailing error into the
// buffered errs channel right before closing, and that error must fail
// the attempt even when the items channel closes in the same instant.
func (o *SyncOrchestrator) drainItems(
	ctx context.Context,
	connector *domain.Connector,
	ccpairID string,
	items <-chan domain.Item,
	errs <-chan error,
) (newDocs, skipped int, err error) {
	for items != nil || errs != nil {
		select {
		case <-ctx.Done():
			return newDocs, skipped, ctx.Err()

		case connErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if connErr != nil {
				return newDocs, skipped, fmt.Errorf("connector error: %w", connErr)
			}

		case item, ok := <-items:
			if !ok {
				items = nil
				continue
			}

			if item.SourceID == "" {
				skipped++
				logger.Debug("Skipping item with empty source ID (name %q)", item.Name)
				continue
			}
			if connector.IndexingStart != nil && !item.ModifiedAt.IsZero() && item.ModifiedAt.Before(*connector.IndexingStart) {
				skipped++
				logger.Debug("Skipping %s: modified before indexing start", item.SourceID)
				continue
			}

			doc := item.Document(connector.Source, time.Now().UTC())
			changed, upsertErr := o.documents.Upsert(ctx, doc, ccpairID)
			if upsertErr != nil {
				return newDocs, skipped, fmt.Errorf("upsert document %s: %w", doc.ID, upsertErr)
			}
			if !changed {
				continue
			}
			newDocs++

			// Index failures never roll back the repository write; the
			// repository is the source of truth and the index catches up
			// on the next cycle.
			if idxErr := o.searchIndex.UpsertDocument(ctx, doc); idxErr != nil {
				logger.Warn("Search index upsert failed for %s: %v", doc.ID, idxErr)
			}
		}
	}
	return newDocs, skipped, nil
}

// Prune reconciles the pair's stored documents against the live upstream
// ID set. Nothing is deleted unless the live listing succeeded in full.
func (o *SyncOrchestrator) Prune(ctx context.Context, ccpairID string) (*driving.SyncResult, error) {
	pair, connector, err := o.loadPair(ctx, ccpairID)
	if err != nil {
		return nil, err
	}

	conn, err := o.factory.Create(ctx, *connector, pair.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	defer conn.Close()

	if !conn.Capabilities().SupportsLiveListing {
		logger.Debug("Pair %s source %s does not support live listing, skipping prune", pair.ID, connector.Source)
		return &driving.SyncResult{}, nil
	}

	attempt, err := o.attempts.Claim(ctx, pair.ID, domain.AttemptPrune)
	if err != nil {
		return nil, err
	}
	logger.Info("Starting prune for pair %s (attempt %s)", pair.ID, attempt.ID)

	var removed int
	var runErr error
	defer func() {
		o.finalize(ctx, pair, attempt, 0, removed, 0, runErr)
	}()

	live, err := conn.ListLiveIDs(ctx)
	if err != nil {
		runErr = fmt.Errorf("list live ids: %w", err)
		return nil, runErr
	}

	stored, err := o.documents.ListDocumentIDs(ctx, pair.ID)
	if err != nil {
		runErr = fmt.Errorf("list stored documents: %w", err)
		return nil, runErr
	}

	prefix := connector.Source + ":"
	for docID := range stored {
		if ctx.Err() != nil {
			runErr = ctx.Err()
			return nil, runErr
		}
		if _, ok := live[strings.TrimPrefix(docID, prefix)]; ok {
			continue
		}

		deleted, err := o.documents.Dissociate(ctx, docID, pair.ID)
		if err != nil {
			runErr = fmt.Errorf("dissociate %s: %w", docID, err)
			return nil, runErr
		}
		removed++
		if deleted {
			if idxErr := o.searchIndex.DeleteDocument(ctx, docID); idxErr != nil {
				logger.Warn("Search index delete failed for %s: %v", docID, idxErr)
			}
		}
	}

	logger.Info("Prune complete for pair %s: %d removed", pair.ID, removed)
	return &driving.SyncResult{
		AttemptID:   attempt.ID,
		DocsRemoved: removed,
	}, nil
}

// LastAttempt returns the most recent attempt for the pair.
func (o *SyncOrchestrator) LastAttempt(ctx context.Context, ccpairID string) (*domain.IndexAttempt, error) {
	attempts, err := o.attempts.ListForPair(ctx, ccpairID, 1)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, fmt.Errorf("%w: no attempts for pair %s", domain.ErrNotFound, ccpairID)
	}
	return &attempts[0], nil
}

// loadPair fetches the pair and its connector and checks schedulability.
func (o *SyncOrchestrator) loadPair(ctx context.Context, ccpairID string) (*domain.CCPair, *domain.Connector, error) {
	pair, err := o.pairs.Get(ctx, ccpairID)
	if err != nil {
		return nil, nil, fmt.Errorf("get pair: %w", err)
	}
	connector, err := o.connectors.Get(ctx, pair.ConnectorID)
	if err != nil {
		return nil, nil, fmt.Errorf("get connector: %w", err)
	}
	if !pair.Schedulable(connector) {
		return nil, nil, fmt.Errorf("%w: pair %s", domain.ErrCCPairDisabled, pair.ID)
	}
	return pair, connector, nil
}

// finalize transitions the attempt to its terminal state and updates the
// pair's health counters. Runs from a defer so a cancelled or panicking
// run still leaves a terminal attempt; it uses a detached context so
// cancellation of the sync does not block recording the outcome.
func (o *SyncOrchestrator) finalize(
	ctx context.Context,
	pair *domain.CCPair,
	attempt *domain.IndexAttempt,
	newDocs, removed, skipped int,
	runErr error,
) {
	ctx = context.WithoutCancel(ctx)

	// Re-read the pair so a status change made while the run was in
	// flight (an admin pause, for instance) is not overwritten by the
	// copy loaded at claim time.
	if fresh, err := o.pairs.Get(ctx, pair.ID); err == nil {
		pair = fresh
	} else {
		logger.Warn("Failed to reload pair %s, finalizing from claimed state: %v", pair.ID, err)
	}

	if runErr == nil {
		if err := o.attempts.Complete(ctx, attempt.ID, newDocs, removed, skipped); err != nil {
			logger.Error("Failed to complete attempt %s: %v", attempt.ID, err)
		}
		pair.LastAttemptStatus = domain.AttemptSuccess
		pair.FailureStreak = 0
		if attempt.Kind == domain.AttemptSync {
			pair.LastSuccessfulIndexTime = attempt.TimeStarted
			pair.TotalDocsIndexed += newDocs
		}
	} else {
		if err := o.attempts.Fail(ctx, attempt.ID, runErr.Error()); err != nil {
			logger.Error("Failed to fail attempt %s: %v", attempt.ID, err)
		}
		pair.LastAttemptStatus = domain.AttemptFailed
		pair.FailureStreak++
		if pair.FailureStreak >= o.failureThreshold && pair.Status == domain.CCPairActive {
			logger.Warn("Pair %s hit %d consecutive failures, marking FAILED", pair.ID, pair.FailureStreak)
			pair.Status = domain.CCPairFailed
		}
	}

	pair.UpdatedAt = time.Now().UTC()
	if err := o.pairs.Save(ctx, *pair); err != nil {
		logger.Error("Failed to save pair %s: %v", pair.ID, err)
	}
}
