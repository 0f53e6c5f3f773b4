package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// attemptStore implements driven.AttemptStore.
type attemptStore struct {
	store *Store
}

var _ driven.AttemptStore = (*attemptStore)(nil)

// Claim inserts an IN_PROGRESS attempt only when the pair has no other
// attempt in flight. The conditional INSERT is a single statement, so
// two orchestrators racing for the same pair resolve at the database:
// exactly one insert lands, the other sees zero rows affected.
func (s *attemptStore) Claim(ctx context.Context, ccpairID string, kind domain.AttemptKind) (*domain.IndexAttempt, error) {
	attempt := domain.IndexAttempt{
		ID:          uuid.NewString(),
		CCPairID:    ccpairID,
		Kind:        kind,
		Status:      domain.AttemptInProgress,
		TimeStarted: time.Now().UTC(),
	}
	attempt.TimeUpdated = attempt.TimeStarted

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO index_attempts (id, cc_pair_id, kind, status, new_docs_indexed,
			docs_removed, items_skipped, time_started, time_updated)
		SELECT ?, ?, ?, ?, 0, 0, 0, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM index_attempts
			WHERE cc_pair_id = ? AND status = ?
		)
	`, attempt.ID, ccpairID, string(kind), string(domain.AttemptInProgress),
		attempt.TimeStarted.Format(time.RFC3339Nano), attempt.TimeUpdated.Format(time.RFC3339Nano),
		ccpairID, string(domain.AttemptInProgress))
	if err != nil {
		return nil, fmt.Errorf("claiming attempt: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking claim result: %w", err)
	}
	if affected == 0 {
		return nil, domain.ErrSyncInProgress
	}
	return &attempt, nil
}

// Complete transitions the attempt to SUCCESS with final counts.
func (s *attemptStore) Complete(ctx context.Context, attemptID string, newDocs, removedDocs, skipped int) error {
	return s.finish(ctx, attemptID, domain.AttemptSuccess, "", newDocs, removedDocs, skipped)
}

// Fail transitions the attempt to FAILED with an error detail.
func (s *attemptStore) Fail(ctx context.Context, attemptID, errorMsg string) error {
	return s.finish(ctx, attemptID, domain.AttemptFailed, errorMsg, 0, 0, 0)
}

// finish applies a terminal transition. The WHERE clause guards the
// append-only rule: a row that is already terminal is never rewritten.
func (s *attemptStore) finish(ctx context.Context, attemptID string, status domain.AttemptStatus,
	errorMsg string, newDocs, removedDocs, skipped int) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE index_attempts
		SET status = ?, error_msg = ?, new_docs_indexed = ?, docs_removed = ?,
			items_skipped = ?, time_updated = ?
		WHERE id = ? AND status = ?
	`, string(status), nullString(errorMsg), newDocs, removedDocs, skipped,
		time.Now().UTC().Format(time.RFC3339Nano), attemptID, string(domain.AttemptInProgress))
	if err != nil {
		return fmt.Errorf("finishing attempt: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking finish result: %w", err)
	}
	if affected == 0 {
		// Either missing or already terminal.
		existing, err := s.Get(ctx, attemptID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: attempt %s is already %s", domain.ErrInvalidInput, attemptID, existing.Status)
	}
	return nil
}

// Get retrieves an attempt by ID.
func (s *attemptStore) Get(ctx context.Context, attemptID string) (*domain.IndexAttempt, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, cc_pair_id, kind, status, error_msg, new_docs_indexed,
			docs_removed, items_skipped, time_started, time_updated
		FROM index_attempts WHERE id = ?
	`, attemptID)

	attempt, err := scanAttempt(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return attempt, nil
}

// ListForPair returns recent attempts for a pair, newest first.
func (s *attemptStore) ListForPair(ctx context.Context, ccpairID string, limit int) ([]domain.IndexAttempt, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, cc_pair_id, kind, status, error_msg, new_docs_indexed,
			docs_removed, items_skipped, time_started, time_updated
		FROM index_attempts
		WHERE cc_pair_id = ?
		ORDER BY time_started DESC
		LIMIT ?
	`, ccpairID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.IndexAttempt //nolint:prealloc // size unknown from query
	for rows.Next() {
		attempt, err := scanAttempt(rows.Scan)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attempts: %w", err)
	}
	return attempts, nil
}

// DeleteFailedBefore removes FAILED attempts last updated before the cutoff.
func (s *attemptStore) DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM index_attempts
		WHERE status = ? AND time_updated < ?
	`, string(domain.AttemptFailed), cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("deleting failed attempts: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking delete result: %w", err)
	}
	return int(affected), nil
}

// scanAttempt scans an attempt row via the given scan function.
func scanAttempt(scan func(dest ...any) error) (*domain.IndexAttempt, error) {
	var attempt domain.IndexAttempt
	var kind, status string
	var errorMsg, timeStarted, timeUpdated sql.NullString

	if err := scan(&attempt.ID, &attempt.CCPairID, &kind, &status, &errorMsg,
		&attempt.NewDocsIndexed, &attempt.DocsRemoved, &attempt.ItemsSkipped,
		&timeStarted, &timeUpdated); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning attempt: %w", err)
	}

	attempt.Kind = domain.AttemptKind(kind)
	attempt.Status = domain.AttemptStatus(status)
	if errorMsg.Valid {
		attempt.ErrorMsg = errorMsg.String
	}
	attempt.TimeStarted = parseNullableTime(timeStarted)
	attempt.TimeUpdated = parseNullableTime(timeUpdated)
	return &attempt, nil
}
