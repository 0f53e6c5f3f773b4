package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

var _ driven.AttemptStore = (*AttemptStore)(nil)

// AttemptStore keeps index attempts in a map. The per-pair claim is
// enforced under the store mutex.
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[string]domain.IndexAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]domain.IndexAttempt)}
}

func (s *AttemptStore) Claim(_ context.Context, ccpairID string, kind domain.AttemptKind) (*domain.IndexAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.attempts {
		if a.CCPairID == ccpairID && a.Status == domain.AttemptInProgress {
			return nil, fmt.Errorf("%w: pair %s has attempt %s in progress", domain.ErrSyncInProgress, ccpairID, a.ID)
		}
	}

	now := time.Now().UTC()
	attempt := domain.IndexAttempt{
		ID:          uuid.NewString(),
		CCPairID:    ccpairID,
		Kind:        kind,
		Status:      domain.AttemptInProgress,
		TimeStarted: now,
		TimeUpdated: now,
	}
	s.attempts[attempt.ID] = attempt
	return &attempt, nil
}

func (s *AttemptStore) Complete(_ context.Context, attemptID string, newDocs, removedDocs, skipped int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, err := s.inProgress(attemptID)
	if err != nil {
		return err
	}
	attempt.Status = domain.AttemptSuccess
	attempt.NewDocsIndexed = newDocs
	attempt.DocsRemoved = removedDocs
	attempt.ItemsSkipped = skipped
	attempt.TimeUpdated = time.Now().UTC()
	s.attempts[attemptID] = *attempt
	return nil
}

func (s *AttemptStore) Fail(_ context.Context, attemptID, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, err := s.inProgress(attemptID)
	if err != nil {
		return err
	}
	attempt.Status = domain.AttemptFailed
	attempt.ErrorMsg = errorMsg
	attempt.TimeUpdated = time.Now().UTC()
	s.attempts[attemptID] = *attempt
	return nil
}

// inProgress fetches a claimable attempt. Callers hold the mutex.
func (s *AttemptStore) inProgress(attemptID string) (*domain.IndexAttempt, error) {
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, fmt.Errorf("%w: index attempt %s", domain.ErrNotFound, attemptID)
	}
	if attempt.Status != domain.AttemptInProgress {
		return nil, fmt.Errorf("%w: attempt %s is already %s", domain.ErrInvalidInput, attemptID, attempt.Status)
	}
	return &attempt, nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (*domain.IndexAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, fmt.Errorf("%w: index attempt %s", domain.ErrNotFound, attemptID)
	}
	return &attempt, nil
}

func (s *AttemptStore) ListForPair(_ context.Context, ccpairID string, limit int) ([]domain.IndexAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.IndexAttempt
	for _, a := range s.attempts {
		if a.CCPairID == ccpairID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TimeStarted.After(out[j].TimeStarted)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *AttemptStore) DeleteFailedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, a := range s.attempts {
		if a.Status == domain.AttemptFailed && a.TimeUpdated.Before(cutoff) {
			delete(s.attempts, id)
			removed++
		}
	}
	return removed, nil
}
