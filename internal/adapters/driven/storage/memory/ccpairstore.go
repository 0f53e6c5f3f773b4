package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

var _ driven.CCPairStore = (*CCPairStore)(nil)

// CCPairStore keeps connector-credential pairs in a map.
type CCPairStore struct {
	mu    sync.RWMutex
	pairs map[string]domain.CCPair
}

func NewCCPairStore() *CCPairStore {
	return &CCPairStore{pairs: make(map[string]domain.CCPair)}
}

func (s *CCPairStore) Save(_ context.Context, pair domain.CCPair) error {
	if pair.ID == "" {
		return fmt.Errorf("%w: pair id is empty", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.pairs {
		if id != pair.ID && existing.ConnectorID == pair.ConnectorID && existing.CredentialID == pair.CredentialID {
			return fmt.Errorf("%w: pair for connector %s and credential %s", domain.ErrAlreadyExists, pair.ConnectorID, pair.CredentialID)
		}
	}
	s.pairs[pair.ID] = pair
	return nil
}

func (s *CCPairStore) Get(_ context.Context, id string) (*domain.CCPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pair, ok := s.pairs[id]
	if !ok {
		return nil, fmt.Errorf("%w: cc pair %s", domain.ErrNotFound, id)
	}
	return &pair, nil
}

func (s *CCPairStore) List(_ context.Context) ([]domain.CCPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CCPair, 0, len(s.pairs))
	for _, p := range s.pairs {
		out = append(out, p)
	}
	return out, nil
}

func (s *CCPairStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pairs[id]; !ok {
		return fmt.Errorf("%w: cc pair %s", domain.ErrNotFound, id)
	}
	delete(s.pairs, id)
	return nil
}
