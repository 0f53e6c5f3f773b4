package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore keeps documents and their pair associations in maps.
type DocumentStore struct {
	mu           sync.RWMutex
	documents    map[string]domain.Document
	associations map[string]map[string]struct{} // docID -> set of pair IDs
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents:    make(map[string]domain.Document),
		associations: make(map[string]map[string]struct{}),
	}
}

func (s *DocumentStore) Upsert(_ context.Context, doc domain.Document, ccpairID string) (bool, error) {
	if doc.ID == "" {
		return false, fmt.Errorf("%w: document id is empty", domain.ErrInvalidInput)
	}
	if doc.Fingerprint == "" {
		doc.Fingerprint = doc.ComputeFingerprint()
	}
	if doc.LastSynced.IsZero() {
		doc.LastSynced = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := true
	if existing, ok := s.documents[doc.ID]; ok {
		if existing.Fingerprint == doc.Fingerprint {
			// Unchanged re-crawl, only bump the sync timestamp.
			existing.LastSynced = doc.LastSynced
			s.documents[doc.ID] = existing
			changed = false
		} else {
			s.documents[doc.ID] = doc
		}
	} else {
		s.documents[doc.ID] = doc
	}

	if s.associations[doc.ID] == nil {
		s.associations[doc.ID] = make(map[string]struct{})
	}
	s.associations[doc.ID][ccpairID] = struct{}{}
	return changed, nil
}

func (s *DocumentStore) Dissociate(_ context.Context, docID, ccpairID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs, ok := s.associations[docID]
	if !ok {
		return false, nil
	}
	if _, ok := pairs[ccpairID]; !ok {
		return false, nil
	}
	delete(pairs, ccpairID)
	if len(pairs) > 0 {
		return false, nil
	}
	delete(s.associations, docID)
	delete(s.documents, docID)
	return true, nil
}

func (s *DocumentStore) ListDocumentIDs(_ context.Context, ccpairID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{})
	for docID, pairs := range s.associations {
		if _, ok := pairs[ccpairID]; ok {
			out[docID] = struct{}{}
		}
	}
	return out, nil
}

func (s *DocumentStore) Get(_ context.Context, docID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docID]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
	}
	return &doc, nil
}

func (s *DocumentStore) AssociationCount(_ context.Context, docID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.associations[docID]), nil
}
