// Package memory implements the search index as an in-process map.
// Used in tests and for runs without an Elasticsearch backend.
package memory

import (
	"context"
	"sync"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

var _ driven.SearchIndex = (*Index)(nil)

// Index keeps indexed documents in a map keyed by document ID.
// UpsertErr and DeleteErr, when set, are returned by the corresponding
// operation so tests can exercise index failure paths.
type Index struct {
	mu        sync.RWMutex
	documents map[string]domain.Document

	UpsertErr error
	DeleteErr error
}

func NewIndex() *Index {
	return &Index{documents: make(map[string]domain.Document)}
}

func (i *Index) UpsertDocument(_ context.Context, doc domain.Document) error {
	if i.UpsertErr != nil {
		return i.UpsertErr
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.documents[doc.ID] = doc
	return nil
}

func (i *Index) DeleteDocument(_ context.Context, docID string) error {
	if i.DeleteErr != nil {
		return i.DeleteErr
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.documents, docID)
	return nil
}

// Get returns the indexed document, if present.
func (i *Index) Get(docID string) (domain.Document, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	doc, ok := i.documents[docID]
	return doc, ok
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.documents)
}
