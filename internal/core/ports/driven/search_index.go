package driven

import (
	"context"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// SearchIndex receives document events from sync and prune cycles.
// It is fire-and-confirm: a failure here is reported but never rolls
// back the repository write; the repository stays the source of truth
// and the index is reconciled on the next cycle.
type SearchIndex interface {
	// UpsertDocument adds or updates a document in the index.
	UpsertDocument(ctx context.Context, doc domain.Document) error

	// DeleteDocument removes a document from the index.
	DeleteDocument(ctx context.Context, docID string) error
}
