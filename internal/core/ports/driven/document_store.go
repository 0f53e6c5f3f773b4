package driven

import (
	"context"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// DocumentStore is the authoritative repository of documents and their
// associations with connector-credential pairs. Documents are
// deduplicated by source-qualified ID: the same upstream item reachable
// through two pairs is stored once with two association rows.
type DocumentStore interface {
	// Upsert creates or updates the document by its source-qualified ID,
	// refreshes LastSynced and metadata, and ensures the association
	// with the pair exists. It reports changed=true only when content or
	// metadata actually differ from what is stored, so callers can skip
	// redundant search-index writes on unchanged re-crawls.
	Upsert(ctx context.Context, doc domain.Document, ccpairID string) (changed bool, err error)

	// Dissociate removes one association. When it was the last one, the
	// document itself is deleted and deleted=true is reported so the
	// caller can emit the search-index delete.
	Dissociate(ctx context.Context, docID, ccpairID string) (deleted bool, err error)

	// ListDocumentIDs returns the source-qualified IDs currently
	// associated with the pair.
	ListDocumentIDs(ctx context.Context, ccpairID string) (map[string]struct{}, error)

	// Get retrieves a document by its source-qualified ID.
	Get(ctx context.Context, docID string) (*domain.Document, error)

	// AssociationCount returns how many pairs reference the document.
	AssociationCount(ctx context.Context, docID string) (int, error)
}
