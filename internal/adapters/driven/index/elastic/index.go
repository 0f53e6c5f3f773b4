// Package elastic implements the search index on Elasticsearch.
// Documents are indexed by their source-qualified ID into a single
// index, so upserts from any connector-credential pair converge on one
// search document.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

var _ driven.SearchIndex = (*Index)(nil)

// Index writes document events to an Elasticsearch index.
type Index struct {
	client *es.Client
	index  string
}

// indexedDocument is the wire shape stored in Elasticsearch.
type indexedDocument struct {
	ID           string         `json:"id"`
	SemanticID   string         `json:"semantic_id"`
	Link         string         `json:"link,omitempty"`
	DocUpdatedAt *time.Time     `json:"doc_updated_at,omitempty"`
	LastSynced   time.Time      `json:"last_synced"`
	Hidden       bool           `json:"hidden"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ChunkCount   int            `json:"chunk_count"`
}

// NewIndex connects to Elasticsearch and ensures the target index exists.
func NewIndex(cfg Config) (*Index, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	name := cfg.Index
	if name == "" {
		name = DefaultIndex
	}

	idx := &Index{client: client, index: name}
	if err := idx.ensureIndex(); err != nil {
		return nil, err
	}
	return idx, nil
}

// NewIndexWithClient wraps an existing client. Used in tests.
func NewIndexWithClient(client *es.Client, index string) *Index {
	if index == "" {
		index = DefaultIndex
	}
	return &Index{client: client, index: index}
}

func (i *Index) ensureIndex() error {
	res, err := i.client.Indices.Exists([]string{i.index})
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", i.index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":             map[string]any{"type": "keyword"},
				"semantic_id":    map[string]any{"type": "text"},
				"link":           map[string]any{"type": "keyword"},
				"doc_updated_at": map[string]any{"type": "date"},
				"last_synced":    map[string]any{"type": "date"},
				"hidden":         map[string]any{"type": "boolean"},
				"chunk_count":    map[string]any{"type": "integer"},
				"metadata":       map[string]any{"type": "object", "enabled": true},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createRes, err := i.client.Indices.Create(i.index,
		i.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", i.index, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("error creating index %s: %s", i.index, createRes.String())
	}
	return nil
}

func (i *Index) UpsertDocument(ctx context.Context, doc domain.Document) error {
	wire := indexedDocument{
		ID:         doc.ID,
		SemanticID: doc.SemanticID,
		Link:       doc.Link,
		LastSynced: doc.LastSynced,
		Hidden:     doc.Hidden,
		Metadata:   doc.Metadata,
		ChunkCount: doc.ChunkCount,
	}
	if !doc.DocUpdatedAt.IsZero() {
		t := doc.DocUpdatedAt
		wire.DocUpdatedAt = &t
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("error indexing document %s: %s", doc.ID, res.String())
	}
	return nil
}

func (i *Index) DeleteDocument(ctx context.Context, docID string) error {
	res, err := i.client.Delete(
		i.index,
		docID,
		i.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", docID, err)
	}
	defer res.Body.Close()

	// An already-absent document is fine, deletes are reconciliation.
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("error deleting document %s: %s", docID, res.String())
	}
	return nil
}
