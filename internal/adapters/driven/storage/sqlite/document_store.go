package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Upsert creates or updates a document and ensures the pair association
// exists. The fingerprint decides whether anything actually changed: an
// unchanged re-crawl only bumps last_synced and reports changed=false.
func (s *documentStore) Upsert(ctx context.Context, doc domain.Document, ccpairID string) (bool, error) {
	if doc.Fingerprint == "" {
		doc.Fingerprint = doc.ComputeFingerprint()
	}
	if doc.LastSynced.IsZero() {
		doc.LastSynced = time.Now().UTC()
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return false, fmt.Errorf("marshalling metadata: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing sql.NullString
	row := tx.QueryRowContext(ctx, "SELECT fingerprint FROM documents WHERE id = ?", doc.ID)
	err = row.Scan(&existing)

	changed := false
	switch {
	case err == sql.ErrNoRows:
		changed = true
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (id, semantic_id, link, doc_updated_at, last_synced,
				hidden, metadata, chunk_count, fingerprint)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, doc.ID, doc.SemanticID, nullString(doc.Link),
			formatNullableTime(doc.DocUpdatedAt), formatNullableTime(doc.LastSynced),
			boolToInt(doc.Hidden), string(metadataJSON), doc.ChunkCount, doc.Fingerprint)
		if err != nil {
			return false, fmt.Errorf("inserting document: %w", err)
		}

	case err != nil:
		return false, fmt.Errorf("checking document: %w", err)

	case existing.String != doc.Fingerprint:
		changed = true
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET semantic_id = ?, link = ?, doc_updated_at = ?,
				last_synced = ?, hidden = ?, metadata = ?, chunk_count = ?, fingerprint = ?
			WHERE id = ?
		`, doc.SemanticID, nullString(doc.Link), formatNullableTime(doc.DocUpdatedAt),
			formatNullableTime(doc.LastSynced), boolToInt(doc.Hidden),
			string(metadataJSON), doc.ChunkCount, doc.Fingerprint, doc.ID)
		if err != nil {
			return false, fmt.Errorf("updating document: %w", err)
		}

	default:
		// Unchanged content still counts as seen by this sync.
		_, err = tx.ExecContext(ctx, "UPDATE documents SET last_synced = ? WHERE id = ?",
			formatNullableTime(doc.LastSynced), doc.ID)
		if err != nil {
			return false, fmt.Errorf("touching document: %w", err)
		}
	}

	// The association is idempotent across re-syncs and shared items.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_cc_pairs (document_id, cc_pair_id)
		VALUES (?, ?)
		ON CONFLICT(document_id, cc_pair_id) DO NOTHING
	`, doc.ID, ccpairID)
	if err != nil {
		return false, fmt.Errorf("associating document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return changed, nil
}

// Dissociate removes the pair's association with the document. When the
// last association goes, the document row goes with it and deleted=true
// is reported so the caller can clean the search index.
func (s *documentStore) Dissociate(ctx context.Context, docID, ccpairID string) (bool, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		"DELETE FROM document_cc_pairs WHERE document_id = ? AND cc_pair_id = ?",
		docID, ccpairID)
	if err != nil {
		return false, fmt.Errorf("removing association: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		// Not associated; nothing to do.
		return false, tx.Commit()
	}

	var remaining int
	row := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM document_cc_pairs WHERE document_id = ?", docID)
	if err := row.Scan(&remaining); err != nil {
		return false, fmt.Errorf("counting associations: %w", err)
	}

	deleted := false
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", docID); err != nil {
			return false, fmt.Errorf("deleting document: %w", err)
		}
		deleted = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return deleted, nil
}

// ListDocumentIDs returns the IDs currently associated with the pair.
func (s *documentStore) ListDocumentIDs(ctx context.Context, ccpairID string) (map[string]struct{}, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT document_id FROM document_cc_pairs WHERE cc_pair_id = ?", ccpairID)
	if err != nil {
		return nil, fmt.Errorf("querying associations: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning association: %w", err)
		}
		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating associations: %w", err)
	}
	return ids, nil
}

// Get retrieves a document by its source-qualified ID.
func (s *documentStore) Get(ctx context.Context, docID string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, semantic_id, link, doc_updated_at, last_synced, hidden,
			metadata, chunk_count, fingerprint
		FROM documents WHERE id = ?
	`, docID)

	var doc domain.Document
	var link, docUpdatedAt, lastSynced sql.NullString
	var hidden int
	var metadataJSON string

	if err := row.Scan(&doc.ID, &doc.SemanticID, &link, &docUpdatedAt, &lastSynced,
		&hidden, &metadataJSON, &doc.ChunkCount, &doc.Fingerprint); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}

	doc.Link = link.String
	doc.DocUpdatedAt = parseNullableTime(docUpdatedAt)
	doc.LastSynced = parseNullableTime(lastSynced)
	doc.Hidden = hidden == 1
	return &doc, nil
}

// AssociationCount returns how many pairs reference the document.
func (s *documentStore) AssociationCount(ctx context.Context, docID string) (int, error) {
	var count int
	row := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM document_cc_pairs WHERE document_id = ?", docID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting associations: %w", err)
	}
	return count, nil
}
