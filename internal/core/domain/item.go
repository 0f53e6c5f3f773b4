package domain

import "time"

// Item is the normalised descriptor of one upstream item as yielded by a
// connector. It carries what downstream storage and indexing need; full
// content is materialised on demand via Link.
type Item struct {
	// SourceID is the item's native identifier at the source.
	SourceID string

	// Name is the human-readable title.
	Name string

	// Path is the item's location within the source, if hierarchical.
	Path string

	// Link is a URL that resolves to the item at the source.
	Link string

	// SizeBytes is the content size, when the source reports one.
	SizeBytes int64

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// ModifiedAt is the source-side last-modified timestamp.
	ModifiedAt time.Time

	// Checksum is a source-provided content hash, when available.
	Checksum string

	// Metadata contains source-native key-value pairs.
	Metadata map[string]any
}

// Document converts the item into its canonical document form for the
// given source type. now becomes the document's LastSynced timestamp.
func (it *Item) Document(source string, now time.Time) Document {
	doc := Document{
		ID:           QualifiedID(source, it.SourceID),
		SemanticID:   it.Name,
		Link:         it.Link,
		DocUpdatedAt: it.ModifiedAt,
		LastSynced:   now,
		Metadata:     it.Metadata,
		ChunkCount:   1,
	}
	if doc.SemanticID == "" {
		doc.SemanticID = doc.ID
	}
	doc.Fingerprint = doc.ComputeFingerprint()
	return doc
}

// Cursor is an opaque incremental-sync resumption marker. For most
// connectors it is the last successful sync time; connectors that need
// richer state encode it themselves.
type Cursor struct {
	// Since is the modification-time watermark items must be newer than.
	Since time.Time
}

// IsZero reports whether the cursor carries no resumption point,
// in which case a full load is required.
func (c Cursor) IsZero() bool {
	return c.Since.IsZero()
}
