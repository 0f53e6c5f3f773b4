package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Document is the canonical representation of one source item.
// Its identity is source-global: the same item reachable through two
// different connector-credential pairs is stored once, with one
// association row per pair.
type Document struct {
	// ID is the source-qualified identifier, e.g. "box:12345".
	ID string

	// SemanticID is the human-readable title or name.
	SemanticID string

	// Link is the source-side URL for the item, if any.
	Link string

	// DocUpdatedAt is the source-side last-modified timestamp.
	DocUpdatedAt time.Time

	// LastSynced is when this document was last written by a sync.
	LastSynced time.Time

	// Hidden excludes the document from user-facing search results.
	Hidden bool

	// Metadata contains source-native key-value pairs.
	Metadata map[string]any

	// ChunkCount is the search granularity of the document.
	ChunkCount int

	// Fingerprint is a content/metadata hash used to detect unchanged
	// re-upserts so the search index is not churned needlessly.
	Fingerprint string
}

// ComputeFingerprint derives the document's fingerprint from the fields
// that matter to the search index. LastSynced is deliberately excluded:
// a re-crawl that changes nothing else must produce the same value.
func (d *Document) ComputeFingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00%d\x00%t\x00",
		d.ID, d.SemanticID, d.Link, d.DocUpdatedAt.UnixNano(), d.ChunkCount, d.Hidden)

	// Metadata maps need a stable order.
	keys := make([]string, 0, len(d.Metadata))
	for k := range d.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := json.Marshal(d.Metadata[k])
		fmt.Fprintf(h, "%s=%s\x00", k, v)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// QualifiedID builds a source-qualified document ID from a source type
// and the source's native item ID.
func QualifiedID(source, itemID string) string {
	return source + ":" + itemID
}
