package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-search/quarry/internal/core/domain"
)

func testDocument(id string) domain.Document {
	return domain.Document{
		ID:           id,
		SemanticID:   "Report " + id,
		Link:         "https://app.box.com/file/" + id,
		DocUpdatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		Metadata:     map[string]any{"path": "reports/" + id},
		ChunkCount:   1,
	}
}

func TestDocumentStore_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("first upsert creates document and association", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")

		changed, err := store.DocumentStore().Upsert(ctx, testDocument("box:100"), "pair-1")

		require.NoError(t, err)
		assert.True(t, changed)

		got, err := store.DocumentStore().Get(ctx, "box:100")
		require.NoError(t, err)
		assert.Equal(t, "Report box:100", got.SemanticID)
		assert.NotEmpty(t, got.Fingerprint)
		assert.False(t, got.LastSynced.IsZero())

		count, err := store.DocumentStore().AssociationCount(ctx, "box:100")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("unchanged re-upsert reports changed=false but bumps last_synced", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")
		doc := testDocument("box:100")

		_, err := store.DocumentStore().Upsert(ctx, doc, "pair-1")
		require.NoError(t, err)
		first, err := store.DocumentStore().Get(ctx, "box:100")
		require.NoError(t, err)

		doc.LastSynced = first.LastSynced.Add(time.Minute)
		changed, err := store.DocumentStore().Upsert(ctx, doc, "pair-1")

		require.NoError(t, err)
		assert.False(t, changed)

		second, err := store.DocumentStore().Get(ctx, "box:100")
		require.NoError(t, err)
		assert.True(t, second.LastSynced.After(first.LastSynced))
		assert.Equal(t, first.Fingerprint, second.Fingerprint)
	})

	t.Run("content change reports changed=true", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")
		doc := testDocument("box:100")
		_, err := store.DocumentStore().Upsert(ctx, doc, "pair-1")
		require.NoError(t, err)

		doc.DocUpdatedAt = doc.DocUpdatedAt.Add(time.Hour)
		doc.Fingerprint = ""
		changed, err := store.DocumentStore().Upsert(ctx, doc, "pair-1")

		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("two pairs share one document row", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")
		createTestPair(t, store, "pair-2")
		doc := testDocument("box:100")

		changed, err := store.DocumentStore().Upsert(ctx, doc, "pair-1")
		require.NoError(t, err)
		assert.True(t, changed)

		// Same content through the second pair: association only.
		changed, err = store.DocumentStore().Upsert(ctx, doc, "pair-2")
		require.NoError(t, err)
		assert.False(t, changed)

		count, err := store.DocumentStore().AssociationCount(ctx, "box:100")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestDocumentStore_Dissociate(t *testing.T) {
	ctx := context.Background()

	t.Run("last dissociation deletes the document", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")
		_, err := store.DocumentStore().Upsert(ctx, testDocument("box:100"), "pair-1")
		require.NoError(t, err)

		deleted, err := store.DocumentStore().Dissociate(ctx, "box:100", "pair-1")

		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = store.DocumentStore().Get(ctx, "box:100")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("document survives while other pairs reference it", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")
		createTestPair(t, store, "pair-2")
		doc := testDocument("box:100")
		_, err := store.DocumentStore().Upsert(ctx, doc, "pair-1")
		require.NoError(t, err)
		_, err = store.DocumentStore().Upsert(ctx, doc, "pair-2")
		require.NoError(t, err)

		deleted, err := store.DocumentStore().Dissociate(ctx, "box:100", "pair-1")

		require.NoError(t, err)
		assert.False(t, deleted)

		got, err := store.DocumentStore().Get(ctx, "box:100")
		require.NoError(t, err)
		assert.Equal(t, "box:100", got.ID)

		count, err := store.DocumentStore().AssociationCount(ctx, "box:100")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("dissociating a non-associated document is a no-op", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")

		deleted, err := store.DocumentStore().Dissociate(ctx, "box:ghost", "pair-1")

		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestDocumentStore_ListDocumentIDs(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	createTestPair(t, store, "pair-1")
	createTestPair(t, store, "pair-2")

	for _, id := range []string{"box:1", "box:2", "box:3"} {
		_, err := store.DocumentStore().Upsert(ctx, testDocument(id), "pair-1")
		require.NoError(t, err)
	}
	_, err := store.DocumentStore().Upsert(ctx, testDocument("box:9"), "pair-2")
	require.NoError(t, err)

	ids, err := store.DocumentStore().ListDocumentIDs(ctx, "pair-1")

	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Contains(t, ids, "box:1")
	assert.NotContains(t, ids, "box:9")
}
