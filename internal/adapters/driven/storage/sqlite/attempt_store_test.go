package sqlite

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-search/quarry/internal/core/domain"
)

func TestAttemptStore_Claim(t *testing.T) {
	ctx := context.Background()

	t.Run("claim creates an in-progress attempt", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")

		attempt, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)

		require.NoError(t, err)
		assert.Equal(t, domain.AttemptInProgress, attempt.Status)
		assert.Equal(t, domain.AttemptSync, attempt.Kind)
		assert.NotEmpty(t, attempt.ID)
	})

	t.Run("second claim is rejected while first is in flight", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")

		_, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
		require.NoError(t, err)

		_, err = store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
		assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	})

	t.Run("prune contends for the same claim as sync", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")

		_, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
		require.NoError(t, err)

		_, err = store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptPrune)
		assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	})

	t.Run("different pairs claim independently", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")
		createTestPair(t, store, "pair-2")

		_, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
		require.NoError(t, err)

		_, err = store.AttemptStore().Claim(ctx, "pair-2", domain.AttemptSync)
		assert.NoError(t, err)
	})

	t.Run("claim reopens after completion", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")

		attempt, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
		require.NoError(t, err)
		require.NoError(t, store.AttemptStore().Complete(ctx, attempt.ID, 5, 0, 0))

		_, err = store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptPrune)
		assert.NoError(t, err)
	})

	t.Run("concurrent claims produce exactly one winner", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")

		const racers = 10
		var wins, losses int32
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
				switch {
				case err == nil:
					atomic.AddInt32(&wins, 1)
				default:
					atomic.AddInt32(&losses, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins)
		assert.Equal(t, int32(racers-1), losses)
	})
}

func TestAttemptStore_TerminalTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("complete records counts", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")
		attempt, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
		require.NoError(t, err)

		require.NoError(t, store.AttemptStore().Complete(ctx, attempt.ID, 7, 2, 1))

		got, err := store.AttemptStore().Get(ctx, attempt.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AttemptSuccess, got.Status)
		assert.Equal(t, 7, got.NewDocsIndexed)
		assert.Equal(t, 2, got.DocsRemoved)
		assert.Equal(t, 1, got.ItemsSkipped)
	})

	t.Run("fail records the error message", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")
		attempt, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
		require.NoError(t, err)

		require.NoError(t, store.AttemptStore().Fail(ctx, attempt.ID, "connector validation failed"))

		got, err := store.AttemptStore().Get(ctx, attempt.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AttemptFailed, got.Status)
		assert.Equal(t, "connector validation failed", got.ErrorMsg)
	})

	t.Run("terminal attempts are immutable", func(t *testing.T) {
		store := setupTestStore(t)
		createTestPair(t, store, "pair-1")
		attempt, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
		require.NoError(t, err)
		require.NoError(t, store.AttemptStore().Complete(ctx, attempt.ID, 3, 0, 0))

		err = store.AttemptStore().Fail(ctx, attempt.ID, "late failure")
		assert.Error(t, err)

		got, err := store.AttemptStore().Get(ctx, attempt.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AttemptSuccess, got.Status)
		assert.Equal(t, 3, got.NewDocsIndexed)
	})

	t.Run("finishing a missing attempt errors", func(t *testing.T) {
		store := setupTestStore(t)

		err := store.AttemptStore().Complete(ctx, "ghost", 0, 0, 0)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAttemptStore_ListForPair(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	createTestPair(t, store, "pair-1")

	for i := 0; i < 3; i++ {
		attempt, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
		require.NoError(t, err)
		require.NoError(t, store.AttemptStore().Complete(ctx, attempt.ID, i, 0, 0))
		time.Sleep(2 * time.Millisecond)
	}

	attempts, err := store.AttemptStore().ListForPair(ctx, "pair-1", 2)

	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.True(t, !attempts[0].TimeStarted.Before(attempts[1].TimeStarted),
		"attempts should be newest first")
}

func TestAttemptStore_DeleteFailedBefore(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	createTestPair(t, store, "pair-1")

	failed, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
	require.NoError(t, err)
	require.NoError(t, store.AttemptStore().Fail(ctx, failed.ID, "boom"))

	succeeded, err := store.AttemptStore().Claim(ctx, "pair-1", domain.AttemptSync)
	require.NoError(t, err)
	require.NoError(t, store.AttemptStore().Complete(ctx, succeeded.ID, 1, 0, 0))

	// A cutoff in the future sweeps the failed attempt but not the
	// successful one.
	deleted, err := store.AttemptStore().DeleteFailedBefore(ctx, time.Now().Add(time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.AttemptStore().Get(ctx, failed.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.AttemptStore().Get(ctx, succeeded.ID)
	assert.NoError(t, err)
}
