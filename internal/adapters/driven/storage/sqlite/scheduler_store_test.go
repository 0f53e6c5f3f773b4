package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-search/quarry/internal/core/domain"
)

func TestSchedulerStore_Tasks(t *testing.T) {
	ctx := context.Background()

	t.Run("get missing task returns nil without error", func(t *testing.T) {
		store := setupTestStore(t)

		task, err := store.SchedulerStore().GetTask(ctx, "nope")

		require.NoError(t, err)
		assert.Nil(t, task)
	})

	t.Run("save and get round-trips", func(t *testing.T) {
		store := setupTestStore(t)
		now := time.Now().UTC().Truncate(time.Second)
		task := &domain.ScheduledTask{
			ID:          "indexing-check",
			Name:        "Indexing Check",
			Interval:    2 * time.Minute,
			LastRun:     now.Add(-2 * time.Minute),
			NextRun:     now,
			LastSuccess: now.Add(-2 * time.Minute),
			Enabled:     true,
		}

		require.NoError(t, store.SchedulerStore().SaveTask(ctx, task))
		got, err := store.SchedulerStore().GetTask(ctx, "indexing-check")

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, task.Name, got.Name)
		assert.Equal(t, task.Interval, got.Interval)
		assert.True(t, got.LastRun.Equal(task.LastRun))
		assert.True(t, got.Enabled)
	})

	t.Run("save nil task is rejected", func(t *testing.T) {
		store := setupTestStore(t)

		err := store.SchedulerStore().SaveTask(ctx, nil)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("list and delete", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.SchedulerStore().SaveTask(ctx, &domain.ScheduledTask{
			ID: "a", Name: "A", Interval: time.Minute, Enabled: true,
		}))
		require.NoError(t, store.SchedulerStore().SaveTask(ctx, &domain.ScheduledTask{
			ID: "b", Name: "B", Interval: time.Hour, Enabled: false,
		}))

		tasks, err := store.SchedulerStore().ListTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)

		require.NoError(t, store.SchedulerStore().DeleteTask(ctx, "a"))
		tasks, err = store.SchedulerStore().ListTasks(ctx)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})
}

func TestSchedulerStore_History(t *testing.T) {
	ctx := context.Background()

	t.Run("record and fetch history newest first", func(t *testing.T) {
		store := setupTestStore(t)
		base := time.Now().UTC().Truncate(time.Second)

		for i := 0; i < 3; i++ {
			require.NoError(t, store.SchedulerStore().RecordResult(ctx, &domain.TaskResult{
				TaskID:         "indexing-check",
				StartedAt:      base.Add(time.Duration(i) * time.Minute),
				EndedAt:        base.Add(time.Duration(i)*time.Minute + 5*time.Second),
				Success:        i != 1,
				Error:          map[bool]string{true: "", false: "sync failed"}[i != 1],
				ItemsProcessed: i,
			}))
		}

		history, err := store.SchedulerStore().GetTaskHistory(ctx, "indexing-check", 2)

		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.True(t, history[0].StartedAt.After(history[1].StartedAt))
		assert.Equal(t, 2, history[0].ItemsProcessed)
	})

	t.Run("prune keeps the most recent results per task", func(t *testing.T) {
		store := setupTestStore(t)
		base := time.Now().UTC().Truncate(time.Second)

		for i := 0; i < 5; i++ {
			require.NoError(t, store.SchedulerStore().RecordResult(ctx, &domain.TaskResult{
				TaskID:    "prune-check",
				StartedAt: base.Add(time.Duration(i) * time.Minute),
				EndedAt:   base.Add(time.Duration(i) * time.Minute),
				Success:   true,
			}))
		}

		require.NoError(t, store.SchedulerStore().PruneHistory(ctx, 2))

		history, err := store.SchedulerStore().GetTaskHistory(ctx, "prune-check", 10)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})
}
