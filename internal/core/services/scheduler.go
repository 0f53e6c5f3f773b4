package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
	"github.com/quarry-search/quarry/internal/core/ports/driving"
	"github.com/quarry-search/quarry/internal/logger"
)

var _ driving.Scheduler = (*Scheduler)(nil)

// failedAttemptRetention is how long FAILED attempt history is kept
// before the cleanup task sweeps it.
const failedAttemptRetention = 24 * time.Hour

// resultHistoryKeep is how many task results are retained per task.
const resultHistoryKeep = 100

// recentAttemptWindow bounds how far back the prune-due check looks for
// the last prune attempt.
const recentAttemptWindow = 50

// Scheduler manages background task execution: noticing which pairs are
// due for a sync or a prune and firing them, plus attempt history
// cleanup. Task state and run history are persisted for crash recovery.
type Scheduler struct {
	config     domain.SchedulerConfig
	store      driven.SchedulerStore
	connectors driven.ConnectorStore
	pairs      driven.CCPairStore
	attempts   driven.AttemptStore
	orch       driving.SyncOrchestrator

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	connectors driven.ConnectorStore,
	pairs driven.CCPairStore,
	attempts driven.AttemptStore,
	orch driving.SyncOrchestrator,
) *Scheduler {
	return &Scheduler{
		config:     config,
		store:      store,
		connectors: connectors,
		pairs:      pairs,
		attempts:   attempts,
		orch:       orch,
	}
}

// Start begins the scheduler loop. It blocks until the context is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Error("Scheduler failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop signals the scheduling loop to exit and waits for in-flight tasks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// RunTaskNow triggers one task immediately, outside its schedule.
func (s *Scheduler) RunTaskNow(ctx context.Context, taskID string) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       taskID,
			Name:     taskID,
			Interval: s.config.GetTaskConfig(taskID).Interval,
			Enabled:  true,
		}
	}
	return s.execute(ctx, task)
}

// TaskHistory returns recent results for a task, newest first.
func (s *Scheduler) TaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	return s.store.GetTaskHistory(ctx, taskID, limit)
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	builtins := []struct {
		id   string
		name string
	}{
		{domain.TaskIDIndexingCheck, "Indexing Check"},
		{domain.TaskIDPruneCheck, "Prune Check"},
		{domain.TaskIDAttemptCleanup, "Attempt Cleanup"},
	}
	for _, b := range builtins {
		cfg := s.config.GetTaskConfig(b.id)
		if !cfg.Enabled {
			continue
		}
		if err := s.ensureTask(ctx, b.id, b.name, cfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now(),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("Scheduler failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if err := s.execute(ctx, &task); err != nil {
					logger.Debug("Task %s finished with error: %v", task.ID, err)
				}
			}()
		}
	}
}

// execute runs one task, records the result and reschedules it.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) error {
	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: time.Now(),
	}

	var err error
	switch task.ID {
	case domain.TaskIDIndexingCheck:
		result.ItemsProcessed, err = s.runIndexingCheck(ctx)
	case domain.TaskIDPruneCheck:
		result.ItemsProcessed, err = s.runPruneCheck(ctx)
	case domain.TaskIDAttemptCleanup:
		result.ItemsProcessed, err = s.runAttemptCleanup(ctx)
	default:
		return fmt.Errorf("%w: unknown task %s", domain.ErrInvalidInput, task.ID)
	}

	result.EndedAt = time.Now()
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		task.LastError = err.Error()
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}

	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)

	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		logger.Error("Scheduler failed to save task %s: %v", task.ID, saveErr)
	}
	if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
		logger.Error("Scheduler failed to record result for %s: %v", task.ID, recordErr)
	}
	if pruneErr := s.store.PruneHistory(ctx, resultHistoryKeep); pruneErr != nil {
		logger.Error("Scheduler failed to prune history: %v", pruneErr)
	}

	return err
}

// runIndexingCheck fires a sync for every pair whose refresh is due.
// Each due pair syncs in its own goroutine; the storage-level claim is
// the only exclusion between them.
func (s *Scheduler) runIndexingCheck(ctx context.Context) (int, error) {
	pairs, err := s.pairs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pairs: %w", err)
	}

	now := time.Now()
	triggered := 0
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for i := range pairs {
		pair := pairs[i]
		connector, err := s.connectors.Get(ctx, pair.ConnectorID)
		if err != nil {
			logger.Warn("Pair %s references missing connector %s", pair.ID, pair.ConnectorID)
			continue
		}
		if !s.syncDue(&pair, connector, now) {
			continue
		}

		triggered++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.orch.Sync(ctx, pair.ID); err != nil && !ignorableTriggerError(err) {
				mu.Lock()
				errs = append(errs, fmt.Errorf("sync %s: %w", pair.ID, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return triggered, errors.Join(errs...)
}

// syncDue decides whether the pair should sync now. A cron schedule on
// the connector overrides the refresh interval.
func (s *Scheduler) syncDue(pair *domain.CCPair, connector *domain.Connector, now time.Time) bool {
	if !pair.Schedulable(connector) {
		return false
	}
	if connector.Schedule == "" {
		return pair.SyncDue(connector, now)
	}

	sched, err := cron.ParseStandard(connector.Schedule)
	if err != nil {
		logger.Warn("Connector %s has invalid schedule %q: %v", connector.ID, connector.Schedule, err)
		return false
	}
	if pair.LastSuccessfulIndexTime.IsZero() {
		return true
	}
	return !sched.Next(pair.LastSuccessfulIndexTime).After(now)
}

// runPruneCheck fires a prune for every pair whose prune interval has
// elapsed since its last prune attempt.
func (s *Scheduler) runPruneCheck(ctx context.Context) (int, error) {
	pairs, err := s.pairs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pairs: %w", err)
	}

	now := time.Now()
	triggered := 0
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for i := range pairs {
		pair := pairs[i]
		connector, err := s.connectors.Get(ctx, pair.ConnectorID)
		if err != nil {
			continue
		}
		if !pair.Schedulable(connector) || connector.PruneInterval <= 0 {
			continue
		}
		due, err := s.pruneDue(ctx, &pair, connector, now)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("prune check %s: %w", pair.ID, err))
			mu.Unlock()
			continue
		}
		if !due {
			continue
		}

		triggered++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.orch.Prune(ctx, pair.ID); err != nil && !ignorableTriggerError(err) {
				mu.Lock()
				errs = append(errs, fmt.Errorf("prune %s: %w", pair.ID, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return triggered, errors.Join(errs...)
}

// pruneDue reports whether the pair's prune interval has elapsed since
// its most recent successful prune.
func (s *Scheduler) pruneDue(ctx context.Context, pair *domain.CCPair, connector *domain.Connector, now time.Time) (bool, error) {
	attempts, err := s.attempts.ListForPair(ctx, pair.ID, recentAttemptWindow)
	if err != nil {
		return false, err
	}
	for _, a := range attempts {
		if a.Kind != domain.AttemptPrune || a.Status != domain.AttemptSuccess {
			continue
		}
		return now.Sub(a.TimeStarted) >= connector.PruneInterval, nil
	}
	// Never pruned. Wait for a first successful sync so there is
	// something to reconcile.
	return !pair.LastSuccessfulIndexTime.IsZero(), nil
}

// runAttemptCleanup sweeps day-old FAILED attempts.
func (s *Scheduler) runAttemptCleanup(ctx context.Context) (int, error) {
	removed, err := s.attempts.DeleteFailedBefore(ctx, time.Now().Add(-failedAttemptRetention))
	if err != nil {
		return 0, fmt.Errorf("delete failed attempts: %w", err)
	}
	if removed > 0 {
		logger.Info("Cleaned up %d failed attempts", removed)
	}
	return removed, nil
}

// ignorableTriggerError reports whether a trigger outcome is the normal
// already-running or not-schedulable signal rather than a failure.
func ignorableTriggerError(err error) bool {
	return errors.Is(err, domain.ErrSyncInProgress) || errors.Is(err, domain.ErrCCPairDisabled)
}
