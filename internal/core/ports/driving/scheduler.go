package driving

import (
	"context"

	"github.com/quarry-search/quarry/internal/core/domain"
)

// Scheduler runs periodic background tasks: figuring out which pairs
// are due for a sync or a prune and firing them, plus housekeeping.
type Scheduler interface {
	// Start begins the scheduling loop. It blocks until the context is
	// cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop signals the scheduling loop to exit.
	Stop()

	// RunTaskNow triggers a single task immediately, outside its
	// schedule.
	RunTaskNow(ctx context.Context, taskID string) error

	// TaskHistory returns recent results for a task.
	TaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
