package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quarry-search/quarry/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler loop",
	Long: `Runs the background scheduler until interrupted. Pairs sync on their
refresh interval or cron schedule, prune on their prune interval, and
failed-attempt history is cleaned up periodically.`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runScheduler(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if !cfg.Scheduler.Enabled {
		return errors.New("scheduler is disabled in config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	err := schedulerService.Start(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Scheduler stopped")
		return nil
	}
	return err
}
