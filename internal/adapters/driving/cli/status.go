package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/quarry-search/quarry/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pair health and recent attempts",
	RunE:  runStatus,
}

var statusHistory int

func init() {
	statusCmd.Flags().IntVar(&statusHistory, "history", 0, "also show the last N attempts per pair")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}
	ctx := context.Background()

	views, err := adminService.ListCCPairs(ctx)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		cmd.Println("No pairs configured.")
		return nil
	}

	for i := range views {
		v := &views[i]
		cmd.Printf("%s  [%s]  %s\n", v.Pair.ID, v.Pair.Status, v.Connector.Name)

		attempt, err := syncOrchestrator.LastAttempt(ctx, v.Pair.ID)
		if errors.Is(err, domain.ErrNotFound) {
			cmd.Println("    never run")
			cmd.Println()
			continue
		}
		if err != nil {
			return err
		}

		cmd.Printf("    last attempt: %s %s at %s\n",
			attempt.Kind, attempt.Status, attempt.TimeStarted.Format("2006-01-02 15:04:05"))
		switch attempt.Status {
		case domain.AttemptFailed:
			cmd.Printf("    error: %s\n", attempt.ErrorMsg)
		case domain.AttemptSuccess:
			cmd.Printf("    indexed %d, removed %d, skipped %d\n",
				attempt.NewDocsIndexed, attempt.DocsRemoved, attempt.ItemsSkipped)
		}

		if statusHistory > 1 {
			history, err := store.AttemptStore().ListForPair(ctx, v.Pair.ID, statusHistory)
			if err != nil {
				return err
			}
			for _, a := range history[1:] {
				cmd.Printf("    %s  %s %s\n",
					a.TimeStarted.Format("2006-01-02 15:04:05"), a.Kind, a.Status)
			}
		}
		cmd.Println()
	}
	return nil
}
