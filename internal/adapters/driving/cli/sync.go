package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarry-search/quarry/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync <pair-id>",
	Short: "Run one indexing cycle for a pair",
	Long: `Triggers a sync attempt for the pair. The first run loads every item
at the source; later runs are incremental where the source supports it.
If an attempt is already running for the pair, the command reports it
and exits without side effects.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

var pruneCmd = &cobra.Command{
	Use:   "prune <pair-id>",
	Short: "Remove documents that vanished upstream",
	Long: `Reconciles the pair's stored documents against the source's live
item set. Nothing is deleted unless the live listing succeeds in full.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(pruneCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	pairID := args[0]
	cmd.Printf("Syncing pair %s...\n", pairID)

	result, err := syncOrchestrator.Sync(context.Background(), pairID)
	if errors.Is(err, domain.ErrSyncInProgress) {
		cmd.Println("An attempt is already running for this pair.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Printf("Sync complete: %d documents indexed, %d items skipped.\n",
		result.NewDocsIndexed, result.ItemsSkipped)
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	pairID := args[0]
	cmd.Printf("Pruning pair %s...\n", pairID)

	result, err := syncOrchestrator.Prune(context.Background(), pairID)
	if errors.Is(err, domain.ErrSyncInProgress) {
		cmd.Println("An attempt is already running for this pair.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	if result.AttemptID == "" {
		cmd.Println("Source does not support live listing, nothing to do.")
		return nil
	}

	cmd.Printf("Prune complete: %d documents removed.\n", result.DocsRemoved)
	return nil
}
