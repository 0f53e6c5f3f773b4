package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Manage connector-credential pairs",
	Long: `A pair binds one connector to one credential and is the unit of
scheduling: sync and prune cycles always run against a pair.`,
}

var pairAddCmd = &cobra.Command{
	Use:   "add <connector-id> [credential-id]",
	Short: "Create a pair",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runPairAdd,
}

var pairListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pairs",
	RunE:  runPairList,
}

var pairPauseCmd = &cobra.Command{
	Use:   "pause <pair-id>",
	Short: "Suspend scheduling for a pair",
	Args:  cobra.ExactArgs(1),
	RunE:  runPairPause,
}

var pairResumeCmd = &cobra.Command{
	Use:   "resume <pair-id>",
	Short: "Reactivate a paused or failed pair",
	Args:  cobra.ExactArgs(1),
	RunE:  runPairResume,
}

func init() {
	pairCmd.AddCommand(pairAddCmd)
	pairCmd.AddCommand(pairListCmd)
	pairCmd.AddCommand(pairPauseCmd)
	pairCmd.AddCommand(pairResumeCmd)
	rootCmd.AddCommand(pairCmd)
}

func runPairAdd(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	credentialID := ""
	if len(args) > 1 {
		credentialID = args[1]
	}

	pair, err := adminService.CreateCCPair(context.Background(), args[0], credentialID)
	if err != nil {
		return err
	}

	cmd.Printf("Created pair %s\n", pair.ID)
	return nil
}

func runPairList(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	views, err := adminService.ListCCPairs(context.Background())
	if err != nil {
		return err
	}
	if len(views) == 0 {
		cmd.Println("No pairs configured.")
		return nil
	}

	for i := range views {
		v := &views[i]
		cmd.Printf("  %s\n", v.Pair.ID)
		cmd.Printf("    Connector: %s (%s)\n", v.Connector.Name, v.Connector.Source)
		cmd.Printf("    Status: %s\n", v.Pair.Status)
		if !v.Pair.LastSuccessfulIndexTime.IsZero() {
			cmd.Printf("    Last indexed: %s\n", v.Pair.LastSuccessfulIndexTime.Format("2006-01-02 15:04:05"))
		}
		cmd.Printf("    Documents: %d\n", v.Pair.TotalDocsIndexed)
		if v.Pair.FailureStreak > 0 {
			cmd.Printf("    Consecutive failures: %d\n", v.Pair.FailureStreak)
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d pairs\n", len(views))
	return nil
}

func runPairPause(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if err := adminService.PauseCCPair(context.Background(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Paused pair %s\n", args[0])
	return nil
}

func runPairResume(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if err := adminService.ResumeCCPair(context.Background(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Resumed pair %s\n", args[0])
	return nil
}
