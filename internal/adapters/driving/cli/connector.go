package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarry-search/quarry/internal/core/domain"
)

var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Manage source connectors",
}

var connectorAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a connector",
	Long: `Adds a connector for an external source.

Source-specific settings are passed as repeated --set key=value flags,
e.g. for github: --set repos=org/repo1,org/repo2`,
	RunE: runConnectorAdd,
}

var connectorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured connectors",
	RunE:  runConnectorList,
}

var (
	connectorSource        string
	connectorName          string
	connectorSettings      []string
	connectorRefresh       time.Duration
	connectorPrune         time.Duration
	connectorSchedule      string
	connectorIndexingStart string
)

func init() {
	connectorAddCmd.Flags().StringVar(&connectorSource, "source", "", "source type (box, github, localdir)")
	connectorAddCmd.Flags().StringVar(&connectorName, "name", "", "human-readable name")
	connectorAddCmd.Flags().StringArrayVar(&connectorSettings, "set", nil, "source setting key=value (repeatable)")
	connectorAddCmd.Flags().DurationVar(&connectorRefresh, "refresh", 0, "refresh interval (e.g. 10m)")
	connectorAddCmd.Flags().DurationVar(&connectorPrune, "prune-interval", 0, "prune interval (e.g. 24h, 0 disables pruning)")
	connectorAddCmd.Flags().StringVar(&connectorSchedule, "schedule", "", "cron schedule overriding the refresh interval")
	connectorAddCmd.Flags().StringVar(&connectorIndexingStart, "indexing-start", "", "ignore items modified before this RFC 3339 time")

	connectorCmd.AddCommand(connectorAddCmd)
	connectorCmd.AddCommand(connectorListCmd)
	rootCmd.AddCommand(connectorCmd)
}

func runConnectorAdd(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	connector := domain.Connector{
		Source:          connectorSource,
		Name:            connectorName,
		Config:          make(map[string]string),
		RefreshInterval: connectorRefresh,
		PruneInterval:   connectorPrune,
		Schedule:        connectorSchedule,
	}
	for _, setting := range connectorSettings {
		key, value, ok := strings.Cut(setting, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q, expected key=value", setting)
		}
		connector.Config[key] = value
	}
	if connectorIndexingStart != "" {
		start, err := time.Parse(time.RFC3339, connectorIndexingStart)
		if err != nil {
			return fmt.Errorf("invalid --indexing-start: %w", err)
		}
		connector.IndexingStart = &start
	}

	created, err := adminService.CreateConnector(context.Background(), connector)
	if err != nil {
		return err
	}

	cmd.Printf("Created connector %s\n", created.ID)
	return nil
}

func runConnectorList(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	list, err := adminService.ListConnectors(context.Background())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		cmd.Println("No connectors configured.")
		return nil
	}

	for i := range list {
		c := &list[i]
		cmd.Printf("  %s\n", c.ID)
		cmd.Printf("    Name: %s\n", c.Name)
		cmd.Printf("    Source: %s\n", c.Source)
		if c.Schedule != "" {
			cmd.Printf("    Schedule: %s\n", c.Schedule)
		} else {
			cmd.Printf("    Refresh: %s\n", c.RefreshInterval)
		}
		if c.PruneInterval > 0 {
			cmd.Printf("    Prune: %s\n", c.PruneInterval)
		}
		if c.Disabled {
			cmd.Println("    Disabled: yes")
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d connectors\n", len(list))
	return nil
}
