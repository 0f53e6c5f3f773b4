// Package cli implements the quarry command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarry-search/quarry/internal/adapters/driven/auth"
	"github.com/quarry-search/quarry/internal/adapters/driven/index/elastic"
	idxmem "github.com/quarry-search/quarry/internal/adapters/driven/index/memory"
	"github.com/quarry-search/quarry/internal/adapters/driven/storage/sqlite"
	"github.com/quarry-search/quarry/internal/config"
	"github.com/quarry-search/quarry/internal/connectors"
	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
	"github.com/quarry-search/quarry/internal/core/ports/driving"
	"github.com/quarry-search/quarry/internal/core/services"
	"github.com/quarry-search/quarry/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgPath string
	verbose bool
)

// Wired services, populated by initServices.
var (
	cfg              config.Config
	store            *sqlite.Store
	adminService     driving.AdminService
	syncOrchestrator driving.SyncOrchestrator
	schedulerService driving.Scheduler
)

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Document sync orchestration for search indexing",
	Long: `quarry keeps a search index in step with external document sources.

Connectors pull items from sources like Box, GitHub or a local
directory; credentials authenticate them; connector-credential pairs
are the unit of scheduling. Sync cycles index new and changed
documents, prune cycles remove what vanished upstream.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if verbose || cfg.Verbose {
			logger.SetVerbose(true)
		}
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default ~/.quarry/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initServices wires storage, connectors and services. Commands that
// touch state call it from their RunE.
func initServices() error {
	if store != nil {
		return nil
	}

	var err error
	store, err = sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}

	providerFactory := auth.NewProviderFactory(store.CredentialStore())
	factory := connectors.NewFactory(providerFactory)
	connectors.RegisterBuiltins(factory)

	var searchIndex driven.SearchIndex
	if cfg.Elasticsearch.URL != "" {
		searchIndex, err = elastic.NewIndex(elastic.Config{
			URL:      cfg.Elasticsearch.URL,
			Username: cfg.Elasticsearch.Username,
			Password: cfg.Elasticsearch.Password,
			Index:    cfg.Elasticsearch.Index,
		})
		if err != nil {
			return fmt.Errorf("connect search index: %w", err)
		}
	} else {
		logger.Debug("No elasticsearch URL configured, using in-memory index")
		searchIndex = idxmem.NewIndex()
	}

	orchestrator := services.NewSyncOrchestrator(
		store.ConnectorStore(),
		store.CCPairStore(),
		store.DocumentStore(),
		store.AttemptStore(),
		factory,
		searchIndex,
	)
	orchestrator.SetFailureThreshold(cfg.FailureThreshold)
	syncOrchestrator = orchestrator
	adminService = services.NewAdminService(
		store.ConnectorStore(),
		store.CredentialStore(),
		store.CCPairStore(),
		factory,
	)
	schedulerService = services.NewScheduler(
		schedulerConfig(),
		store.SchedulerStore(),
		store.ConnectorStore(),
		store.CCPairStore(),
		store.AttemptStore(),
		syncOrchestrator,
	)
	return nil
}

// schedulerConfig maps the file config onto the scheduler's task config.
func schedulerConfig() domain.SchedulerConfig {
	sc := domain.DefaultSchedulerConfig()
	sc.Enabled = cfg.Scheduler.Enabled
	if cfg.Scheduler.IndexingCheckInterval > 0 {
		sc.TaskConfigs[domain.TaskIDIndexingCheck] = domain.TaskConfig{
			Enabled: true, Interval: cfg.Scheduler.IndexingCheckInterval,
		}
	}
	if cfg.Scheduler.PruneCheckInterval > 0 {
		sc.TaskConfigs[domain.TaskIDPruneCheck] = domain.TaskConfig{
			Enabled: true, Interval: cfg.Scheduler.PruneCheckInterval,
		}
	}
	if cfg.Scheduler.CleanupInterval > 0 {
		sc.TaskConfigs[domain.TaskIDAttemptCleanup] = domain.TaskConfig{
			Enabled: true, Interval: cfg.Scheduler.CleanupInterval,
		}
	}
	return sc
}
