// Package cli provides the command-line interface for routina.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mfierros/routina/internal/advisor"
	"github.com/mfierros/routina/internal/assistant"
	"github.com/mfierros/routina/internal/catalog"
	"github.com/mfierros/routina/internal/config"
	"github.com/mfierros/routina/internal/localstore"
	"github.com/mfierros/routina/internal/metrics"
	"github.com/mfierros/routina/internal/selection"
	"github.com/mfierros/routina/internal/websearch"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	searchFlag bool

	// Global config and session state, wired in PersistentPreRunE.
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	store      *localstore.Store
	cache      *catalog.Cache
	selections *selection.Store
	collector  = metrics.NewCollector()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "routina",
	Short: "Terminal skincare product advisor",
	Long: `Routina is a terminal product-selection assistant: browse and filter a
skincare catalog, select the products you own or want, and chat with an
assistant that can build a personalized routine from your selections.

All assistant and web-search traffic goes through a forwarding server
(routina-proxy) that holds the provider API keys; this client carries no
credentials.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip session wiring for commands that don't touch state
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "serve" {
			cfg = config.Load()
			logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)

		var err error
		store, err = localstore.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open data directory: %w", err)
		}

		cache = catalog.NewCache(cfg.CatalogSource, logger)
		selections = selection.New(selection.LocalPersister{Store: store}, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// loadSession loads the catalog and restores the persisted selection
// against it. Commands that show or mutate selections call this first.
func loadSession(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	err := collector.Time(metrics.OpCatalogLoad, func() error {
		var err error
		products, err = cache.Load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	selections.Restore(products)
	return products, nil
}

// newAdvisor builds the advisor over the configured endpoints. Search is
// active only when both the flag and the endpoint say so.
func newAdvisor() *advisor.Advisor {
	completer := assistant.NewClient(cfg.CompletionsURL, cfg.Model, logger)
	searcher := websearch.NewClient(cfg.SearchURL, logger)

	adv := advisor.New(selections, searcher, completer, collector, logger, advisor.Options{
		ChatMaxTokens:    cfg.ChatMaxTokens,
		RoutineMaxTokens: cfg.RoutineMaxTokens,
	})
	adv.SetSearchEnabled(searchFlag)
	return adv
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(selectionsCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(routineCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the routina version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("routina %s\n", Version)
	},
}
