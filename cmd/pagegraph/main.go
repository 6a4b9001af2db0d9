package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/pagegraph/internal/cache"
	"github.com/rohankatakam/pagegraph/internal/config"
	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/gateway"
	"github.com/rohankatakam/pagegraph/internal/logging"
	"github.com/rohankatakam/pagegraph/internal/schema"
	"github.com/rohankatakam/pagegraph/internal/seed"
	"github.com/rohankatakam/pagegraph/internal/storage"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logging.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pagegraph",
	Short: "pagegraph - query pages of block elements as a graph",
	Long: `pagegraph stores pages and their blockquotes and resolves client-driven
selections over them, following page/contents/parent edges under a depth ceiling.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
			cfg = config.Default()
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		result := cfg.Validate()
		if result.HasErrors() {
			return errors.ConfigErrorf("%s", result.Error())
		}

		// Initialize logger
		logger, err = logging.New(cfg.Log)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to initialize logger")
		}
		for _, warn := range result.Warnings {
			logger.Warn(warn)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .pagegraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Set custom version template
	rootCmd.SetVersionTemplate(`pagegraph {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)
	gateway.Version = Version

	// Add subcommands
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(validateCmd)
}

// openStore opens the configured store, behind the lookup cache when enabled,
// and loads the fixture at seedFile into it if one is given
func openStore(ctx context.Context, seedFile string) (storage.Store, error) {
	store, err := storage.Open(cfg.Storage, schema.Default(), logger.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Enabled {
		store = cache.NewCachedStore(store, cfg.Cache, logger.Logger)
	}

	if seedFile != "" {
		refs, err := seed.LoadFile(ctx, seedFile, store, logger.Logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		logger.WithFields(logrus.Fields{"file": seedFile, "entities": len(refs)}).Debug("Seeded store")
	}
	return store, nil
}
