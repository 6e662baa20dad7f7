package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/database"
	"github.com/dbsmedya/catalogsync/internal/logger"
	"github.com/dbsmedya/catalogsync/internal/report"
)

// Version information (set via ldflags at build time)
var (
	Version   = "0.0.1-dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	logLevel     string
	logFormat    string
	batchSize    int
	concurrency  int
	sleepSeconds float64
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "catalogsync",
	Short: "Legacy catalog dump migration pipeline",
	Long: `Migrates category/product relations from a legacy MySQL dump into a
live catalog store.

Stages:
  - extract: stream the dump once and write the category graph snapshot
  - sync:    link live categories and products from the snapshot
  - codes:   assign unique secondary codes to rows that lack one

Every stage is safe to re-run: existing links and codes are left alone.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "catalogsync.yaml",
		"Path to configuration file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override number of associations written per batch")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0,
		"Override number of concurrent writes within a batch")
	rootCmd.PersistentFlags().Float64Var(&sleepSeconds, "sleep", 0,
		"Override sleep seconds between batches")

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable coloured report output")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() config.Overrides {
	return config.Overrides{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		BatchSize:    batchSize,
		Concurrency:  concurrency,
		SleepSeconds: sleepSeconds,
	}
}

// runEnv is what every command sets up before doing work.
type runEnv struct {
	cfg   *config.Config
	log   *logger.Logger
	runID string
}

// loadEnv loads the config, applies overrides, validates it for scopes
// and builds a run-scoped logger.
func loadEnv(overrides config.Overrides, scopes ...config.Scope) (*runEnv, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newRunEnv(cfg, overrides, scopes...)
}

// newRunEnv is loadEnv for a config the caller already adjusted.
func newRunEnv(cfg *config.Config, overrides config.Overrides, scopes ...config.Scope) (*runEnv, error) {
	cfg.ApplyOverrides(overrides)

	if err := cfg.Validate(scopes...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	runID := uuid.NewString()
	return &runEnv{cfg: cfg, log: log.WithRun(runID), runID: runID}, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func (e *runEnv) signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return database.SetupSignalHandler(parent, func(sig os.Signal) {
		e.log.Warnw("Received shutdown signal - finishing current batch", "signal", sig.String())
	})
}

func newPrinter(cmd *cobra.Command) *report.Printer {
	if noColor {
		return report.New(cmd.OutOrStdout(), false)
	}
	return report.NewAuto(cmd.OutOrStdout())
}
