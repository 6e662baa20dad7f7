package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/pipeline"
	"github.com/dbsmedya/catalogsync/internal/snapshot"
)

var (
	extractDump     string
	extractSnapshot string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Read the legacy dump and write the category graph snapshot",
	Long: `Extract streams the legacy dump once, indexes category and product
names and their links, rebuilds the name-keyed category graph and writes
it to the configured snapshot store.

Example:
  catalogsync extract --config catalogsync.yaml --dump legacy.sql`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractDump, "dump", "",
		"Override dump file path")
	extractCmd.Flags().StringVar(&extractSnapshot, "snapshot", "",
		"Override snapshot file path")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	overrides := GetCLIOverrides()
	overrides.DumpPath = extractDump
	overrides.SnapshotPath = extractSnapshot

	env, err := loadEnv(overrides, config.ScopeExtract)
	if err != nil {
		return err
	}
	defer env.log.Sync()

	env.log.Infow("Starting extraction", "dump", env.cfg.Dump.Path, "config", GetConfigFile())

	store, err := snapshot.Open(env.cfg.Snapshot, env.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}

	ctx, stop := env.signalContext(cmd)
	defer stop()

	res, err := pipeline.ExtractToSnapshot(ctx, env.cfg, store, env.log)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			env.log.Warn("Extraction cancelled; no snapshot written")
			return nil
		}
		return fmt.Errorf("extraction failed: %w", err)
	}

	newPrinter(cmd).Extraction(res.Read, res.Rows, res.Build, store.Location())
	return nil
}
