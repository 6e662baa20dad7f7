package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/catalogsync/internal/snapshot"
)

var (
	inspectSnapshot string
	inspectSample   int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the categories of the current snapshot",
	Long: `Inspect loads the category graph snapshot and prints every category
with its product count and a sample of product names.

Example:
  catalogsync inspect --sample 5`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSnapshot, "snapshot", "",
		"Override snapshot file path")
	inspectCmd.Flags().IntVar(&inspectSample, "sample", 3,
		"Number of product names shown per category")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	overrides := GetCLIOverrides()
	overrides.SnapshotPath = inspectSnapshot

	env, err := loadEnv(overrides)
	if err != nil {
		return err
	}
	defer env.log.Sync()

	store, err := snapshot.Open(env.cfg.Snapshot, env.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}

	g, err := store.Load(cmd.Context())
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return fmt.Errorf("no snapshot at %s (run extract first)", store.Location())
		}
		return err
	}

	newPrinter(cmd).Snapshot(g, store.Location(), inspectSample)
	return nil
}
