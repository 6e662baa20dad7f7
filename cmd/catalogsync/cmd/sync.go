package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/graph"
	"github.com/dbsmedya/catalogsync/internal/pipeline"
	"github.com/dbsmedya/catalogsync/internal/reconcile"
	"github.com/dbsmedya/catalogsync/internal/snapshot"
	"github.com/dbsmedya/catalogsync/internal/target"
)

// maxUnresolvedShown bounds the unresolved names listed in the summary.
const maxUnresolvedShown = 20

var (
	syncSnapshot string
	syncByID     bool
	syncDryRun   bool
	syncForce    bool
	syncDump     string
	skipVerify   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create missing category/product links in the target store",
	Long: `Sync loads the category graph snapshot, resolves every category and
product name against the live store and inserts the links that are missing.
Existing links are left untouched, so the command can be re-run safely.

With --by-id the dump is read directly and products are matched through the
legacy ID embedded in their reference instead of by name.

Example:
  catalogsync sync --config catalogsync.yaml
  catalogsync sync --dry-run
  catalogsync sync --by-id --dump legacy.sql`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncSnapshot, "snapshot", "",
		"Override snapshot file path")
	syncCmd.Flags().StringVar(&syncDump, "dump", "",
		"Override dump file path (with --by-id)")
	syncCmd.Flags().BoolVar(&syncByID, "by-id", false,
		"Match products by the legacy ID in their reference")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false,
		"Resolve and report without writing")
	syncCmd.Flags().BoolVar(&syncForce, "force", false,
		"Skip the run lock")
	syncCmd.Flags().BoolVar(&skipVerify, "skip-verify", false,
		"Skip the association count check after the run")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	overrides := GetCLIOverrides()
	overrides.SnapshotPath = syncSnapshot
	overrides.DumpPath = syncDump

	scopes := []config.Scope{config.ScopeTarget}
	if syncByID {
		scopes = append(scopes, config.ScopeExtract)
	}

	env, err := loadEnv(overrides, scopes...)
	if err != nil {
		return err
	}
	defer env.log.Sync()

	env.log.Infow("Starting sync",
		"by_id", syncByID,
		"dry_run", syncDryRun,
		"batch_size", env.cfg.Processing.BatchSize,
		"concurrency", env.cfg.Processing.Concurrency,
	)

	ctx, stop := env.signalContext(cmd)
	defer stop()

	// Read the source side first so a missing snapshot or dump fails
	// before the target is touched.
	var (
		g      *graph.Graph
		byID   *pipeline.Result
		source string
	)
	if syncByID {
		byID, err = pipeline.Scan(ctx, env.cfg, env.log)
		if err != nil {
			return fmt.Errorf("failed to read dump: %w", err)
		}
		source = env.cfg.Dump.Path
	} else {
		store, err := snapshot.Open(env.cfg.Snapshot, env.cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		g, err = store.Load(ctx)
		if err != nil {
			if errors.Is(err, snapshot.ErrNotFound) {
				return fmt.Errorf("no snapshot at %s (run extract first)", store.Location())
			}
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		source = store.Location()
	}
	env.log.Infow("Source loaded", "source", source)

	dbManager, err := env.connectTarget(ctx)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	checker, err := target.NewPreflightChecker(dbManager.Target, env.cfg.Target.Database, env.log)
	if err != nil {
		return err
	}
	if err := checker.RunAllChecks(ctx, env.cfg.TargetSchema, nil); err != nil {
		return fmt.Errorf("preflight checks failed: %w", err)
	}

	store, err := target.New(dbManager.Target, env.cfg.TargetSchema, env.log)
	if err != nil {
		return err
	}

	return env.withRunLock(ctx, dbManager, "sync", syncForce || syncDryRun, func(ctx context.Context) error {
		return syncTarget(ctx, cmd, env, store, g, byID)
	})
}

// syncTarget links the source graph, or the dump indices with --by-id,
// into store and prints the outcome.
func syncTarget(ctx context.Context, cmd *cobra.Command, env *runEnv, store *target.Store, g *graph.Graph, byID *pipeline.Result) error {
	syncer := reconcile.New(store, reconcile.Options{
		Matching:   env.cfg.Matching,
		Processing: env.cfg.Processing,
		DryRun:     syncDryRun,
	}, env.log)

	verify := !syncDryRun && !skipVerify
	var before int64
	if verify {
		var err error
		if before, err = store.CountAssociations(ctx); err != nil {
			return err
		}
	}

	var (
		out *reconcile.Outcome
		err error
	)
	if syncByID {
		builder := graph.NewBuilder(env.cfg.Legacy.ReservedCategoryNames, env.log)
		out, err = syncer.SyncByLegacyID(ctx, byID.Indices, builder.IsReserved)
	} else {
		out, err = syncer.SyncGraph(ctx, g)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && out != nil {
			env.log.Warn("Sync interrupted; links created so far are kept and a re-run resumes")
			newPrinter(cmd).Sync(out, maxUnresolvedShown)
			return nil
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	printer := newPrinter(cmd)
	printer.Sync(out, maxUnresolvedShown)

	if verify {
		v, err := reconcile.Verify(ctx, store, before, out)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		if !v.Match {
			env.log.Warnw("Association count mismatch after sync", "before", v.Before, "after", v.After, "created", v.Created)
		}
		printer.Verification(v)
	}
	return nil
}
