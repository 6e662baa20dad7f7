package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/lock"
	"github.com/dbsmedya/catalogsync/internal/report"
	"github.com/dbsmedya/catalogsync/internal/snapshot"
	"github.com/dbsmedya/catalogsync/internal/target"
)

var validateTarget bool

var errValidationFailed = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and, with --target, runs
preflight checks against the target store.

Checks performed:
  - Configuration syntax and required fields
  - Dump file presence
  - Snapshot presence
  - Target connectivity (--target)
  - Target tables, columns and unique keys (--target)
  - Running sync or codes instances (--target)

Example:
  catalogsync validate --config catalogsync.yaml --target`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateTarget, "target", false,
		"Also connect to the target store and check its schema")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	scopes := []config.Scope{config.ScopeExtract}
	if validateTarget {
		scopes = append(scopes, config.ScopeTarget)
	}

	title := "Validation: " + GetConfigFile()
	env, err := newRunEnv(cfg, GetCLIOverrides(), scopes...)
	if err != nil {
		newPrinter(cmd).Checks(title, []report.Check{
			{Name: "Configuration", Level: report.LevelFail, Detail: err.Error()},
		})
		return errValidationFailed
	}
	defer env.log.Sync()

	env.log.Info("Starting validation checks...")

	ctx, stop := env.signalContext(cmd)
	defer stop()

	checks := []report.Check{
		{Name: "Configuration", Level: report.LevelOK, Detail: GetConfigFile()},
		dumpCheck(env.cfg.Dump.Path),
		snapshotCheck(ctx, env.cfg),
	}
	if validateTarget {
		checks = append(checks, env.targetChecks(ctx)...)
	}

	if !newPrinter(cmd).Checks(title, checks) {
		return errValidationFailed
	}
	return nil
}

func dumpCheck(path string) report.Check {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return report.Check{Name: "Dump", Level: report.LevelFail, Detail: err.Error()}
	case info.IsDir():
		return report.Check{Name: "Dump", Level: report.LevelFail, Detail: path + " is a directory"}
	}
	return report.Check{Name: "Dump", Level: report.LevelOK,
		Detail: fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(info.Size())))}
}

// snapshotCheck only warns when no snapshot exists yet; extract creates it.
func snapshotCheck(ctx context.Context, cfg *config.Config) report.Check {
	store, err := snapshot.Open(cfg.Snapshot, cfg.Storage)
	if err != nil {
		return report.Check{Name: "Snapshot", Level: report.LevelFail, Detail: err.Error()}
	}
	g, err := store.Load(ctx)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		return report.Check{Name: "Snapshot", Level: report.LevelWarn, Detail: "none yet at " + store.Location()}
	case err != nil:
		return report.Check{Name: "Snapshot", Level: report.LevelFail, Detail: err.Error()}
	}
	return report.Check{Name: "Snapshot", Level: report.LevelOK,
		Detail: fmt.Sprintf("%s (%s categories, %s pairs)", store.Location(),
			humanize.Comma(int64(g.Len())), humanize.Comma(int64(g.Pairs())))}
}

func (e *runEnv) targetChecks(ctx context.Context) []report.Check {
	dbManager, err := e.connectTarget(ctx)
	if err != nil {
		return []report.Check{{Name: "Target connection", Level: report.LevelFail, Detail: err.Error()}}
	}
	defer dbManager.Close()

	checks := []report.Check{{Name: "Target connection", Level: report.LevelOK,
		Detail: fmt.Sprintf("%s/%s", e.cfg.Target.Host, e.cfg.Target.Database)}}

	checker, err := target.NewPreflightChecker(dbManager.Target, e.cfg.Target.Database, e.log)
	if err != nil {
		return append(checks, report.Check{Name: "Target schema", Level: report.LevelFail, Detail: err.Error()})
	}

	var codes *config.CodesConfig
	if e.cfg.Codes.Table != "" && e.cfg.Codes.Column != "" {
		codes = &e.cfg.Codes
	}
	if err := checker.RunAllChecks(ctx, e.cfg.TargetSchema, codes); err != nil {
		checks = append(checks, report.Check{Name: "Target schema", Level: report.LevelFail, Detail: err.Error()})
	} else {
		checks = append(checks, report.Check{Name: "Target schema", Level: report.LevelOK})
	}

	operations := []string{"sync"}
	if codes != nil {
		operations = append(operations, codesOperation(*codes))
	}
	for _, op := range operations {
		running, err := lock.IsRunning(ctx, dbManager.Target, op)
		switch {
		case err != nil:
			checks = append(checks, report.Check{Name: "Lock " + op, Level: report.LevelWarn, Detail: err.Error()})
		case running:
			checks = append(checks, report.Check{Name: "Lock " + op, Level: report.LevelWarn, Detail: "held by a running instance"})
		default:
			checks = append(checks, report.Check{Name: "Lock " + op, Level: report.LevelOK, Detail: "free"})
		}
	}
	return checks
}
