package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/catalogsync/internal/codegen"
	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/target"
)

var (
	codesKind   string
	codesColumn string
	codesTable  string
	codesDryRun bool
	codesForce  bool
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Assign unique codes to rows that have none",
	Long: `Codes fills an empty code column with freshly generated values. Every
candidate is checked by the store's unique index; a collision is retried
with a new candidate up to codes.max_attempts times.

Kinds:
  - alphanumeric: prefix followed by random A-Z0-9 characters
  - ean13:        12 digits starting with the prefix plus a check digit

Example:
  catalogsync codes --kind ean13 --column ean13
  catalogsync codes --dry-run`,
	RunE: runCodes,
}

func init() {
	codesCmd.Flags().StringVar(&codesKind, "kind", "",
		"Override code kind (alphanumeric, ean13)")
	codesCmd.Flags().StringVar(&codesTable, "table", "",
		"Override table holding the code column")
	codesCmd.Flags().StringVar(&codesColumn, "column", "",
		"Override code column")
	codesCmd.Flags().BoolVar(&codesDryRun, "dry-run", false,
		"Generate candidates without writing")
	codesCmd.Flags().BoolVar(&codesForce, "force", false,
		"Skip the run lock")

	rootCmd.AddCommand(codesCmd)
}

func applyCodesFlags(c *config.CodesConfig) {
	if codesKind != "" {
		c.Kind = codesKind
	}
	if codesTable != "" {
		c.Table = codesTable
	}
	if codesColumn != "" {
		c.Column = codesColumn
	}
}

func runCodes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyCodesFlags(&cfg.Codes)

	env, err := newRunEnv(cfg, GetCLIOverrides(), config.ScopeCodes)
	if err != nil {
		return err
	}
	defer env.log.Sync()

	codes := env.cfg.Codes
	gen, err := codegen.NewGenerator(codes.Kind, codes.Prefix, codes.Length)
	if err != nil {
		return err
	}

	env.log.Infow("Starting code assignment",
		"kind", codes.Kind,
		"column", codes.Table+"."+codes.Column,
		"dry_run", codesDryRun,
	)

	ctx, stop := env.signalContext(cmd)
	defer stop()

	dbManager, err := env.connectTarget(ctx)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	checker, err := target.NewPreflightChecker(dbManager.Target, env.cfg.Target.Database, env.log)
	if err != nil {
		return err
	}
	if err := checker.RunAllChecks(ctx, env.cfg.TargetSchema, &codes); err != nil {
		return fmt.Errorf("preflight checks failed: %w", err)
	}

	store, err := target.New(dbManager.Target, env.cfg.TargetSchema, env.log)
	if err != nil {
		return err
	}
	column, err := store.Codes(codes.Table, codes.Column)
	if err != nil {
		return err
	}

	assigner := codegen.NewAssigner(column, gen, codes.MaxAttempts, codesDryRun, env.log)
	return env.withRunLock(ctx, dbManager, codesOperation(codes), codesForce || codesDryRun, func(ctx context.Context) error {
		rep, err := assigner.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) && rep != nil {
				env.log.Warn("Code assignment interrupted; assigned codes are kept")
				newPrinter(cmd).Codes(rep)
				return nil
			}
			return fmt.Errorf("code assignment failed: %w", err)
		}

		newPrinter(cmd).Codes(rep)
		return nil
	})
}
