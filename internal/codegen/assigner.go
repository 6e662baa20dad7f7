package codegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/catalogsync/internal/logger"
	"github.com/dbsmedya/catalogsync/internal/target"
)

// ErrAttemptsExhausted is recorded when every candidate for a row collided.
var ErrAttemptsExhausted = errors.New("code attempts exhausted")

// Column is a code column of the live store.
type Column interface {
	Missing(ctx context.Context) ([]target.Entity, error)
	Assign(ctx context.Context, id int64, code string) (bool, error)
}

// Assignment is a code committed to a row.
type Assignment struct {
	ID       int64
	Code     string
	Attempts int
}

// Failure is a row left without a code.
type Failure struct {
	ID       int64
	Name     string
	Attempts int
	Err      error
}

// Report summarises one assignment run.
type Report struct {
	Column     string
	DryRun     bool
	Candidates int
	Assigned   []Assignment
	// Rows filled by another writer between the read and the update.
	Skipped  int
	Failures []Failure
}

// Assigner fills missing codes one row at a time.
type Assigner struct {
	column      Column
	gen         Generator
	maxAttempts int
	dryRun      bool
	logger      *logger.Logger
}

// NewAssigner creates an Assigner. maxAttempts bounds the candidates tried
// per row.
func NewAssigner(column Column, gen Generator, maxAttempts int, dryRun bool, log *logger.Logger) *Assigner {
	if log == nil {
		log = logger.NewDefault()
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Assigner{
		column:      column,
		gen:         gen,
		maxAttempts: maxAttempts,
		dryRun:      dryRun,
		logger:      log.WithStage("codes"),
	}
}

// Run assigns a code to every row that lacks one. A row that cannot be
// given a code is recorded in the report and the run moves on; only
// failing to list rows or a cancelled ctx stop it.
func (a *Assigner) Run(ctx context.Context) (*Report, error) {
	report := &Report{DryRun: a.dryRun}
	if s, ok := a.column.(fmt.Stringer); ok {
		report.Column = s.String()
	}

	rows, err := a.column.Missing(ctx)
	if err != nil {
		return nil, err
	}
	report.Candidates = len(rows)
	a.logger.Infow("Rows without code", "column", report.Column, "count", len(rows))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			a.logger.Warnf("Code assignment interrupted: %v (%d of %d rows done)", err, len(report.Assigned)+len(report.Failures)+report.Skipped, len(rows))
			return report, err
		}

		if a.dryRun {
			code, err := a.gen.Generate()
			if err != nil {
				return report, err
			}
			report.Assigned = append(report.Assigned, Assignment{ID: row.ID, Code: code, Attempts: 1})
			continue
		}

		assignment, ok, err := a.assign(ctx, row)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failures = append(report.Failures, Failure{ID: row.ID, Name: row.Name, Attempts: assignment.Attempts, Err: err})
			a.logger.Warnw("Failed to assign code", "id", row.ID, "name", row.Name, "attempts", assignment.Attempts, "error", err)
		case !ok:
			report.Skipped++
		default:
			report.Assigned = append(report.Assigned, assignment)
		}
	}

	a.logger.Infow("Code assignment complete",
		"assigned", len(report.Assigned),
		"skipped", report.Skipped,
		"failed", len(report.Failures),
	)
	return report, nil
}

// assign tries up to maxAttempts candidates for row. Collisions are
// retried with a fresh candidate; any other error ends the row.
func (a *Assigner) assign(ctx context.Context, row target.Entity) (Assignment, bool, error) {
	result := Assignment{ID: row.ID}
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		result.Attempts = attempt
		code, err := a.gen.Generate()
		if err != nil {
			return result, false, err
		}
		if !a.gen.Valid(code) {
			return result, false, fmt.Errorf("generated code %q does not validate", code)
		}

		ok, err := a.column.Assign(ctx, row.ID, code)
		if errors.Is(err, target.ErrDuplicateCode) {
			a.logger.Debugw("Code collision", "id", row.ID, "code", code, "attempt", attempt)
			continue
		}
		if err != nil {
			return result, false, err
		}
		result.Code = code
		return result, ok, nil
	}
	return result, false, fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, a.maxAttempts)
}
