package target

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/logger"
)

// PreflightError describes a failed schema check.
type PreflightError struct {
	Check   string
	Message string
	Items   []string
}

func (e *PreflightError) Error() string {
	if len(e.Items) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Check, e.Message, strings.Join(e.Items, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

// PreflightChecker verifies that the live schema has the tables, columns
// and unique keys the pipeline relies on.
type PreflightChecker struct {
	db     *sql.DB
	dbName string
	logger *logger.Logger
}

// NewPreflightChecker creates a checker for database dbName.
func NewPreflightChecker(db *sql.DB, dbName string, log *logger.Logger) (*PreflightChecker, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if dbName == "" {
		return nil, fmt.Errorf("target database name is required")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &PreflightChecker{db: db, dbName: dbName, logger: log}, nil
}

// RequiredColumns lists the columns each configured table must have.
// codes may be nil when code assignment is not part of the run.
func RequiredColumns(schema config.TargetSchemaConfig, codes *config.CodesConfig) map[string][]string {
	req := map[string][]string{
		schema.CategoryTable:    {schema.IDColumn, schema.NameColumn},
		schema.ProductTable:     {schema.IDColumn, schema.NameColumn, schema.ReferenceColumn},
		schema.AssociationTable: {schema.AssocCategoryCol, schema.AssocProductCol},
	}
	if codes != nil {
		cols := append(append([]string(nil), req[codes.Table]...), schema.IDColumn, schema.NameColumn, codes.Column)
		req[codes.Table] = dedupe(cols)
	}
	return req
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ValidateColumnsExist checks that every table and column in required exists.
func (p *PreflightChecker) ValidateColumnsExist(ctx context.Context, required map[string][]string) error {
	tables := make([]string, 0, len(required))
	for table := range required {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	query := `
		SELECT TABLE_NAME, COLUMN_NAME
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME IN (` + placeholders(len(tables)) + `)`

	args := make([]interface{}, 0, len(tables)+1)
	args = append(args, p.dbName)
	for _, t := range tables {
		args = append(args, t)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		existing[table+"."+column] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing []string
	for _, table := range tables {
		for _, column := range required[table] {
			if _, ok := existing[table+"."+column]; !ok {
				missing = append(missing, table+"."+column)
			}
		}
	}
	if len(missing) > 0 {
		return &PreflightError{
			Check:   "COLUMN_EXISTENCE_CHECK",
			Message: "columns not found in target database",
			Items:   missing,
		}
	}

	p.logger.Debugf("Column existence check PASSED (%d tables)", len(tables))
	return nil
}

// HasUniqueKey reports whether table has a unique index made of exactly
// columns, in any order.
func (p *PreflightChecker) HasUniqueKey(ctx context.Context, table string, columns ...string) (bool, error) {
	const query = `
		SELECT INDEX_NAME, COLUMN_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME = ?
		AND NON_UNIQUE = 0`

	rows, err := p.db.QueryContext(ctx, query, p.dbName, table)
	if err != nil {
		return false, fmt.Errorf("failed to query indexes of %s: %w", table, err)
	}
	defer rows.Close()

	indexes := make(map[string][]string)
	for rows.Next() {
		var index, column string
		if err := rows.Scan(&index, &column); err != nil {
			return false, err
		}
		indexes[index] = append(indexes[index], column)
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	want := append([]string(nil), columns...)
	sort.Strings(want)
	for _, cols := range indexes {
		sort.Strings(cols)
		if strings.Join(cols, ",") == strings.Join(want, ",") {
			return true, nil
		}
	}
	return false, nil
}

// RunAllChecks verifies columns and warns about missing unique keys.
// Without them INSERT IGNORE cannot keep links unique across concurrent
// writers and code collisions go undetected, so a missing code key fails.
func (p *PreflightChecker) RunAllChecks(ctx context.Context, schema config.TargetSchemaConfig, codes *config.CodesConfig) error {
	p.logger.Info("Running preflight checks...")

	if err := p.ValidateColumnsExist(ctx, RequiredColumns(schema, codes)); err != nil {
		return err
	}

	ok, err := p.HasUniqueKey(ctx, schema.AssociationTable, schema.AssocCategoryCol, schema.AssocProductCol)
	if err != nil {
		return err
	}
	if !ok {
		p.logger.Warnw("Association table has no unique key on the link columns; duplicates are only avoided by the preloaded link set",
			"table", schema.AssociationTable)
	}

	if codes != nil {
		ok, err := p.HasUniqueKey(ctx, codes.Table, codes.Column)
		if err != nil {
			return err
		}
		if !ok {
			return &PreflightError{
				Check:   "UNIQUE_CODE_CHECK",
				Message: "code column needs a unique index so collisions are rejected by the store",
				Items:   []string{codes.Table + "." + codes.Column},
			}
		}
	}

	p.logger.Info("All preflight checks PASSED")
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
