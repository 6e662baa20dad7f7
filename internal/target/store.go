// Package target reads and writes the live catalog store: categories,
// products, their associations and secondary codes. Only associations are
// created and only empty code columns are filled; nothing is deleted.
package target

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/logger"
	"github.com/dbsmedya/catalogsync/internal/sqlutil"
)

// ErrDuplicateCode is returned when a code collides with one already stored.
var ErrDuplicateCode = errors.New("code already exists")

// maxStatementRetries bounds re-execution after a deadlock or lock wait timeout.
const maxStatementRetries = 3

// Entity is a category or product row of the live store.
type Entity struct {
	ID        int64
	Name      string
	Reference string
}

// Association links a live category to a live product.
type Association struct {
	CategoryID int64
	ProductID  int64
}

// Store runs statements against the live store using configured table and
// column names.
type Store struct {
	db     *sql.DB
	logger *logger.Logger

	categoryTable string
	productTable  string
	assocTable    string
	idCol         string
	nameCol       string
	referenceCol  string
	assocCatCol   string
	assocProdCol  string
}

// New creates a Store. Every configured identifier is validated and quoted
// once here.
func New(db *sql.DB, schema config.TargetSchemaConfig, log *logger.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	q, err := sqlutil.QuoteAll(
		schema.CategoryTable, schema.ProductTable, schema.AssociationTable,
		schema.IDColumn, schema.NameColumn, schema.ReferenceColumn,
		schema.AssocCategoryCol, schema.AssocProductCol,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid target schema: %w", err)
	}

	return &Store{
		db:            db,
		logger:        log,
		categoryTable: q[0],
		productTable:  q[1],
		assocTable:    q[2],
		idCol:         q[3],
		nameCol:       q[4],
		referenceCol:  q[5],
		assocCatCol:   q[6],
		assocProdCol:  q[7],
	}, nil
}

// LoadCategories returns every live category with its name.
func (s *Store) LoadCategories(ctx context.Context) ([]Entity, error) {
	query := fmt.Sprintf("SELECT %s, COALESCE(%s, '') FROM %s ORDER BY %s",
		s.idCol, s.nameCol, s.categoryTable, s.idCol)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadProducts returns every live product with its name and legacy reference.
func (s *Store) LoadProducts(ctx context.Context) ([]Entity, error) {
	query := fmt.Sprintf("SELECT %s, COALESCE(%s, ''), COALESCE(%s, '') FROM %s ORDER BY %s",
		s.idCol, s.nameCol, s.referenceCol, s.productTable, s.idCol)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Reference); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadAssociations returns the set of existing category/product links.
func (s *Store) LoadAssociations(ctx context.Context) (map[Association]struct{}, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s", s.assocCatCol, s.assocProdCol, s.assocTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load associations: %w", err)
	}
	defer rows.Close()

	out := make(map[Association]struct{})
	for rows.Next() {
		var a Association
		if err := rows.Scan(&a.CategoryID, &a.ProductID); err != nil {
			return nil, fmt.Errorf("failed to scan association: %w", err)
		}
		out[a] = struct{}{}
	}
	return out, rows.Err()
}

// CountAssociations returns the number of rows in the association table.
func (s *Store) CountAssociations(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.assocTable)
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count associations: %w", err)
	}
	return n, nil
}

// InsertAssociation creates the link unless it already exists. It reports
// whether a row was created; an existing link is not an error.
func (s *Store) InsertAssociation(ctx context.Context, a Association) (bool, error) {
	query := fmt.Sprintf("INSERT IGNORE INTO %s (%s, %s) VALUES (?, ?)",
		s.assocTable, s.assocCatCol, s.assocProdCol)

	result, err := s.execWithRetry(ctx, query, a.CategoryID, a.ProductID)
	if err != nil {
		return false, fmt.Errorf("failed to insert association %d/%d: %w", a.CategoryID, a.ProductID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	backoff := 50 * time.Millisecond
	for attempt := 1; ; attempt++ {
		result, err := s.db.ExecContext(ctx, query, args...)
		if err == nil || !sqlutil.IsRetryable(err) || attempt == maxStatementRetries {
			return result, err
		}
		s.logger.Debugw("Retrying statement", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// Codes returns a handle on one code column of table. Rows are identified
// by the configured id column and described by the configured name column.
func (s *Store) Codes(table, column string) (*CodeColumn, error) {
	q, err := sqlutil.QuoteAll(table, column)
	if err != nil {
		return nil, fmt.Errorf("invalid code column: %w", err)
	}
	return &CodeColumn{store: s, table: q[0], column: q[1], name: table + "." + column}, nil
}

// CodeColumn reads and fills one secondary-code column.
type CodeColumn struct {
	store  *Store
	table  string
	column string
	name   string
}

// String returns "table.column".
func (c *CodeColumn) String() string {
	return c.name
}

// Missing returns the rows whose code is NULL or empty, in id order.
func (c *CodeColumn) Missing(ctx context.Context) ([]Entity, error) {
	s := c.store
	query := fmt.Sprintf("SELECT %s, COALESCE(%s, '') FROM %s WHERE %s IS NULL OR %s = '' ORDER BY %s",
		s.idCol, s.nameCol, c.table, c.column, c.column, s.idCol)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows without %s: %w", c.name, err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Assign stores code on row id when the row still has no code. It returns
// false when another writer filled the column first, and ErrDuplicateCode
// when the unique key rejects the value.
func (c *CodeColumn) Assign(ctx context.Context, id int64, code string) (bool, error) {
	s := c.store
	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ? AND (%s IS NULL OR %s = '')",
		c.table, c.column, s.idCol, c.column, c.column)

	result, err := s.execWithRetry(ctx, query, code, id)
	if err != nil {
		if sqlutil.IsDuplicateEntry(err) {
			return false, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
		return false, fmt.Errorf("failed to assign %s on row %d: %w", c.name, id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}
