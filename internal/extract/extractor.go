// Package extract turns tuples of the legacy tables into name and
// adjacency indices using fixed column positions.
package extract

import (
	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/dump"
	"github.com/dbsmedya/catalogsync/internal/logger"
)

// Bare names of the legacy tables of interest, before the table prefix.
const (
	CategoryLangTable    = "category_lang"
	ProductLangTable     = "product_lang"
	ProductTable         = "product"
	CategoryProductTable = "category_product"
)

// maxWarningsPerTable bounds per-row warnings so a badly broken table
// does not flood the log; the rest are only counted.
const maxWarningsPerTable = 25

// TableStats counts what happened to the rows of one table.
type TableStats struct {
	Rows    int64
	Applied int64
	Skipped int64
}

// Stats is keyed by the prefixed table name.
type Stats map[string]*TableStats

// Skipped returns the total number of skipped rows.
func (s Stats) Skipped() int64 {
	var n int64
	for _, t := range s {
		n += t.Skipped
	}
	return n
}

type role int

const (
	roleCategoryName role = iota
	roleProductName
	roleProductBase
	roleJunction
)

// Extractor routes tuples to the index updates of their table.
type Extractor struct {
	roles   map[string]role
	columns config.ColumnsConfig
	indices *Indices
	stats   Stats
	logger  *logger.Logger
}

// New creates an Extractor for the legacy schema described by cfg.
func New(cfg config.LegacyConfig, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewDefault()
	}
	roles := map[string]role{
		cfg.TableName(CategoryLangTable):    roleCategoryName,
		cfg.TableName(ProductLangTable):     roleProductName,
		cfg.TableName(ProductTable):         roleProductBase,
		cfg.TableName(CategoryProductTable): roleJunction,
	}
	stats := make(Stats, len(roles))
	for table := range roles {
		stats[table] = &TableStats{}
	}
	return &Extractor{
		roles:   roles,
		columns: cfg.Columns,
		indices: NewIndices(cfg.PreferredLocale),
		stats:   stats,
		logger:  log,
	}
}

// Tables returns the prefixed names the dump reader must forward.
func (e *Extractor) Tables() []string {
	tables := make([]string, 0, len(e.roles))
	for table := range e.roles {
		tables = append(tables, table)
	}
	return tables
}

// Indices returns the indices built so far.
func (e *Extractor) Indices() *Indices {
	return e.indices
}

// Stats returns per-table row counters.
func (e *Extractor) Stats() Stats {
	return e.stats
}

// Handle applies one tuple. Its signature matches dump.Handler.
// Rows that cannot be applied are logged and skipped.
func (e *Extractor) Handle(table string, line int, values []dump.Value) {
	r, ok := e.roles[table]
	if !ok {
		return
	}
	st := e.stats[table]
	st.Rows++

	var reason string
	switch r {
	case roleCategoryName:
		reason = e.applyName(e.indices.Categories, e.columns.CategoryLang, values)
	case roleProductName:
		reason = e.applyName(e.indices.Products, e.columns.ProductLang, values)
	case roleProductBase:
		reason = e.applyDefaultCategory(values)
	case roleJunction:
		reason = e.applyJunction(values)
	}

	if reason == "" {
		st.Applied++
		return
	}

	st.Skipped++
	switch {
	case st.Skipped <= maxWarningsPerTable:
		e.logger.Warnw("Skipping malformed row", "table", table, "line", line, "reason", reason)
	case st.Skipped == maxWarningsPerTable+1:
		e.logger.Warnw("Further malformed rows will only be counted", "table", table)
	}
}

func (e *Extractor) applyName(idx *NameIndex, cols config.NameColumns, values []dump.Value) string {
	if !hasColumns(values, cols.ID, cols.Locale, cols.Name) {
		return "row has too few columns"
	}
	id, ok := values[cols.ID].AsInt64()
	if !ok {
		return "id is not numeric"
	}
	locale, ok := values[cols.Locale].AsInt64()
	if !ok {
		locale = -1
	}
	if values[cols.Name].IsNull() {
		return "name is null"
	}
	idx.Add(id, locale, values[cols.Name].AsString())
	return ""
}

func (e *Extractor) applyDefaultCategory(values []dump.Value) string {
	cols := e.columns.Product
	if !hasColumns(values, cols.ID, cols.DefaultCategory) {
		return "row has too few columns"
	}
	id, ok := values[cols.ID].AsInt64()
	if !ok {
		return "id is not numeric"
	}
	if values[cols.DefaultCategory].IsNull() {
		return ""
	}
	categoryID, ok := values[cols.DefaultCategory].AsInt64()
	if !ok {
		return "default category is not numeric"
	}
	if categoryID > 0 {
		e.indices.Adjacency.Add(categoryID, id)
	}
	return ""
}

func (e *Extractor) applyJunction(values []dump.Value) string {
	cols := e.columns.CategoryProduct
	if !hasColumns(values, cols.Category, cols.Product) {
		return "row has too few columns"
	}
	categoryID, ok := values[cols.Category].AsInt64()
	if !ok {
		return "category id is not numeric"
	}
	productID, ok := values[cols.Product].AsInt64()
	if !ok {
		return "product id is not numeric"
	}
	e.indices.Adjacency.Add(categoryID, productID)
	return ""
}

func hasColumns(values []dump.Value, positions ...int) bool {
	for _, p := range positions {
		if p >= len(values) {
			return false
		}
	}
	return true
}
