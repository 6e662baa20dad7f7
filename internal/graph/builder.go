package graph

import (
	"strings"

	"github.com/dbsmedya/catalogsync/internal/extract"
	"github.com/dbsmedya/catalogsync/internal/logger"
)

// BuildStats describes what the reconstruction kept and dropped.
type BuildStats struct {
	Categories         int
	Pairs              int
	UnnamedCategories  int
	ReservedCategories int
	EmptyCategories    int
	MergedCategories   int
	UnresolvedProducts int
}

// Builder reconstructs the name-keyed graph from the ID indices of one pass.
type Builder struct {
	reserved map[string]struct{}
	logger   *logger.Logger
}

// NewBuilder creates a Builder that drops categories whose name matches
// one of reserved, ignoring case.
func NewBuilder(reserved []string, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.NewDefault()
	}
	set := make(map[string]struct{}, len(reserved))
	for _, name := range reserved {
		set[reservedKey(name)] = struct{}{}
	}
	return &Builder{reserved: set, logger: log}
}

func reservedKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsReserved reports whether name is one of the placeholder category names.
func (b *Builder) IsReserved(name string) bool {
	_, ok := b.reserved[reservedKey(name)]
	return ok
}

// Build walks categories in ascending legacy ID order. Unnamed and reserved
// categories are skipped, product IDs without a name are dropped, and
// categories that resolve to the same name are merged. Categories left
// without products are removed.
func (b *Builder) Build(idx *extract.Indices) (*Graph, BuildStats) {
	g := New()
	var stats BuildStats

	for _, categoryID := range idx.Adjacency.Categories() {
		name, ok := idx.Categories.Lookup(categoryID)
		if !ok {
			stats.UnnamedCategories++
			b.logger.Debugw("Skipping unnamed category", "category_id", categoryID)
			continue
		}
		if b.IsReserved(name) {
			stats.ReservedCategories++
			continue
		}

		var products []string
		for _, productID := range idx.Adjacency.Products(categoryID) {
			productName, ok := idx.Products.Lookup(productID)
			if !ok {
				stats.UnresolvedProducts++
				continue
			}
			products = append(products, productName)
		}

		if _, seen := g.categories.Get(name); seen {
			stats.MergedCategories++
		}
		g.Add(name, products...)
	}

	stats.EmptyCategories = g.Prune()
	stats.Categories = g.Len()
	stats.Pairs = g.Pairs()

	b.logger.Infow("Graph reconstructed",
		"categories", stats.Categories,
		"pairs", stats.Pairs,
		"merged", stats.MergedCategories,
		"skipped_unnamed", stats.UnnamedCategories,
		"skipped_reserved", stats.ReservedCategories,
		"empty", stats.EmptyCategories,
		"unresolved_products", stats.UnresolvedProducts,
	)
	return g, stats
}
