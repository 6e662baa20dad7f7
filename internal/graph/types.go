// Package graph holds the reconstructed category graph: category names
// mapped to the names of the products placed in them.
package graph

import (
	"sort"

	"github.com/elliotchance/orderedmap/v2"
)

// Graph maps a category name to a de-duplicated set of product names.
// Categories keep the order in which they were first added.
type Graph struct {
	categories *orderedmap.OrderedMap[string, map[string]struct{}]
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{categories: orderedmap.NewOrderedMap[string, map[string]struct{}]()}
}

// Add places products under category. Repeated names collapse.
func (g *Graph) Add(category string, products ...string) {
	set, ok := g.categories.Get(category)
	if !ok {
		set = make(map[string]struct{}, len(products))
		g.categories.Set(category, set)
	}
	for _, p := range products {
		set[p] = struct{}{}
	}
}

// Has reports whether product is placed under category.
func (g *Graph) Has(category, product string) bool {
	set, ok := g.categories.Get(category)
	if !ok {
		return false
	}
	_, ok = set[product]
	return ok
}

// Products returns the product names of a category in sorted order.
func (g *Graph) Products(category string) []string {
	set, ok := g.categories.Get(category)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Categories returns category names in insertion order.
func (g *Graph) Categories() []string {
	names := make([]string, 0, g.categories.Len())
	for el := g.categories.Front(); el != nil; el = el.Next() {
		names = append(names, el.Key)
	}
	return names
}

// Len returns the number of categories.
func (g *Graph) Len() int {
	return g.categories.Len()
}

// Pairs returns the total number of (category, product) pairs.
func (g *Graph) Pairs() int {
	n := 0
	for el := g.categories.Front(); el != nil; el = el.Next() {
		n += len(el.Value)
	}
	return n
}

// Prune removes categories without products and returns how many were removed.
func (g *Graph) Prune() int {
	var empty []string
	for el := g.categories.Front(); el != nil; el = el.Next() {
		if len(el.Value) == 0 {
			empty = append(empty, el.Key)
		}
	}
	for _, name := range empty {
		g.categories.Delete(name)
	}
	return len(empty)
}

// Each calls fn for every category in order with its sorted products.
// Iteration stops at the first error.
func (g *Graph) Each(fn func(category string, products []string) error) error {
	for el := g.categories.Front(); el != nil; el = el.Next() {
		if err := fn(el.Key, g.Products(el.Key)); err != nil {
			return err
		}
	}
	return nil
}
