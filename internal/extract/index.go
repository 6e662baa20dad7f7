package extract

import (
	"sort"
	"strings"
)

// NameIndex maps a legacy ID to its display name.
//
// A row in the preferred locale always wins and is never replaced. Until
// one is seen, the first name encountered for an ID is kept.
type NameIndex struct {
	preferredLocale int64
	names           map[int64]string
	preferred       map[int64]bool
}

// NewNameIndex creates an empty index favouring preferredLocale.
func NewNameIndex(preferredLocale int64) *NameIndex {
	return &NameIndex{
		preferredLocale: preferredLocale,
		names:           make(map[int64]string),
		preferred:       make(map[int64]bool),
	}
}

// Add records one localized name. It reports whether the index changed.
func (n *NameIndex) Add(id, locale int64, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || n.preferred[id] {
		return false
	}
	if locale == n.preferredLocale {
		n.names[id] = name
		n.preferred[id] = true
		return true
	}
	if _, seen := n.names[id]; seen {
		return false
	}
	n.names[id] = name
	return true
}

// Lookup returns the name recorded for id.
func (n *NameIndex) Lookup(id int64) (string, bool) {
	name, ok := n.names[id]
	return name, ok
}

// Len returns the number of resolved IDs.
func (n *NameIndex) Len() int {
	return len(n.names)
}

// AdjacencyIndex maps a legacy category ID to the set of legacy product IDs
// placed in it. Duplicate pairs collapse.
type AdjacencyIndex struct {
	products map[int64]map[int64]struct{}
	pairs    int
}

// NewAdjacencyIndex creates an empty index.
func NewAdjacencyIndex() *AdjacencyIndex {
	return &AdjacencyIndex{products: make(map[int64]map[int64]struct{})}
}

// Add places productID under categoryID. It reports whether the pair is new.
func (a *AdjacencyIndex) Add(categoryID, productID int64) bool {
	set, ok := a.products[categoryID]
	if !ok {
		set = make(map[int64]struct{})
		a.products[categoryID] = set
	}
	if _, exists := set[productID]; exists {
		return false
	}
	set[productID] = struct{}{}
	a.pairs++
	return true
}

// Has reports whether productID is placed under categoryID.
func (a *AdjacencyIndex) Has(categoryID, productID int64) bool {
	_, ok := a.products[categoryID][productID]
	return ok
}

// Categories returns every category ID in ascending order.
func (a *AdjacencyIndex) Categories() []int64 {
	ids := make([]int64, 0, len(a.products))
	for id := range a.products {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Products returns the product IDs of a category in ascending order.
func (a *AdjacencyIndex) Products(categoryID int64) []int64 {
	set := a.products[categoryID]
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Invert builds a product ID to category IDs lookup. Category IDs are ascending.
func (a *AdjacencyIndex) Invert() map[int64][]int64 {
	inv := make(map[int64][]int64)
	for _, categoryID := range a.Categories() {
		for productID := range a.products[categoryID] {
			inv[productID] = append(inv[productID], categoryID)
		}
	}
	return inv
}

// Len returns the number of categories.
func (a *AdjacencyIndex) Len() int {
	return len(a.products)
}

// Pairs returns the number of distinct (category, product) pairs.
func (a *AdjacencyIndex) Pairs() int {
	return a.pairs
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Indices is everything one pass over the dump produces.
type Indices struct {
	Categories *NameIndex
	Products   *NameIndex
	Adjacency  *AdjacencyIndex
}

// NewIndices creates empty indices.
func NewIndices(preferredLocale int64) *Indices {
	return &Indices{
		Categories: NewNameIndex(preferredLocale),
		Products:   NewNameIndex(preferredLocale),
		Adjacency:  NewAdjacencyIndex(),
	}
}
