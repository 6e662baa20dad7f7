// Package reconcile resolves legacy names to live target entities and
// creates the missing category/product links in bounded batches.
package reconcile

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dbsmedya/catalogsync/internal/logger"
	"github.com/dbsmedya/catalogsync/internal/target"
)

// MatchKind tells which strategy resolved a name.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchTrimmed
	MatchContains
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchTrimmed:
		return "trimmed"
	case MatchContains:
		return "contains"
	default:
		return "none"
	}
}

type entry struct {
	key string
	id  int64
}

// Matcher resolves names against one kind of target entity. Resolution is
// an exact case-insensitive match first, then a match with locale suffixes
// and accents removed, then, when enabled, a substring match in either
// direction. Ties go to the lowest target ID.
type Matcher struct {
	kind     string
	exact    map[string]int64
	trimmed  map[string]int64
	entries  []entry
	suffixes []string
	contains bool
	logger   *logger.Logger
}

// NewMatcher indexes entities. kind names them in log output.
func NewMatcher(kind string, entities []target.Entity, localeSuffixes []string, containsFallback bool, log *logger.Logger) *Matcher {
	if log == nil {
		log = logger.NewDefault()
	}

	sorted := append([]target.Entity(nil), entities...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	suffixes := make([]string, 0, len(localeSuffixes))
	for _, s := range localeSuffixes {
		if f := foldKey(s); f != "" {
			suffixes = append(suffixes, f)
		}
	}

	m := &Matcher{
		kind:     kind,
		exact:    make(map[string]int64, len(sorted)),
		trimmed:  make(map[string]int64, len(sorted)),
		suffixes: suffixes,
		contains: containsFallback,
		logger:   log,
	}
	for _, e := range sorted {
		key := foldKey(e.Name)
		if key == "" {
			continue
		}
		if _, ok := m.exact[key]; !ok {
			m.exact[key] = e.ID
		}
		tk := m.trimKey(key)
		if tk == "" {
			continue
		}
		if _, ok := m.trimmed[tk]; !ok {
			m.trimmed[tk] = e.ID
		}
		m.entries = append(m.entries, entry{key: tk, id: e.ID})
	}
	return m
}

// Len returns the number of distinct names indexed.
func (m *Matcher) Len() int {
	return len(m.exact)
}

// Resolve returns the target ID for name and the strategy that found it.
func (m *Matcher) Resolve(name string) (int64, MatchKind) {
	key := foldKey(name)
	if key == "" {
		return 0, MatchNone
	}
	if id, ok := m.exact[key]; ok {
		return id, MatchExact
	}

	tk := m.trimKey(key)
	if tk == "" {
		return 0, MatchNone
	}
	if id, ok := m.trimmed[tk]; ok {
		m.logger.Debugw("Fuzzy match", "kind", m.kind, "name", name, "id", id, "strategy", MatchTrimmed.String())
		return id, MatchTrimmed
	}

	if !m.contains {
		return 0, MatchNone
	}
	for _, e := range m.entries {
		if strings.Contains(e.key, tk) || strings.Contains(tk, e.key) {
			m.logger.Debugw("Fuzzy match", "kind", m.kind, "name", name, "id", e.id, "strategy", MatchContains.String())
			return e.id, MatchContains
		}
	}
	return 0, MatchNone
}

// foldKey case-folds s and collapses runs of whitespace.
func foldKey(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}

// trimKey strips accents and one trailing locale marker such as " FR",
// "-fr" or "(FR)" from an already folded key.
func (m *Matcher) trimKey(key string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), key)
	if err != nil {
		stripped = key
	}
	return trimLocaleSuffix(stripped, m.suffixes)
}

func trimLocaleSuffix(key string, suffixes []string) string {
	base := strings.TrimRight(key, " )]")
	for _, s := range suffixes {
		if !strings.HasSuffix(base, s) {
			continue
		}
		rest := base[:len(base)-len(s)]
		if rest == "" {
			continue
		}
		switch rest[len(rest)-1] {
		case ' ', '-', '_', '(', '[':
			if trimmed := strings.TrimRight(rest, " -_(["); trimmed != "" {
				return trimmed
			}
		}
	}
	return key
}
