package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/catalogsync/internal/logger"
	"github.com/dbsmedya/catalogsync/internal/target"
)

var defaultSuffixes = []string{"FR", "EN", "ES", "DE", "IT"}

func TestMatcherResolve(t *testing.T) {
	entities := []target.Entity{
		{ID: 7, Name: "Brake Pads"},
		{ID: 3, Name: "Motors"},
		{ID: 4, Name: "motors"},
		{ID: 9, Name: "Pièces Détachées"},
		{ID: 12, Name: "Oil Filter Premium"},
		{ID: 15, Name: ""},
	}
	m := NewMatcher("product", entities, defaultSuffixes, true, logger.NewNop())

	tests := []struct {
		name     string
		input    string
		wantID   int64
		wantKind MatchKind
	}{
		{"exact", "Motors", 3, MatchExact},
		{"case insensitive picks lowest id", "MOTORS", 3, MatchExact},
		{"whitespace collapsed", "  Brake   Pads ", 7, MatchExact},
		{"locale suffix trimmed", "Brake Pads FR", 7, MatchTrimmed},
		{"bracketed locale suffix", "Brake Pads (EN)", 7, MatchTrimmed},
		{"accents stripped", "Pieces Detachees", 9, MatchTrimmed},
		{"legacy name contained in target", "Oil Filter", 12, MatchContains},
		{"target name contained in legacy", "Motors and Gearboxes", 3, MatchContains},
		{"no match", "Windscreen", 0, MatchNone},
		{"empty", "   ", 0, MatchNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, kind := m.Resolve(tt.input)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestMatcherContainsDisabled(t *testing.T) {
	m := NewMatcher("product", []target.Entity{{ID: 12, Name: "Oil Filter Premium"}}, defaultSuffixes, false, logger.NewNop())

	id, kind := m.Resolve("Oil Filter")
	assert.Equal(t, MatchNone, kind)
	assert.Zero(t, id)
}

func TestMatcherLen(t *testing.T) {
	m := NewMatcher("category", []target.Entity{{ID: 1, Name: "A"}, {ID: 2, Name: "a"}, {ID: 3, Name: "B"}}, nil, true, logger.NewNop())
	assert.Equal(t, 2, m.Len())
}

func TestTrimLocaleSuffix(t *testing.T) {
	suffixes := []string{"fr", "en"}
	tests := []struct {
		in   string
		want string
	}{
		{"motors fr", "motors"},
		{"motors-fr", "motors"},
		{"motors_en", "motors"},
		{"motors (fr)", "motors"},
		{"motors [en]", "motors"},
		{"chef", "chef"},
		{"fr", "fr"},
		{"motors", "motors"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, trimLocaleSuffix(tt.in, suffixes))
		})
	}
}

func TestMatchKindString(t *testing.T) {
	assert.Equal(t, "exact", MatchExact.String())
	assert.Equal(t, "trimmed", MatchTrimmed.String())
	assert.Equal(t, "contains", MatchContains.String())
	assert.Equal(t, "none", MatchNone.String())
}
