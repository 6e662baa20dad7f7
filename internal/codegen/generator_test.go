package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{"400638133393", 1},
		{"590123412345", 7},
		{"000000000000", 0},
		{"978030640615", 7},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.body))
		})
	}
}

func TestValidEAN13(t *testing.T) {
	assert.True(t, ValidEAN13("4006381333931"))
	assert.True(t, ValidEAN13("5901234123457"))
	assert.False(t, ValidEAN13("4006381333932"))
	assert.False(t, ValidEAN13("400638133393"))
	assert.False(t, ValidEAN13("40063813339A1"))
}

func TestEAN13GeneratorAlwaysValid(t *testing.T) {
	for _, prefix := range []string{"", "2", "20045"} {
		g := EAN13Generator{Prefix: prefix}
		for i := 0; i < 200; i++ {
			code, err := g.Generate()
			require.NoError(t, err)
			require.Len(t, code, 13)
			require.True(t, g.Valid(code), code)
			require.Equal(t, prefix, code[:len(prefix)])
		}
	}
}

func TestEAN13GeneratorRejectsBadPrefix(t *testing.T) {
	_, err := EAN13Generator{Prefix: "12ab"}.Generate()
	assert.Error(t, err)

	_, err = EAN13Generator{Prefix: "123456789012"}.Generate()
	assert.Error(t, err)
}

func TestAlphanumericGenerator(t *testing.T) {
	g := AlphanumericGenerator{Prefix: "SKU-", Length: 8}
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, code, 12)
		assert.True(t, g.Valid(code), code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 95)

	assert.False(t, g.Valid("SKU-abcdefgh"))
	assert.False(t, g.Valid("XYZ-ABCDEFGH"))

	_, err := AlphanumericGenerator{Length: 0}.Generate()
	assert.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator("ean13", "20", 0)
	require.NoError(t, err)
	assert.IsType(t, EAN13Generator{}, g)

	g, err = NewGenerator("alphanumeric", "", 10)
	require.NoError(t, err)
	assert.IsType(t, AlphanumericGenerator{}, g)

	_, err = NewGenerator("isbn", "", 0)
	assert.Error(t, err)
}
