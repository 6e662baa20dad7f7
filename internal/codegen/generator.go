// Package codegen generates secondary product codes and assigns them to
// rows of the live store, retrying on collisions.
package codegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Generator produces candidate codes.
type Generator interface {
	Generate() (string, error)
	// Valid reports whether code could have been produced by the generator.
	Valid(code string) bool
}

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// AlphanumericGenerator produces random upper-case alphanumeric codes.
type AlphanumericGenerator struct {
	Prefix string
	Length int
}

// Generate returns Prefix followed by Length random characters.
func (g AlphanumericGenerator) Generate() (string, error) {
	if g.Length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", g.Length)
	}
	var b strings.Builder
	b.Grow(len(g.Prefix) + g.Length)
	b.WriteString(g.Prefix)
	if err := writeRandom(&b, alphanumeric, g.Length); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Valid checks prefix, length and alphabet.
func (g AlphanumericGenerator) Valid(code string) bool {
	if len(code) != len(g.Prefix)+g.Length || !strings.HasPrefix(code, g.Prefix) {
		return false
	}
	for _, c := range code[len(g.Prefix):] {
		if !strings.ContainsRune(alphanumeric, c) {
			return false
		}
	}
	return true
}

// EAN13Generator produces 13-digit codes whose last digit is the weighted
// checksum of the first twelve.
type EAN13Generator struct {
	Prefix string
}

// Generate fills the digits after Prefix at random and appends the checksum.
func (g EAN13Generator) Generate() (string, error) {
	if len(g.Prefix) > 11 || strings.Trim(g.Prefix, "0123456789") != "" {
		return "", fmt.Errorf("ean13 prefix %q must be at most 11 digits", g.Prefix)
	}
	var b strings.Builder
	b.Grow(13)
	b.WriteString(g.Prefix)
	if err := writeRandom(&b, "0123456789", 12-len(g.Prefix)); err != nil {
		return "", err
	}
	body := b.String()
	return body + string(rune('0'+Checksum(body))), nil
}

// Valid reports whether code is 13 digits with a correct checksum and
// carries the prefix.
func (g EAN13Generator) Valid(code string) bool {
	return strings.HasPrefix(code, g.Prefix) && ValidEAN13(code)
}

// Checksum returns the check digit of a 12-digit body: digits at even
// positions weigh 1, odd positions weigh 3, and the digit is
// (10 - sum mod 10) mod 10.
func Checksum(body string) int {
	sum := 0
	for i := 0; i < len(body) && i < 12; i++ {
		d := int(body[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	return (10 - sum%10) % 10
}

// ValidEAN13 reports whether code is 13 digits with a correct check digit.
func ValidEAN13(code string) bool {
	if len(code) != 13 || strings.Trim(code, "0123456789") != "" {
		return false
	}
	return int(code[12]-'0') == Checksum(code[:12])
}

func writeRandom(b *strings.Builder, alphabet string, n int) error {
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return fmt.Errorf("failed to read random source: %w", err)
		}
		b.WriteByte(alphabet[v.Int64()])
	}
	return nil
}

// NewGenerator returns the generator for kind: "alphanumeric" or "ean13".
func NewGenerator(kind, prefix string, length int) (Generator, error) {
	switch kind {
	case "alphanumeric":
		return AlphanumericGenerator{Prefix: prefix, Length: length}, nil
	case "ean13":
		return EAN13Generator{Prefix: prefix}, nil
	default:
		return nil, fmt.Errorf("unknown code kind %q", kind)
	}
}
