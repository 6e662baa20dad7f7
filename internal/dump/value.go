// Package dump streams a MySQL-style dump file and tokenizes the VALUES
// clauses of the tables a caller is interested in.
package dump

import (
	"strconv"
	"strings"
)

// Kind is the type of a decoded field.
type Kind int

const (
	// Null is the unquoted NULL literal.
	Null Kind = iota
	// Number is an unquoted decimal or integer numeral.
	Number
	// String is a quoted literal, or anything that is neither NULL nor a numeral.
	String
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Number:
		return "number"
	default:
		return "string"
	}
}

// Value is one typed field of a tuple. Text holds the decoded string for
// String values and the numeral as written for Number values.
type Value struct {
	Kind Kind
	Text string
}

// NullValue returns the null value.
func NullValue() Value { return Value{Kind: Null} }

// NumberValue returns a numeric value with the given literal.
func NumberValue(lit string) Value { return Value{Kind: Number, Text: lit} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{Kind: String, Text: s} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == Null }

// AsInt64 coerces v to an integer. Numerals and quoted strings holding an
// integral numeral both convert; null and everything else report false.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind == Null {
		return 0, false
	}
	s := strings.TrimSpace(v.Text)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if !isNumeral(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// AsString returns the text of v; null becomes the empty string.
func (v Value) AsString() string {
	if v.Kind == Null {
		return ""
	}
	return v.Text
}

// isNumeral reports whether s is a plain decimal numeral: an optional sign,
// digits with at most one decimal point, and an optional exponent.
func isNumeral(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits := 0
	dot := false
mantissa:
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot:
			dot = true
		default:
			break mantissa
		}
	}
	if digits == 0 {
		return false
	}
	if i == len(s) {
		return true
	}
	if s[i] != 'e' && s[i] != 'E' {
		return false
	}
	i++
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	expDigits := 0
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		expDigits++
	}
	return expDigits > 0
}
