package dump

import (
	"strings"
)

// SplitTuples splits one cleaned VALUES clause into raw tuple substrings,
// each still wrapped in its own parentheses.
//
// A comma separates tuples only when it is outside a quoted string, the
// nearest non-blank character before it is ')' and the nearest non-blank
// character after it is '('. Every other comma stays in the current tuple.
// Segments that do not start with '(' after trimming are discarded.
func SplitTuples(clause string) []string {
	var tuples []string
	start := 0
	inQuote := false
	escaped := false

	for i := 0; i < len(clause); i++ {
		c := clause[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '\'':
			inQuote = !inQuote
		case c == ',' && !inQuote:
			if prevNonBlank(clause, i) == ')' && nextNonBlank(clause, i) == '(' {
				tuples = appendTuple(tuples, clause[start:i])
				start = i + 1
			}
		}
	}
	return appendTuple(tuples, clause[start:])
}

func appendTuple(tuples []string, segment string) []string {
	segment = strings.TrimSpace(segment)
	if !strings.HasPrefix(segment, "(") {
		return tuples
	}
	return append(tuples, segment)
}

func prevNonBlank(s string, i int) byte {
	for j := i - 1; j >= 0; j-- {
		if !isBlank(s[j]) {
			return s[j]
		}
	}
	return 0
}

func nextNonBlank(s string, i int) byte {
	for j := i + 1; j < len(s); j++ {
		if !isBlank(s[j]) {
			return s[j]
		}
	}
	return 0
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// SplitFields splits the inside of one tuple (outer parentheses already
// removed) into raw field strings. Backslash escapes are kept verbatim so
// that ParseField can decode them.
func SplitFields(inner string) []string {
	var fields []string
	var current strings.Builder
	inQuote := false
	escaped := false

	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '\'':
			inQuote = !inQuote
		case c == ',' && !inQuote:
			fields = append(fields, current.String())
			current.Reset()
			continue
		}
		current.WriteByte(c)
	}
	return append(fields, current.String())
}

// ParseField types one raw field. It never fails: anything that is not
// NULL, a quoted literal or a numeral is returned as a string.
func ParseField(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "NULL" {
		return NullValue()
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return StringValue(Unescape(s[1 : len(s)-1]))
	}
	if isNumeral(s) {
		return NumberValue(s)
	}
	return StringValue(s)
}

// ParseTuple strips the outer parentheses of a raw tuple and types every field.
func ParseTuple(raw string) []Value {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	if strings.TrimSpace(s) == "" {
		return nil
	}

	raws := SplitFields(s)
	values := make([]Value, len(raws))
	for i, f := range raws {
		values[i] = ParseField(f)
	}
	return values
}

// escapeChain lists the escape replacements in the order they are applied.
// Each step runs over the output of the previous one, so a doubled
// backslash followed by n ends up as a newline.
var escapeChain = []struct{ from, to string }{
	{`\'`, "'"},
	{`\"`, `"`},
	{`\\`, `\`},
	{`\r`, "\r"},
	{`\n`, "\n"},
}

// Unescape resolves \' \" \\ \r and \n by applying escapeChain in order.
// Unknown sequences are kept as written.
func Unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	for _, r := range escapeChain {
		s = strings.ReplaceAll(s, r.from, r.to)
	}
	return s
}
