package scale

import (
	"strings"
	"unicode"
)

// NamingMode selects how field names are cased in decoded objects. Call
// arguments use snake_case; everything else uses camelCase. The mode is a
// decode-time parameter threaded through every recursive call, never a
// type-level property.
type NamingMode int

const (
	CamelCase NamingMode = iota
	SnakeCase
)

// fieldKey cases a metadata field name for the given mode. Metadata field
// names arrive in snake_case.
func fieldKey(name string, mode NamingMode) string {
	if mode == SnakeCase {
		return toSnake(name)
	}
	return toCamel(name)
}

// lowerFirst lowercases the first character only, e.g. "ExtrinsicSuccess"
// becomes "extrinsicSuccess".
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// toCamel converts snake_case to camelCase and lowercases a leading capital.
func toCamel(s string) string {
	if !strings.Contains(s, "_") {
		return lowerFirst(s)
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() == 0 && i == 0 {
			b.WriteString(lowerFirst(p))
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// toSnake converts camelCase to snake_case; names already in snake_case pass
// through unchanged.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
