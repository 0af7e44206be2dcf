package contracts

import "strings"

// Symbol is a case-normalized ticker identifier (e.g., "2330", "NVDA").
// Equality is exact string match after normalization.
type Symbol string

// NormalizeSymbol converts a raw ticker into canonical form: trimmed,
// uppercased, with exchange suffixes (".TW", ".TWO") stripped so that the
// broker list and the cache agree on the same key.
func NormalizeSymbol(raw string) Symbol {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, ".TWO")
	s = strings.TrimSuffix(s, ".TW")
	return Symbol(s)
}

// String returns the symbol as a plain string.
func (s Symbol) String() string {
	return string(s)
}

// IsZero reports whether the symbol is empty.
func (s Symbol) IsZero() bool {
	return s == ""
}
