package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases a name, strips accents and collapses whitespace.
// It is used for fuzzy outcome comparisons, never for slug generation.
func Normalize(name string) string {
	name = strings.ToLower(name)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, name); err == nil {
		name = folded
	}

	return strings.Join(strings.Fields(name), " ")
}

// NamesOverlap reports whether either normalized name contains the other.
// Empty names never match.
func NamesOverlap(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
