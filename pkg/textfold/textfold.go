// Package textfold normalizes free text for cache keys and keyword matching.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuation = strings.NewReplacer(
	"’", "'", "‘", "'", "ʼ", "'",
	"–", "-", "—", "-", "−", "-",
	"«", "\"", "»", "\"",
	" ", " ", " ", " ",
)

// Normalize trims and lower-cases s. This is the cache key form of a query.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Fold returns Normalize(s) with diacritics removed and typographic quotes, dashes
// and non-breaking spaces mapped to their ASCII counterparts, so "Délai" and "delai"
// compare equal.
func Fold(s string) string {
	normalized := Normalize(s)

	// transform.Chain keeps internal state, so each call builds its own chain.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(stripMarks, normalized)
	if err != nil {
		folded = normalized
	}

	return punctuation.Replace(folded)
}

// ContainsAll reports whether every token occurs in haystack after folding both sides.
func ContainsAll(haystack string, tokens []string) bool {
	folded := Fold(haystack)

	for _, token := range tokens {
		if !strings.Contains(folded, Fold(token)) {
			return false
		}
	}

	return true
}
