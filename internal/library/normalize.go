package library

import (
	"regexp"
	"strings"
)

// nonWordPattern matches anything that is not a word character, whitespace,
// or a CJK ideograph. Matched runes are stripped during normalization.
var nonWordPattern = regexp.MustCompile(`[^\w\s\p{Han}]`)

// whitespacePattern matches runs of whitespace for collapsing.
var whitespacePattern = regexp.MustCompile(`\s+`)

// Normalize canonicalizes a raw search string for use as a cache key:
// trims surrounding whitespace, lowercases, strips punctuation and symbols,
// and collapses internal whitespace runs to a single space. Deterministic and
// pure; always returns a string, possibly empty. The result is never shown to
// the user.
func Normalize(query string) string {
	s := strings.ToLower(strings.TrimSpace(query))
	s = nonWordPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
