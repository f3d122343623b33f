package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// NormalizeTitle folds case and strips combining marks (Arabic harakat) and
// tatweel so that searches ignore vocalization.
func NormalizeTitle(s string) string {
	strip := runes.Remove(runes.Predicate(func(r rune) bool {
		return r == tatweel || unicode.Is(unicode.Mn, r)
	}))
	t := transform.Chain(norm.NFD, strip, norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// MatchTitle reports whether title contains query after normalization.
// Whitespace in the query is significant; only an empty query matches
// everything.
func MatchTitle(title, query string) bool {
	q := NormalizeTitle(query)
	if q == "" {
		return true
	}
	return strings.Contains(NormalizeTitle(title), q)
}
