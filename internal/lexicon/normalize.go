package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, trims, and strips diacritics ("São" -> "sao") so the
// synonym tables can be keyed on plain ASCII-ish forms.
func Normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Singularize applies the plural->singular heuristic used for entity names:
// "opportunities" -> "opportunity", "accounts" -> "account". Words ending in
// "ss" are left alone ("address" is not a plural).
func Singularize(s string) string {
	switch {
	case strings.HasSuffix(s, "ies") && len(s) > 3:
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(s, "ss"):
		return s
	case strings.HasSuffix(s, "s") && len(s) > 1:
		return s[:len(s)-1]
	default:
		return s
	}
}

// Tokenize normalizes free text and splits it on whitespace.
func Tokenize(s string) []string {
	return strings.Fields(Normalize(s))
}
