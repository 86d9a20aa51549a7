package parsing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics so "Operación" matches "operacion".
func Fold(s string) string {
	// transform chains keep state, so one is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// FirstContained returns the first needle contained in the folded haystack.
// Needles must already be folded.
func FirstContained(folded string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(folded, n) {
			return n, true
		}
	}
	return "", false
}

// Flatten collapses all whitespace, newlines included, into single spaces.
func Flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
