package parsing

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxPartyLength is the rune length after which sender and receiver values are
// truncated with an ellipsis.
const MaxPartyLength = 40

// stopWords end a captured name where the next label follows the value on the
// same line. "de" is left out so compound surnames survive.
var stopWords = map[string]bool{
	"para": true, "cuit": true, "cuil": true, "cvu": true, "cbu": true,
	"dni": true, "motivo": true, "concepto": true, "banco": true, "alias": true,
	"desde": true, "hacia": true, "destinatario": true, "origen": true, "destino": true,
}

// Labeled builds the ordered patterns for a value introduced by one of the
// labels: first the line form ("De: Juan Perez" alone on a line), then the
// flattened form (a run of capitalized words after the label). The flattened
// form matches the label only as written, so the preposition "de" inside a
// title is not read as the "De" label.
func Labeled(labels ...string) []*regexp.Regexp {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(l), " ", `\s+`)
	}
	alt := strings.Join(quoted, "|")
	return []*regexp.Regexp{
		regexp.MustCompile(`(?mi)^[ \t]*(?:` + alt + `)[ \t]*:?[ \t]+(\S.*?)[ \t]*$`),
		regexp.MustCompile(`(?:^|\s)(?:` + alt + `)\s*:?\s+(\p{Lu}[\p{L}'.]*(?:\s+\p{Lu}[\p{L}'.]*){0,4})`),
	}
}

var (
	// FallbackSenders are tried when a profile's sender patterns find nothing.
	FallbackSenders = Labeled("De", "Desde", "Origen", "Ordenante", "Remitente", "Enviado por", "Titular")
	// FallbackReceivers are tried when a profile's receiver patterns find nothing.
	FallbackReceivers = Labeled("Para", "Destinatario", "Destino", "Beneficiario", "A nombre de", "Enviaste a")
)

// ExtractParty returns the first capture group of the first pattern that
// matches, trying each pattern against the newline-preserved text and then the
// flattened text. The fallback list is used only when patterns find nothing.
func ExtractParty(text string, patterns, fallback []*regexp.Regexp) (string, bool) {
	flat := Flatten(text)
	for _, list := range [][]*regexp.Regexp{patterns, fallback} {
		for _, re := range list {
			for _, candidate := range []string{text, flat} {
				m := re.FindStringSubmatch(candidate)
				if len(m) < 2 {
					continue
				}
				if v := cleanParty(m[1]); v != "" {
					return Truncate(v, MaxPartyLength), true
				}
			}
		}
	}
	return "", false
}

func cleanParty(s string) string {
	words := strings.Fields(s)
	kept := words[:0]
	for i, w := range words {
		if i > 0 && stopWords[strings.Trim(Fold(w), ".,:;")] {
			break
		}
		kept = append(kept, w)
	}
	return strings.Trim(strings.Join(kept, " "), " .,:;-")
}

// Truncate shortens s to limit runes, ending it with "...".
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit])) + "..."
}
