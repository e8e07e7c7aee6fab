package app

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const slugMaxChars = 30

var foldDiacritics = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug turns a query into a filename-safe fragment: diacritics folded away,
// every non-alphanumeric rune replaced with an underscore, capped at 30
// characters. Falls back to "report" when nothing survives.
func Slug(query string) string {
	folded, _, err := transform.String(foldDiacritics, query)
	if err != nil {
		folded = query
	}
	var sb strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	out := []rune(sb.String())
	if len(out) > slugMaxChars {
		out = out[:slugMaxChars]
	}
	s := strings.Trim(string(out), "_")
	if s == "" {
		return "report"
	}
	return s
}
