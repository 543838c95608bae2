// Package textnorm normalizes messy spreadsheet text so that the rest of the
// engine can compare column names and categorical values reliably.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes, drops combining marks, and recomposes, which maps
// á/ã/ç/etc. onto their ASCII base letters.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases, strips diacritics, collapses whitespace runs to a
// single space, and trims. It is total: any input yields a valid output, and
// empty input yields empty output.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, " ")
}

// Key trims and upper-cases a value for identity comparisons across tables.
// Diacritics are kept so that distinct proper names stay distinct.
func Key(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// TitleCase capitalizes the first letter of each word, used for pass-through
// category labels that matched no known rule.
func TitleCase(s string) string {
	fields := strings.Fields(strings.TrimSpace(s))
	for i, f := range fields {
		r := []rune(strings.ToLower(f))
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

// Contains reports whether the normalized haystack contains the normalized
// needle.
func Contains(haystack, needle string) bool {
	return strings.Contains(Normalize(haystack), Normalize(needle))
}
