package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldAccents strips combining marks: "libellé" becomes "libelle".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeColumnName lower-cases, folds accents and replaces spaces and
// hyphens with underscores.
func NormalizeColumnName(s string) string {
	s = strings.ToLower(strings.TrimSpace(FoldAccents(s)))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// CleanAccountNumber keeps letters, digits and '-'. Integral floats coming
// from spreadsheets lose their ".0".
func CleanAccountNumber(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s = val
	case float64:
		if val == float64(int64(val)) {
			s = itoa64(int64(val))
		} else {
			s = strings.TrimRight(strings.TrimRight(ftoa(val), "0"), ".")
		}
	case int:
		s = itoa64(int64(val))
	case int64:
		s = itoa64(val)
	default:
		s = toString(val)
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ToString renders a raw cell as trimmed text.
func ToString(v any) string {
	return strings.TrimSpace(toString(v))
}

// ContainsAny reports whether s contains any of the keywords, ignoring case
// and accents.
func ContainsAny(s string, keywords ...string) bool {
	s = strings.ToLower(FoldAccents(s))
	for _, k := range keywords {
		if strings.Contains(s, strings.ToLower(FoldAccents(k))) {
			return true
		}
	}
	return false
}
