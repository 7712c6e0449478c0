package sequence

import (
	"encoding/json"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalize lower-cases and strips diacritics so "Sí" matches "si claro".
func normalize(s string) string {
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripper, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// ParseKeywords decodes the stored JSON keyword array, dropping blanks.
func ParseKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return nil
	}
	out := keywords[:0]
	for _, k := range keywords {
		if strings.TrimSpace(k) != "" {
			out = append(out, k)
		}
	}
	return out
}

// containsAny reports whether the normalized text contains at least one of
// the normalized keywords as a substring. OR semantics only.
func containsAny(text string, keywords []string) bool {
	haystack := normalize(text)
	for _, k := range keywords {
		if strings.Contains(haystack, normalize(k)) {
			return true
		}
	}
	return false
}
