package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldSearchText lowercases and strips diacritics so "Échafaudage" and
// "echafaudage" match the same rows. The result is stored in the search_text
// columns and applied to incoming search terms.
func foldSearchText(parts ...string) string {
	joined := strings.ToLower(strings.TrimSpace(strings.Join(parts, " ")))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, joined)
	if err != nil {
		return joined
	}
	return folded
}
