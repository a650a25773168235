// Package sanitize cleans user-entered metadata before it is sent to the
// portal. Titles and version strings are routinely pasted from rich-text
// sources and arrive with invisible Unicode characters, foreign line endings,
// and runs of whitespace that later break exact-name matching on the server.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`[ \t]+`)
	newlineRun    = regexp.MustCompile(`\n+`)
)

// invisibleChars are zero-width and other invisible Unicode characters that
// survive a paste but corrupt server-side name comparison.
var invisibleChars = []string{
	"\u200b", // Zero-width space
	"\u200c", // Zero-width non-joiner
	"\u200d", // Zero-width joiner
	"\ufeff", // Zero-width no-break space (BOM)
	"\u00ad", // Soft hyphen
	"\u2060", // Word joiner
	"\u180e", // Mongolian vowel separator
}

// Field cleans a single-line form field: invisible characters are stripped
// and surrounding whitespace is trimmed. Interior whitespace is preserved.
func Field(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(stripInvisible(s))
}

// Title cleans a display title: line endings are unified, invisible
// characters stripped, and whitespace runs collapsed to single spaces.
func Title(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = stripInvisible(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = newlineRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func stripInvisible(s string) string {
	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}
