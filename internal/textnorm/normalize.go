// Package textnorm canonicalizes free-text names for matching and derives
// filesystem-safe slugs.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentStripper decomposes to NFKD and drops combining marks, so
// "Autódromo" and "Autodromo" normalize identically.
var accentStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize canonicalizes a name for comparison: lowercase, accents
// stripped, punctuation collapsed to single spaces, trimmed. Nil-safe in the
// sense that empty or whitespace-only input yields "".
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	stripped, _, err := transform.String(accentStripper, s)
	if err == nil {
		s = stripped
	}
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Slug derives a filesystem-safe identifier: lowercase, accents stripped,
// non-alphanumeric runs collapsed to "-", capped at maxLen. Empty input
// yields "unknown".
func Slug(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	stripped, _, err := transform.String(accentStripper, s)
	if err == nil {
		s = stripped
	}
	s = strings.ToLower(s)
	s = strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
	if s == "" {
		s = "unknown"
	}
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
