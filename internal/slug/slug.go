// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"regexp"
	"strings"
)

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	hyphens    = regexp.MustCompile(`-+`)
)

// Make lowercases s, drops everything except ASCII letters, digits, spaces and
// hyphens, turns whitespace runs into single hyphens and collapses repeated hyphens.
// Leading and trailing hyphens are trimmed.
func Make(s string) string {
	out := strings.ToLower(strings.TrimSpace(s))
	out = disallowed.ReplaceAllString(out, "")
	out = whitespace.ReplaceAllString(out, "-")
	out = hyphens.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}
