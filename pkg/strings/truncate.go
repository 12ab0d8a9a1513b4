package strings

import (
	"strings"
)

// Ellipsis marks a truncated string.
const Ellipsis = "…"

// SingleLine collapses every run of whitespace, newlines included, into a
// single space.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate returns s on a single line, shortened to at most maxLen runes.
// A cut is marked with Ellipsis, which counts toward maxLen. A maxLen of
// zero or less disables shortening.
func Truncate(s string, maxLen int) string {
	s = SingleLine(s)
	runes := []rune(s)
	if maxLen <= 0 || len(runes) <= maxLen {
		return s
	}
	if maxLen == 1 {
		return Ellipsis
	}
	return string(runes[:maxLen-1]) + Ellipsis
}
