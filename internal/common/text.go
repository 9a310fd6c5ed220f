package common

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes keeps at most max characters of s, never splitting a rune.
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// IsBlank reports whether s has no non-space characters.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// CharCount counts characters after trimming surrounding whitespace.
func CharCount(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
