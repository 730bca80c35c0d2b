// Package util provides shared utility functions used across the codebase.
package util

import "strings"

// TruncateString truncates a string to maxLen runes, adding "..." if truncated.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// Excerpt returns the first maxLen runes of s with surrounding whitespace
// collapsed, suitable for carrying a fragment of one stage's output into
// another stage's prompt.
func Excerpt(s string, maxLen int) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	return TruncateString(collapsed, maxLen)
}

// FirstNonEmpty returns the first non-empty string from the arguments.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
