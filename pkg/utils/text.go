// Package utils provides shared helpers for logging and terminal text.
package utils

import "strings"

// Truncate returns s cut to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// Emphasize replaces <em> markers from search highlighting with on/off.
// Pass empty strings to drop the markers.
func Emphasize(s, on, off string) string {
	return strings.NewReplacer("<em>", on, "</em>", off).Replace(s)
}

// ANSI sequences for Emphasize on a terminal.
const (
	ANSIBold  = "\x1b[1m"
	ANSIReset = "\x1b[0m"
)
