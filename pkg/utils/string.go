package utils

// Truncate shortens s to at most maxLen runes and appends "..." when it cut
// anything. It never splits a multi-byte character.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
