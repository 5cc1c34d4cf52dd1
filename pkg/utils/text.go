package utils

// Truncate shortens s to at most max runes, appending "..." when it was
// cut. max values below 4 return the untruncated string.
func Truncate(s string, max int) string {
	if max < 4 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
