package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input, folds runs of whitespace into one space and
// caps the result at maxLen bytes without splitting a rune.
func SanitizeString(input string, maxLen int) string {
	return TruncateString(strings.Join(strings.Fields(input), " "), maxLen)
}

// TruncateString trims the ends of input and caps it at maxLen bytes without
// splitting a rune. Inner whitespace is kept as given.
func TruncateString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || len(trimmed) <= maxLen {
		return trimmed
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return strings.TrimSpace(trimmed[:cut])
}
