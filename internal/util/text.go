package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var reNonSlug = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// Slugify replaces every run of non alphanumeric characters with a dash, trims
// dashes and truncates the result to maxLen bytes. Empty results become fallback.
func Slugify(value string, maxLen int, fallback string) string {
	slug := strings.Trim(reNonSlug.ReplaceAllString(value, "-"), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	if slug == "" {
		return fallback
	}
	return slug
}

// Truncate cuts value to at most maxRunes runes.
func Truncate(value string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(value) <= maxRunes {
		return value
	}
	runes := []rune(value)
	return string(runes[:maxRunes])
}

// RuneOffset converts a byte offset into s to a rune offset. Offsets past the
// end of s are clamped.
func RuneOffset(s string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(s) {
		byteOffset = len(s)
	}
	return utf8.RuneCountInString(s[:byteOffset])
}

// RuneLen is the length of s in runes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
