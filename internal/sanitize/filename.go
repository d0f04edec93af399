// Package sanitize builds filesystem-safe filenames from video titles.
package sanitize

import (
	"strings"
	"unicode"
)

const (
	// maxBaseRunes caps the title part of the filename. Leaves headroom for
	// the extension on filesystems with a 255-byte limit.
	maxBaseRunes = 150

	fallbackName = "video"
	fallbackExt  = "mp4"
)

// unsafe holds characters rejected by at least one major filesystem.
const unsafe = `\/:*?"<>|`

// Filename builds a safe filename from a title and an extension (no dot).
// Unsafe and control characters become underscores, whitespace runs collapse
// to a single space, and the result is truncated at a rune boundary.
func Filename(title, ext string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range title {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			lastSpace = true
		case unicode.IsControl(r) || strings.ContainsRune(unsafe, r):
			b.WriteRune('_')
			lastSpace = false
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	name := strings.TrimRight(b.String(), " ._")
	if runes := []rune(name); len(runes) > maxBaseRunes {
		name = strings.TrimRight(string(runes[:maxBaseRunes]), " .")
	}
	if name == "" {
		name = fallbackName
	}

	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = fallbackExt
	}
	return name + "." + ext
}
