package formats

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scgreenhalgh/tubeexplode/types"
)

var heightRe = regexp.MustCompile(`([0-9]{3,4})p`)

// hasDirectURL returns true when the format already contains a resolvable URL.
// Formats without direct URLs need signature decryption.
func hasDirectURL(format types.Format) bool {
	return strings.TrimSpace(format.URL) != ""
}

func getSubtype(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	parts := strings.Split(mime, "/")
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}

func parseHeight(label string) int {
	m := heightRe.FindStringSubmatch(label)
	if len(m) >= 2 {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	return 0
}

// mimeSubtypeEquals checks that the MIME subtype (e.g., mp4, webm) equals
// desiredExt. desiredExt is case-insensitive and may start with a dot;
// empty means no filtering.
func mimeSubtypeEquals(format types.Format, desiredExt string) bool {
	desired := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(desiredExt)), ".")
	if desired == "" {
		return true
	}
	return getSubtype(format.MimeType) == desired
}

func itagEquals(format types.Format, itag int) bool {
	return itag > 0 && format.Itag == itag
}

// withinHeight checks the Quality label height against [minHeight, maxHeight];
// a bound of 0 is ignored.
func withinHeight(format types.Format, minHeight, maxHeight int) bool {
	if minHeight <= 0 && maxHeight <= 0 {
		return true
	}
	h := parseHeight(format.Quality)
	if minHeight > 0 && h < minHeight {
		return false
	}
	if maxHeight > 0 && h > maxHeight {
		return false
	}
	return true
}

// betterByHeightThenBitrate reports whether candidate beats current using
// height first and bitrate as tiebreaker.
func betterByHeightThenBitrate(candidate, current types.Format) bool {
	ch, cu := parseHeight(candidate.Quality), parseHeight(current.Quality)
	if ch != cu {
		return ch > cu
	}
	return candidate.Bitrate > current.Bitrate
}
