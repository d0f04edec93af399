// Package mimeext maps streaming MIME types to file extensions.
package mimeext

import (
	"mime"
	"strings"
)

const fallbackExt = "mp4"

// Known media types served by the streaming endpoints. Audio-only mp4 gets
// m4a so players treat it as audio.
var extByType = map[string]string{
	"video/mp4":             "mp4",
	"audio/mp4":             "m4a",
	"video/webm":            "webm",
	"audio/webm":            "webm",
	"video/3gpp":            "3gp",
	"audio/mpeg":            "mp3",
	"application/x-mpegurl": "m3u8",
}

// FromMime returns the file extension (no dot) for a MIME type such as
// `video/mp4; codecs="avc1.4d401f"`. Unknown types fall back to the subtype,
// then to mp4.
func FromMime(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil || mt == "" {
		return fallbackExt
	}
	if ext, ok := extByType[mt]; ok {
		return ext
	}
	if i := strings.IndexByte(mt, '/'); i >= 0 && i+1 < len(mt) {
		return mt[i+1:]
	}
	return fallbackExt
}
