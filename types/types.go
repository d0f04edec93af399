// Package types holds the value types shared between the library's
// packages and exposed to consumers.
package types

// Format describes an available media format. A format either carries a
// directly playable URL or a SignatureCipher blob whose decrypted signature
// must be substituted into the URL before playback.
type Format struct {
	Itag            int
	URL             string
	Quality         string
	MimeType        string
	Bitrate         int
	Size            int64
	SignatureCipher string
}

// VideoInfo describes video metadata and the full list of available formats.
type VideoInfo struct {
	ID          string
	Title       string
	Author      string
	Description string
	Duration    int
	ViewCount   int64
	Formats     []Format
	Captions    []CaptionTrack
}

// PlaylistItem is a minimal playlist entry.
type PlaylistItem struct {
	VideoID string
	Title   string
	Index   int
}

// SearchResult is a minimal search hit.
type SearchResult struct {
	VideoID string
	Title   string
	Author  string
}

// CaptionTrack identifies one closed-caption track of a video.
type CaptionTrack struct {
	BaseURL      string
	LanguageCode string
	Name         string
	Kind         string // "asr" for auto-generated tracks
}

// Caption is a single timed caption line.
type Caption struct {
	Start    float64 // seconds
	Duration float64 // seconds
	Text     string
}
