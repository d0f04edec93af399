// Package formats selects media formats and assembles playable URLs from
// cipher-protected ones.
package formats

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/scgreenhalgh/tubeexplode/types"
	"github.com/scgreenhalgh/tubeexplode/youtube/cipher"
)

// ResolveURL builds the final playable URL for a format. Formats with a
// direct URL pass through untouched; cipher-protected ones have their
// signature decrypted with the manifest and substituted into the signature
// query parameter.
func ResolveURL(m *cipher.Manifest, f types.Format) (string, error) {
	if hasDirectURL(f) {
		return f.URL, nil
	}
	if f.SignatureCipher == "" {
		return "", fmt.Errorf("format %d has neither url nor signature cipher", f.Itag)
	}

	params, err := url.ParseQuery(f.SignatureCipher)
	if err != nil {
		return "", fmt.Errorf("parse signature cipher: %w", err)
	}

	sig := params.Get("s")
	rawURL := params.Get("url")
	if sig == "" || rawURL == "" {
		return "", fmt.Errorf("signature cipher for format %d is missing s or url", f.Itag)
	}
	sigParam := params.Get("sp")
	if sigParam == "" {
		sigParam = "signature"
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse cipher url: %w", err)
	}
	q := u.Query()
	q.Set(sigParam, m.Decipher(sig))
	if q.Get("ratebypass") == "" {
		q.Set("ratebypass", "yes")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ResolveAll resolves every cipher-protected format in place, filling the
// URL field. Formats that cannot be resolved are left without a URL; the
// count of resolved formats is returned.
func ResolveAll(m *cipher.Manifest, formats []types.Format) int {
	resolved := 0
	for i := range formats {
		if hasDirectURL(formats[i]) {
			resolved++
			continue
		}
		u, err := ResolveURL(m, formats[i])
		if err != nil {
			continue
		}
		formats[i].URL = u
		resolved++
	}
	return resolved
}

// Select chooses a format according to the selector without requiring a
// direct URL. Supported selectors:
//   - "itag=NN": specific format by itag
//   - "best" / "worst": by height, then bitrate
//   - "height<=NNN" / "height>=NNN": height constraints
//
// ext filters by MIME subtype ("mp4", "webm"); empty means no filter. With
// no selector, the heuristic prefers progressive itag 22, then 18, then any
// progressive avc1 mp4, then any format with a direct URL.
func Select(formats []types.Format, selector, ext string) *types.Format {
	if len(formats) == 0 {
		return nil
	}
	filtered := make([]types.Format, 0, len(formats))
	for i := range formats {
		if mimeSubtypeEquals(formats[i], ext) {
			filtered = append(filtered, formats[i])
		}
	}
	if len(filtered) == 0 {
		filtered = append(filtered, formats...)
	}

	q := strings.TrimSpace(strings.ToLower(selector))

	if strings.HasPrefix(q, "itag=") {
		if it, err := strconv.Atoi(strings.TrimPrefix(q, "itag=")); err == nil {
			for i := range filtered {
				if itagEquals(filtered[i], it) {
					return &filtered[i]
				}
			}
		}
		return nil
	}

	var minH, maxH int
	if strings.HasPrefix(q, "height<=") {
		if v, err := strconv.Atoi(strings.TrimPrefix(q, "height<=")); err == nil {
			maxH = v
		}
	}
	if strings.HasPrefix(q, "height>=") {
		if v, err := strconv.Atoi(strings.TrimPrefix(q, "height>=")); err == nil {
			minH = v
		}
	}
	if minH > 0 || maxH > 0 {
		tmp := make([]types.Format, 0, len(filtered))
		for i := range filtered {
			if withinHeight(filtered[i], minH, maxH) {
				tmp = append(tmp, filtered[i])
			}
		}
		if len(tmp) > 0 {
			filtered = tmp
		}
	}

	if q == "best" || q == "worst" {
		pick := filtered[0]
		for _, f := range filtered[1:] {
			better := betterByHeightThenBitrate(f, pick)
			if (q == "best" && better) || (q == "worst" && !better && betterByHeightThenBitrate(pick, f)) {
				pick = f
			}
		}
		return &pick
	}

	// Heuristic default: progressive 720p, then 360p.
	for _, itag := range []int{22, 18} {
		for i := range filtered {
			if filtered[i].Itag == itag {
				return &filtered[i]
			}
		}
	}
	for i := range filtered {
		if strings.Contains(filtered[i].MimeType, "video/mp4") && strings.Contains(filtered[i].MimeType, "avc1") {
			return &filtered[i]
		}
	}
	for i := range filtered {
		if hasDirectURL(filtered[i]) {
			return &filtered[i]
		}
	}
	return &filtered[0]
}
