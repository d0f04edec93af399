// Package captions fetches and parses closed-caption tracks.
package captions

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/scgreenhalgh/tubeexplode/client"
	"github.com/scgreenhalgh/tubeexplode/errs"
	"github.com/scgreenhalgh/tubeexplode/types"
)

// timedText mirrors the legacy timedtext XML body.
type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Lines   []struct {
		Start    float64 `xml:"start,attr"`
		Duration float64 `xml:"dur,attr"`
		Text     string  `xml:",chardata"`
	} `xml:"text"`
}

// SelectTrack picks a track by language code. Manually created tracks win
// over auto-generated ones for the same language. Empty lang picks the
// first track.
func SelectTrack(tracks []types.CaptionTrack, lang string) (*types.CaptionTrack, error) {
	if len(tracks) == 0 {
		return nil, errs.ErrNoCaptions
	}
	if lang == "" {
		return &tracks[0], nil
	}
	var auto *types.CaptionTrack
	for i := range tracks {
		if !strings.EqualFold(tracks[i].LanguageCode, lang) {
			continue
		}
		if tracks[i].Kind != "asr" {
			return &tracks[i], nil
		}
		if auto == nil {
			auto = &tracks[i]
		}
	}
	if auto != nil {
		return auto, nil
	}
	return nil, fmt.Errorf("no caption track for language %q: %w", lang, errs.ErrNoCaptions)
}

// Fetch downloads a caption track and parses its timedtext XML into caption
// lines.
func Fetch(c *client.Client, track types.CaptionTrack) ([]types.Caption, error) {
	resp, err := c.Get(track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch captions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("fetch captions: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	return parseTimedText(body)
}

func parseTimedText(body []byte) ([]types.Caption, error) {
	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse timedtext: %w", err)
	}
	captions := make([]types.Caption, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text == "" {
			continue
		}
		captions = append(captions, types.Caption{
			Start:    line.Start,
			Duration: line.Duration,
			Text:     text,
		})
	}
	return captions, nil
}
