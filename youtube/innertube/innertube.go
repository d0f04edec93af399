// Package innertube talks to the platform's internal youtubei/v1 API
// without an API key, the way the web player itself does.
package innertube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/valyala/fastjson"

	"github.com/scgreenhalgh/tubeexplode/client"
	"github.com/scgreenhalgh/tubeexplode/internal/logger"
	"github.com/scgreenhalgh/tubeexplode/types"
)

const (
	defaultBaseURL       = "https://www.youtube.com"
	clientNameWEB        = "WEB"
	defaultClientVersion = "2.20250312.04.00"
	browseIDPrefix       = "VL"
	defaultPlaylistLimit = 100
)

var log = logger.Component("innertube")

// clientCodeFromName returns the X-YouTube-Client-Name numeric code for
// known clients.
func clientCodeFromName(name string) string {
	switch strings.ToUpper(name) {
	case "WEB":
		return "1"
	case "MWEB":
		return "2"
	case "ANDROID":
		return "3"
	case "IOS":
		return "5"
	case "TVHTML5":
		return "7"
	case "WEB_EMBEDDED_PLAYER":
		return "56"
	default:
		return ""
	}
}

// PlayerResponse is the subset of the player endpoint response the library
// consumes.
type PlayerResponse struct {
	VideoID       string
	Title         string
	Author        string
	Description   string
	Duration      int
	ViewCount     int64
	Status        string
	StatusReason  string
	Formats       []types.Format
	CaptionTracks []types.CaptionTrack
}

// Client for interacting with the InnerTube API.
type Client struct {
	HTTP *client.Client

	baseURL    string
	clientName string
	clientVer  string
	sigTS      string

	parserPool fastjson.ParserPool
}

// New creates a new InnerTube client.
func New(c *client.Client) *Client {
	if c == nil {
		c = client.New()
	}
	return &Client{
		HTTP:       c,
		baseURL:    defaultBaseURL,
		clientName: clientNameWEB,
		clientVer:  defaultClientVersion,
	}
}

// WithClient overrides the InnerTube client name/version used in request
// contexts.
func (c *Client) WithClient(name, version string) *Client {
	if strings.TrimSpace(name) != "" {
		c.clientName = name
	}
	if strings.TrimSpace(version) != "" {
		c.clientVer = version
	}
	return c
}

// WithSignatureTimestamp attaches a player-script signature timestamp to
// player requests. Without it the endpoint may return cipher-protected URLs
// that cannot be validated server-side.
func (c *Client) WithSignatureTimestamp(ts string) *Client {
	c.sigTS = ts
	return c
}

// WithBaseURL overrides the API host, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimSuffix(base, "/")
	return c
}

type requestContext struct {
	Client struct {
		ClientName    string `json:"clientName"`
		ClientVersion string `json:"clientVersion"`
		HL            string `json:"hl"`
		GL            string `json:"gl"`
	} `json:"client"`
}

type playerRequest struct {
	VideoID         string         `json:"videoId,omitempty"`
	BrowseID        string         `json:"browseId,omitempty"`
	Query           string         `json:"query,omitempty"`
	Continuation    string         `json:"continuation,omitempty"`
	Context         requestContext `json:"context"`
	PlaybackContext *struct {
		ContentPlaybackContext struct {
			SignatureTimestamp string `json:"signatureTimestamp,omitempty"`
		} `json:"contentPlaybackContext"`
	} `json:"playbackContext,omitempty"`
	ContentCheckOK bool `json:"contentCheckOk,omitempty"`
	RacyCheckOK    bool `json:"racyCheckOk,omitempty"`
}

func (c *Client) newRequest() playerRequest {
	var r playerRequest
	r.Context.Client.ClientName = c.clientName
	r.Context.Client.ClientVersion = c.clientVer
	r.Context.Client.HL = "en"
	r.Context.Client.GL = "US"
	return r
}

func (c *Client) post(ctx context.Context, endpoint string, body playerRequest) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/youtubei/v1/"+endpoint+"?prettyPrint=false", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/")
	if code := clientCodeFromName(c.clientName); code != "" {
		req.Header.Set("X-YouTube-Client-Name", code)
	}
	req.Header.Set("X-YouTube-Client-Version", c.clientVer)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("innertube %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("innertube %s: status %d", endpoint, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// GetPlayerResponse fetches and parses the player endpoint response for a
// video.
func (c *Client) GetPlayerResponse(ctx context.Context, videoID string) (*PlayerResponse, error) {
	body := c.newRequest()
	body.VideoID = videoID
	body.ContentCheckOK = true
	body.RacyCheckOK = true
	if c.sigTS != "" {
		body.PlaybackContext = &struct {
			ContentPlaybackContext struct {
				SignatureTimestamp string `json:"signatureTimestamp,omitempty"`
			} `json:"contentPlaybackContext"`
		}{}
		body.PlaybackContext.ContentPlaybackContext.SignatureTimestamp = c.sigTS
	}

	raw, err := c.post(ctx, "player", body)
	if err != nil {
		return nil, err
	}
	return c.parsePlayerResponse(raw)
}

// parsePlayerResponse decodes the player response on the hot path with
// fastjson; the payload runs hundreds of kilobytes and most of it is
// skipped.
func (c *Client) parsePlayerResponse(raw []byte) (*PlayerResponse, error) {
	p := c.parserPool.Get()
	defer c.parserPool.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse player response: %w", err)
	}

	pr := &PlayerResponse{
		VideoID:      string(v.GetStringBytes("videoDetails", "videoId")),
		Title:        string(v.GetStringBytes("videoDetails", "title")),
		Author:       string(v.GetStringBytes("videoDetails", "author")),
		Description:  string(v.GetStringBytes("videoDetails", "shortDescription")),
		Status:       string(v.GetStringBytes("playabilityStatus", "status")),
		StatusReason: string(v.GetStringBytes("playabilityStatus", "reason")),
	}
	if d, err := strconv.Atoi(string(v.GetStringBytes("videoDetails", "lengthSeconds"))); err == nil {
		pr.Duration = d
	}
	if n, err := strconv.ParseInt(string(v.GetStringBytes("videoDetails", "viewCount")), 10, 64); err == nil {
		pr.ViewCount = n
	}

	for _, section := range [][]string{
		{"streamingData", "formats"},
		{"streamingData", "adaptiveFormats"},
	} {
		for _, fv := range v.GetArray(section...) {
			f := types.Format{
				Itag:     fv.GetInt("itag"),
				URL:      string(fv.GetStringBytes("url")),
				MimeType: string(fv.GetStringBytes("mimeType")),
				Quality:  string(fv.GetStringBytes("qualityLabel")),
				Bitrate:  fv.GetInt("bitrate"),
			}
			if size, err := strconv.ParseInt(string(fv.GetStringBytes("contentLength")), 10, 64); err == nil {
				f.Size = size
			}
			if sc := fv.GetStringBytes("signatureCipher"); len(sc) > 0 {
				f.SignatureCipher = string(sc)
			}
			pr.Formats = append(pr.Formats, f)
		}
	}

	for _, tv := range v.GetArray("captions", "playerCaptionsTracklistRenderer", "captionTracks") {
		pr.CaptionTracks = append(pr.CaptionTracks, types.CaptionTrack{
			BaseURL:      string(tv.GetStringBytes("baseUrl")),
			LanguageCode: string(tv.GetStringBytes("languageCode")),
			Name:         string(tv.GetStringBytes("name", "simpleText")),
			Kind:         string(tv.GetStringBytes("kind")),
		})
	}

	log.Debug("parsed player response",
		"video_id", pr.VideoID, "formats", len(pr.Formats), "captions", len(pr.CaptionTracks))
	return pr, nil
}

// GetPlaylistItems fetches playlist items, following continuations until
// limit items are collected or the playlist ends. limit <= 0 uses a default.
func (c *Client) GetPlaylistItems(ctx context.Context, playlistID string, limit int) ([]types.PlaylistItem, error) {
	if limit <= 0 {
		limit = defaultPlaylistLimit
	}

	body := c.newRequest()
	body.BrowseID = browseIDPrefix + playlistID

	var items []types.PlaylistItem
	for {
		raw, err := c.post(ctx, "browse", body)
		if err != nil {
			return nil, err
		}
		page, continuation, err := parsePlaylistPage(raw)
		if err != nil {
			return nil, err
		}
		for _, it := range page {
			it.Index = len(items) + 1
			items = append(items, it)
			if len(items) >= limit {
				return items, nil
			}
		}
		if continuation == "" || len(page) == 0 {
			return items, nil
		}
		body = c.newRequest()
		body.Continuation = continuation
	}
}

// parsePlaylistPage walks the deeply nested browse renderer tree. The
// structure is irregular enough that simplejson's path lookups beat typed
// structs here.
func parsePlaylistPage(raw []byte) ([]types.PlaylistItem, string, error) {
	doc, err := simplejson.NewJson(raw)
	if err != nil {
		return nil, "", fmt.Errorf("parse browse response: %w", err)
	}

	contents := doc.GetPath("contents", "twoColumnBrowseResultsRenderer", "tabs").
		GetIndex(0).
		GetPath("tabRenderer", "content", "sectionListRenderer", "contents").
		GetIndex(0).
		GetPath("itemSectionRenderer", "contents").
		GetIndex(0).
		GetPath("playlistVideoListRenderer", "contents")
	if _, err := contents.Array(); err != nil {
		// Continuation responses use a different envelope.
		contents = doc.GetPath("onResponseReceivedActions").
			GetIndex(0).
			GetPath("appendContinuationItemsAction", "continuationItems")
	}

	arr, err := contents.Array()
	if err != nil {
		return nil, "", fmt.Errorf("playlist contents not found")
	}

	var items []types.PlaylistItem
	continuation := ""
	for i := range arr {
		entry := contents.GetIndex(i)
		if videoID, err := entry.GetPath("playlistVideoRenderer", "videoId").String(); err == nil {
			title, _ := entry.GetPath("playlistVideoRenderer", "title", "runs").
				GetIndex(0).Get("text").String()
			items = append(items, types.PlaylistItem{VideoID: videoID, Title: title})
			continue
		}
		if token, err := entry.GetPath("continuationItemRenderer",
			"continuationEndpoint", "continuationCommand", "token").String(); err == nil {
			continuation = token
		}
	}
	return items, continuation, nil
}

// Search runs a search query and returns minimal video results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	body := c.newRequest()
	body.Query = query

	raw, err := c.post(ctx, "search", body)
	if err != nil {
		return nil, err
	}

	doc, err := simplejson.NewJson(raw)
	if err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	sections := doc.GetPath("contents", "twoColumnSearchResultsRenderer",
		"primaryContents", "sectionListRenderer", "contents")
	sectionArr, err := sections.Array()
	if err != nil {
		return nil, fmt.Errorf("search contents not found")
	}

	var results []types.SearchResult
	for si := range sectionArr {
		videos := sections.GetIndex(si).GetPath("itemSectionRenderer", "contents")
		arr, err := videos.Array()
		if err != nil {
			continue
		}
		for i := range arr {
			vr := videos.GetIndex(i).Get("videoRenderer")
			videoID, err := vr.Get("videoId").String()
			if err != nil {
				continue
			}
			title, _ := vr.GetPath("title", "runs").GetIndex(0).Get("text").String()
			author, _ := vr.GetPath("ownerText", "runs").GetIndex(0).Get("text").String()
			results = append(results, types.SearchResult{VideoID: videoID, Title: title, Author: author})
			if len(results) >= limit {
				return results, nil
			}
		}
	}
	return results, nil
}
