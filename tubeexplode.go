// Package tubeexplode is a client library for fetching video metadata,
// resolving playable stream URLs, and downloading media. Stream URLs are
// often protected by a scrambled signature; the library statically analyzes
// the platform's player script to recover the unscrambling steps and applies
// them locally without ever executing the script.
package tubeexplode

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/scgreenhalgh/tubeexplode/client"
	"github.com/scgreenhalgh/tubeexplode/downloader"
	"github.com/scgreenhalgh/tubeexplode/errs"
	"github.com/scgreenhalgh/tubeexplode/internal/logger"
	"github.com/scgreenhalgh/tubeexplode/internal/mimeext"
	"github.com/scgreenhalgh/tubeexplode/internal/sanitize"
	"github.com/scgreenhalgh/tubeexplode/types"
	"github.com/scgreenhalgh/tubeexplode/youtube/captions"
	"github.com/scgreenhalgh/tubeexplode/youtube/cipher"
	"github.com/scgreenhalgh/tubeexplode/youtube/formats"
	"github.com/scgreenhalgh/tubeexplode/youtube/innertube"
	"github.com/scgreenhalgh/tubeexplode/youtube/playerjs"
)

var log = logger.Component("tubeexplode")

// Client is the entry point for the library. The zero value is not usable;
// construct with New and chain the With* setters:
//
//	tx := tubeexplode.New().WithFormat("best", "mp4")
//	info, err := tx.GetVideo(ctx, "https://www.youtube.com/watch?v=...")
type Client struct {
	http  *client.Client
	inner *innertube.Client
	cache cipher.Cache

	selector  string
	ext       string
	progress  func(downloader.Progress)
	rateLimit int64
	outputDir string
	watchBase string
}

// New creates a Client with default settings.
func New() *Client {
	hc := client.New()
	return &Client{
		http:      hc,
		inner:     innertube.New(hc),
		watchBase: "https://www.youtube.com",
	}
}

// WithHTTPClient replaces the underlying HTTP client, for example one built
// with client.NewWith for proxy or timeout control.
func (c *Client) WithHTTPClient(hc *client.Client) *Client {
	c.http = hc
	c.inner = innertube.New(hc)
	return c
}

// WithCookies loads a Netscape-format cookies.txt file into the HTTP client.
func (c *Client) WithCookies(path string) *Client {
	if err := c.http.LoadCookies(path); err != nil {
		log.Warn("cookie load failed", "path", path, "err", err)
	}
	return c
}

// WithInnertubeClient overrides the API client name and version presented to
// the player endpoint.
func (c *Client) WithInnertubeClient(name, version string) *Client {
	c.inner.WithClient(name, version)
	return c
}

// WithFormat sets the format selector ("best", "worst", "itag=NN",
// "height<=NNN") and extension filter ("mp4", "webm") used by ResolveURL
// and Download.
func (c *Client) WithFormat(selector, ext string) *Client {
	c.selector = selector
	c.ext = ext
	return c
}

// WithProgress installs a download progress callback.
func (c *Client) WithProgress(fn func(downloader.Progress)) *Client {
	c.progress = fn
	return c
}

// WithRateLimit caps download speed in bytes per second. Zero disables.
func (c *Client) WithRateLimit(bps int64) *Client {
	c.rateLimit = bps
	return c
}

// WithOutputPath sets the directory for downloads whose output path is not
// given explicitly.
func (c *Client) WithOutputPath(dir string) *Client {
	c.outputDir = dir
	return c
}

// manifest fetches and parses the current player script, memoized for the
// session. Concurrent callers share one resolution.
func (c *Client) manifest(videoID string) (*cipher.Manifest, error) {
	return c.cache.GetOrResolve(func() (*cipher.Manifest, error) {
		jsURL, err := playerjs.ResolveURL(c.http, c.watchBase+"/watch?v="+videoID)
		if err != nil {
			return nil, err
		}
		js, err := playerjs.Fetch(c.http, jsURL)
		if err != nil {
			return nil, err
		}
		return cipher.Parse(js)
	})
}

// GetVideo fetches metadata and the available formats for a video, given a
// URL or bare video ID. Cipher-protected format URLs are resolved in place;
// if a newly deployed player script makes resolution fail, the script is
// re-fetched and parsed once more before giving up on those formats.
func (c *Client) GetVideo(ctx context.Context, videoURL string) (*types.VideoInfo, error) {
	id, err := ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}

	m, err := c.manifest(id)
	if err != nil {
		return nil, fmt.Errorf("resolve cipher manifest: %w", err)
	}

	pr, err := c.inner.WithSignatureTimestamp(m.SignatureTimestamp).GetPlayerResponse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := playabilityError(pr); err != nil {
		return nil, err
	}

	if resolved := formats.ResolveAll(m, pr.Formats); resolved < len(pr.Formats) {
		log.Debug("format resolution incomplete, refreshing player script",
			"resolved", resolved, "total", len(pr.Formats))
		c.cache.Invalidate()
		if m2, rerr := c.manifest(id); rerr == nil {
			formats.ResolveAll(m2, pr.Formats)
		}
	}

	return &types.VideoInfo{
		ID:          pr.VideoID,
		Title:       pr.Title,
		Author:      pr.Author,
		Description: pr.Description,
		Duration:    pr.Duration,
		ViewCount:   pr.ViewCount,
		Formats:     pr.Formats,
		Captions:    pr.CaptionTracks,
	}, nil
}

// ResolveURL returns a playable stream URL for the video, chosen by the
// configured format selector.
func (c *Client) ResolveURL(ctx context.Context, videoURL string) (string, error) {
	info, err := c.GetVideo(ctx, videoURL)
	if err != nil {
		return "", err
	}
	f, err := c.selectFormat(info)
	if err != nil {
		return "", err
	}
	return f.URL, nil
}

func (c *Client) selectFormat(info *types.VideoInfo) (*types.Format, error) {
	f := formats.Select(info.Formats, c.selector, c.ext)
	if f == nil {
		return nil, fmt.Errorf("no format matches selector %q: %w", c.selector, errs.ErrVideoUnavailable)
	}
	if f.URL == "" {
		return nil, fmt.Errorf("format %d: %w", f.Itag, errs.ErrCipherFailed)
	}
	return f, nil
}

// Download fetches the selected format of the video to outputPath. An empty
// outputPath derives a safe filename from the video title inside the
// configured output directory.
func (c *Client) Download(ctx context.Context, videoURL, outputPath string) error {
	info, err := c.GetVideo(ctx, videoURL)
	if err != nil {
		return err
	}
	f, err := c.selectFormat(info)
	if err != nil {
		return err
	}

	if outputPath == "" {
		name := sanitize.Filename(info.Title, mimeext.FromMime(f.MimeType))
		outputPath = filepath.Join(c.outputDir, name)
	}

	log.Info("downloading", "video", info.ID, "itag", f.Itag, "path", outputPath)
	return downloader.New(c.http, c.progress, c.rateLimit).Download(ctx, f.URL, outputPath)
}

// GetPlaylistItems lists the entries of a playlist, given its URL or ID.
// limit <= 0 means no limit.
func (c *Client) GetPlaylistItems(ctx context.Context, playlistURL string, limit int) ([]types.PlaylistItem, error) {
	id, err := ExtractPlaylistID(playlistURL)
	if err != nil {
		return nil, err
	}
	return c.inner.GetPlaylistItems(ctx, id, limit)
}

// Search runs a video search and returns up to limit results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	return c.inner.Search(ctx, query, limit)
}

// GetCaptions fetches the caption lines of a video in the given language.
// An empty lang picks the first available track; manually created tracks
// win over auto-generated ones.
func (c *Client) GetCaptions(ctx context.Context, videoURL, lang string) ([]types.Caption, error) {
	info, err := c.GetVideo(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	track, err := captions.SelectTrack(info.Captions, lang)
	if err != nil {
		return nil, err
	}
	return captions.Fetch(c.http, *track)
}

// playabilityError maps the player response status to a sentinel error, or
// nil when the video is playable.
func playabilityError(pr *innertube.PlayerResponse) error {
	status := strings.ToUpper(pr.Status)
	reason := strings.ToLower(pr.StatusReason)
	switch status {
	case "", "OK":
		return nil
	case "LOGIN_REQUIRED":
		if strings.Contains(reason, "age") {
			return fmt.Errorf("%s: %w", pr.StatusReason, errs.ErrAgeRestricted)
		}
		return fmt.Errorf("%s: %w", pr.StatusReason, errs.ErrPrivate)
	case "AGE_CHECK_REQUIRED", "CONTENT_CHECK_REQUIRED":
		return fmt.Errorf("%s: %w", pr.StatusReason, errs.ErrAgeRestricted)
	case "UNPLAYABLE":
		if strings.Contains(reason, "not available in your country") {
			return fmt.Errorf("%s: %w", pr.StatusReason, errs.ErrGeoBlocked)
		}
		return fmt.Errorf("%s: %w", pr.StatusReason, errs.ErrVideoUnavailable)
	default:
		return fmt.Errorf("playability %s: %s: %w", pr.Status, pr.StatusReason, errs.ErrVideoUnavailable)
	}
}

var videoIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

// ExtractVideoID pulls an 11-character video ID out of the common URL
// shapes (watch, youtu.be, shorts, embed) or accepts a bare ID.
func ExtractVideoID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if videoIDPattern.MatchString(s) {
		return s, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid video url %q", s)
	}
	if v := u.Query().Get("v"); videoIDPattern.MatchString(v) {
		return v, nil
	}
	for _, prefix := range []string{"/shorts/", "/embed/", "/v/", "/"} {
		if strings.HasPrefix(u.Path, prefix) {
			rest := strings.TrimPrefix(u.Path, prefix)
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i]
			}
			if videoIDPattern.MatchString(rest) {
				return rest, nil
			}
		}
	}
	return "", fmt.Errorf("no video id in %q", s)
}

// ExtractPlaylistID pulls a playlist ID out of a playlist URL, or accepts a
// bare ID.
func ExtractPlaylistID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s != "" && !strings.Contains(s, "/") && !strings.Contains(s, "?") {
		return s, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid playlist url %q", s)
	}
	if list := u.Query().Get("list"); list != "" {
		return list, nil
	}
	return "", fmt.Errorf("no playlist id in %q", s)
}
