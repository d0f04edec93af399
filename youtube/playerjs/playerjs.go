// Package playerjs resolves and fetches the platform's player script, the
// raw text input for cipher analysis.
package playerjs

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/scgreenhalgh/tubeexplode/client"
	"github.com/scgreenhalgh/tubeexplode/internal/logger"
)

const (
	ytBase = "https://www.youtube.com"

	bodyTTL         = 10 * time.Minute
	cleanupInterval = 15 * time.Minute
)

var log = logger.Component("playerjs")

var jsURLRegex = regexp.MustCompile(`"(?:jsUrl|PLAYER_JS_URL)"\s*:\s*"([^"]+)"`)

// bodyCache holds fetched script bodies by URL. Scripts are large and the
// same player version is shared by many videos, so a short TTL saves a lot
// of refetching.
var bodyCache = gocache.New(bodyTTL, cleanupInterval)

// ResolveURL scrapes the player script URL from a watch page or the iframe
// API response fetched from pageURL.
func ResolveURL(c *client.Client, pageURL string) (string, error) {
	resp, err := c.Get(pageURL)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	m := jsURLRegex.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("player script url not found in page")
	}

	jsURL := strings.ReplaceAll(string(m[1]), `\/`, `/`)
	if strings.HasPrefix(jsURL, "//") {
		return "https:" + jsURL, nil
	}
	if strings.HasPrefix(jsURL, "/") {
		return ytBase + jsURL, nil
	}
	return jsURL, nil
}

// Fetch downloads a player script, serving repeat requests for the same URL
// from an in-memory TTL cache.
func Fetch(c *client.Client, jsURL string) (string, error) {
	if cached, ok := bodyCache.Get(jsURL); ok {
		return cached.(string), nil
	}

	resp, err := c.Get(jsURL)
	if err != nil {
		return "", fmt.Errorf("fetch player script: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("fetch player script: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read player script: %w", err)
	}
	log.Debug("fetched player script", "url", jsURL, "bytes", len(body))

	bodyCache.Set(jsURL, string(body), gocache.DefaultExpiration)
	return string(body), nil
}
