package client

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c := New()
	require.NotNil(t, c)
	require.NotNil(t, c.HTTPClient)
	assert.Equal(t, defaultTimeout, c.HTTPClient.Timeout)
	assert.Equal(t, defaultRetries, c.Retries)
	assert.NotEmpty(t, c.UserAgent)
}

func TestNewWith(t *testing.T) {
	cfg := Config{
		Timeout:   10 * time.Second,
		Retries:   5,
		UserAgent: "Custom Agent",
		ProxyURL:  "http://proxy.example.com:8080",
	}
	c, err := NewWith(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Timeout, c.HTTPClient.Timeout)
	assert.Equal(t, cfg.Retries, c.Retries)
	assert.Equal(t, cfg.UserAgent, c.UserAgent)
}

func TestNewWithBadProxy(t *testing.T) {
	_, err := NewWith(Config{ProxyURL: "://bad"})
	assert.Error(t, err)
}

func TestGetSetsUserAgent(t *testing.T) {
	var seenUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUA.Store(r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	c := New()
	c.UserAgent = "tubeexplode-test"
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "tubeexplode-test", seenUA.Load())
}

func TestGetRetriesTransientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New()
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestGetExhaustedRetriesReturnsReadableResponse(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	c := New()
	c.Retries = 2
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "overloaded", string(body))
}

func TestGetDecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte("compressed payload"))
		_ = gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := New()
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "compressed payload", string(body))
}

func TestLoadCookies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.txt")
	content := "# Netscape HTTP Cookie File\n" +
		".example.com\tTRUE\t/\tTRUE\t2147483647\tSESSION\tabc123\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c := New()
	require.NoError(t, c.LoadCookies(path))
	require.NotNil(t, c.HTTPClient.Jar)

	u, _ := url.Parse("https://example.com/")
	cookies := c.HTTPClient.Jar.Cookies(u)
	require.NotEmpty(t, cookies)
	assert.Equal(t, "SESSION", cookies[0].Name)
}

func TestLoadCookiesMissingFile(t *testing.T) {
	c := New()
	assert.Error(t, c.LoadCookies(filepath.Join(t.TempDir(), "nope.txt")))
}
