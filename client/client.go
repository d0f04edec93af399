// Package client wraps http.Client with the retry, header and decompression
// behavior the platform's endpoints expect.
package client

import (
	"compress/gzip"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/corpix/uarand"
	"github.com/mengzhuo/cookiestxt"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3

	initialBackoff   = 200 * time.Millisecond
	maxBackoff       = 3 * time.Second
	retryableMinCode = http.StatusInternalServerError // 500
)

// defaultTransport is a tuned HTTP transport reused across clients.
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ResponseHeaderTimeout: 10 * time.Second,
	ForceAttemptHTTP2:     true,
	// Content-Encoding is negotiated and decoded by this package instead.
	DisableCompression: true,
	ReadBufferSize:     16 * 1024,
	WriteBufferSize:    16 * 1024,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Config holds optional client parameters. Zero values use defaults.
type Config struct {
	Timeout     time.Duration
	Retries     int
	UserAgent   string
	ProxyURL    string
	CookiesPath string
}

// Client wraps http.Client with retry/backoff and default headers.
type Client struct {
	HTTPClient *http.Client
	Retries    int
	UserAgent  string
}

// New creates a new Client with a tuned Transport, default timeout, retries
// and a rotating desktop User-Agent.
func New() *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: defaultTransport,
		},
		Retries:   defaultRetries,
		UserAgent: uarand.GetRandom(),
	}
}

// NewWith creates a new client with provided config. Zero values use defaults.
func NewWith(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = uarand.GetRandom()
	}

	tr := defaultTransport.Clone()
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
	}

	c := &Client{
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: tr,
		},
		Retries:   retries,
		UserAgent: ua,
	}
	if cfg.CookiesPath != "" {
		if err := c.LoadCookies(cfg.CookiesPath); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadCookies installs a cookie jar populated from a Netscape cookies.txt
// file, the one authentication mechanism the library supports.
func (c *Client) LoadCookies(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open cookies file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cookies, err := cookiestxt.Parse(f)
	if err != nil {
		return fmt.Errorf("parse cookies file: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	byHost := make(map[string][]*http.Cookie)
	for _, ck := range cookies {
		host := strings.TrimPrefix(ck.Domain, ".")
		if host == "" {
			continue
		}
		byHost[host] = append(byHost[host], ck)
	}
	for host, cks := range byHost {
		u := &url.URL{Scheme: "https", Host: host}
		jar.SetCookies(u, cks)
	}
	c.HTTPClient.Jar = jar
	return nil
}

// Get performs a GET request with a simple retry policy for transient errors
// (HTTP 5xx or network failures).
func (c *Client) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Do executes req with default headers, retry/backoff, and transparent
// response decompression.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ua := c.UserAgent
	if ua == "" {
		ua = uarand.GetRandom()
	}
	req.Header.Set("User-Agent", ua)
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, br")
	}

	retries := c.Retries
	if retries < 1 {
		retries = 1
	}
	var resp *http.Response
	var err error
	backoff := initialBackoff
	for attempt := 0; attempt < retries; attempt++ {
		resp, err = c.HTTPClient.Do(req)
		if err == nil && resp != nil && resp.StatusCode < retryableMinCode {
			return decodeBody(resp)
		}
		if attempt == retries-1 {
			break
		}
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	if err != nil {
		return nil, err
	}
	// the last response is returned unclosed so callers can inspect it
	return decodeBody(resp)
}

// decodeBody swaps the response body for a decompressing reader when the
// server compressed it.
func decodeBody(resp *http.Response) (*http.Response, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		resp.Body = &decodedBody{Reader: gz, orig: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
	case "br":
		resp.Body = &decodedBody{Reader: brotli.NewReader(resp.Body), orig: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
	}
	return resp, nil
}

type decodedBody struct {
	io.Reader
	orig io.ReadCloser
}

func (b *decodedBody) Close() error { return b.orig.Close() }
