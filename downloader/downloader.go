// Package downloader retrieves media files with chunked range requests,
// retry/backoff and optional rate limiting.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/scgreenhalgh/tubeexplode/client"
	"github.com/scgreenhalgh/tubeexplode/internal/logger"
)

const (
	defaultChunkSizeBytes = 1 << 20 // 1MB
	defaultMaxRetries     = 3
	temporaryFileSuffix   = ".tmp"
	initialBackoff        = 200 * time.Millisecond
	maxBackoff            = 3 * time.Second
	copyBufferSizeBytes   = 32 * 1024
)

var log = logger.Component("downloader")

// Progress holds information about download progress.
type Progress struct {
	TotalSize      int64
	DownloadedSize int64
	Percent        float64
}

// Downloader downloads media files in chunks with simple retry/backoff and
// optional byte-rate limiting.
type Downloader struct {
	Client       *client.Client
	ProgressFunc func(Progress)

	chunkSize    int64
	maxRetries   int
	rateLimitBps int64
}

// New creates a downloader. If c is nil, a default client is used.
// rateLimitBps=0 disables limiting.
func New(c *client.Client, progressFunc func(Progress), rateLimitBps int64) *Downloader {
	if c == nil {
		c = client.New()
	}
	return &Downloader{
		Client:       c,
		ProgressFunc: progressFunc,
		chunkSize:    defaultChunkSizeBytes,
		maxRetries:   defaultMaxRetries,
		rateLimitBps: rateLimitBps,
	}
}

func totalFromResponse(resp *http.Response) (int64, bool) {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		parts := strings.Split(cr, "/")
		if len(parts) == 2 {
			if v, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				return v, true
			}
		}
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if v, err := strconv.ParseInt(cl, 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// detectTotalSize probes with a two-byte range request; servers that honor
// ranges answer with a Content-Range carrying the full size.
func (d *Downloader) detectTotalSize(ctx context.Context, urlStr string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Range", "bytes=0-1")

	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if total, ok := totalFromResponse(resp); ok {
		return total, nil
	}
	return 0, errors.New("cannot determine total size")
}

// sleepForRate enforces a simple rate limit based on bytes written in this
// step.
func (d *Downloader) sleepForRate(written int64) {
	if d.rateLimitBps <= 0 || written <= 0 {
		return
	}
	dur := time.Duration(int64(time.Second) * written / d.rateLimitBps)
	if dur > 0 {
		time.Sleep(dur)
	}
}

func (d *Downloader) fetchChunk(ctx context.Context, urlStr string, start, end int64) (*http.Response, error) {
	var resp *http.Response
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < d.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept-Encoding", "identity")
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

		resp, lastErr = d.Client.Do(req)
		if lastErr == nil && resp.StatusCode >= 200 && resp.StatusCode < 400 {
			return resp, nil
		}
		if resp != nil {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("http status %d", resp.StatusCode)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return nil, lastErr
}

// Download downloads a file by URL and saves it to outputPath. A partial
// download left behind by a previous run resumes from its temporary file.
func (d *Downloader) Download(ctx context.Context, urlStr, outputPath string) error {
	tmpPath := outputPath + temporaryFileSuffix
	var outFile *os.File
	var err error
	if _, statErr := os.Stat(tmpPath); statErr == nil {
		outFile, err = os.OpenFile(tmpPath, os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open temp file for append: %w", err)
		}
		log.Debug("resuming from existing temp file", "path", tmpPath)
	} else {
		outFile, err = os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
	}
	defer func() { _ = outFile.Close() }()

	info, err := outFile.Stat()
	if err != nil {
		return err
	}
	downloaded := info.Size()

	totalSize, err := d.detectTotalSize(ctx, urlStr)
	if err != nil {
		return fmt.Errorf("detect total size: %w", err)
	}
	log.Debug("starting download", "total", totalSize, "resume_from", downloaded)

	buf := make([]byte, copyBufferSizeBytes)
	for downloaded < totalSize {
		end := downloaded + d.chunkSize - 1
		if end >= totalSize {
			end = totalSize - 1
		}

		resp, err := d.fetchChunk(ctx, urlStr, downloaded, end)
		if err != nil {
			return fmt.Errorf("fetch chunk at %d: %w", downloaded, err)
		}

		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				if _, writeErr := outFile.Write(buf[:n]); writeErr != nil {
					_ = resp.Body.Close()
					return fmt.Errorf("write chunk: %w", writeErr)
				}
				downloaded += int64(n)
				d.reportProgress(downloaded, totalSize)
				d.sleepForRate(int64(n))
			}
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				_ = resp.Body.Close()
				return fmt.Errorf("read chunk: %w", readErr)
			}
		}
		_ = resp.Body.Close()

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if err := outFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, outputPath)
}

func (d *Downloader) reportProgress(downloaded, total int64) {
	if d.ProgressFunc == nil {
		return
	}
	p := Progress{TotalSize: total, DownloadedSize: downloaded}
	if total > 0 {
		p.Percent = float64(downloaded) / float64(total) * 100
	}
	d.ProgressFunc(p)
}
