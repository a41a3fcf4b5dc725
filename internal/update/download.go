package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"
)

const (
	// DefaultDownloadTimeout bounds the whole artifact transfer.
	DefaultDownloadTimeout = 10 * time.Minute

	// DefaultDownloadRetries is how many times a transient failure is retried.
	DefaultDownloadRetries = 2

	// fallbackFileName is used when the URL has no usable final segment.
	fallbackFileName = "update.dmg"

	// maxArtifactBytes bounds the downloaded installer (2 GB).
	maxArtifactBytes = 2 << 30

	lockRetryDelay = 100 * time.Millisecond
)

// Downloader fetches installer artifacts into a per-version temp directory.
type Downloader struct {
	httpClient    *http.Client
	userAgent     string
	timeout       time.Duration
	retries       int
	retryInterval time.Duration
	tempRoot      func() string
	maxBytes      int64
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithDownloadHTTPClient sets a custom HTTP client.
func WithDownloadHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		d.httpClient = client
	}
}

// WithDownloadUserAgent sets the User-Agent header.
func WithDownloadUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) {
		d.userAgent = ua
	}
}

// WithDownloadTimeout bounds the whole transfer, including retries.
func WithDownloadTimeout(timeout time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithDownloadRetries sets how many times transient failures are retried
// and the initial back-off between attempts.
func WithDownloadRetries(retries int, interval time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if retries < 0 {
			retries = 0
		}
		d.retries = retries
		if interval > 0 {
			d.retryInterval = interval
		}
	}
}

// WithTempRoot overrides os.TempDir as the parent of download directories.
func WithTempRoot(dir string) DownloaderOption {
	return func(d *Downloader) {
		d.tempRoot = func() string { return dir }
	}
}

// NewDownloader creates a Downloader with default settings.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		httpClient:    http.DefaultClient,
		userAgent:     DefaultUserAgent,
		timeout:       DefaultDownloadTimeout,
		retries:       DefaultDownloadRetries,
		retryInterval: 500 * time.Millisecond,
		tempRoot:      os.TempDir,
		maxBytes:      maxArtifactBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dir returns the download directory for version.
func (d *Downloader) Dir(version string) string {
	return filepath.Join(d.tempRoot(), "update_"+version)
}

// Download fetches rawURL into Dir(version) and returns the file path. The
// file is written to a temporary name and renamed into place, then checked
// for presence. Concurrent downloads of the same artifact are serialised
// with a file lock. The file is left on disk for the installer.
func (d *Downloader) Download(ctx context.Context, rawURL, version string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	dir := d.Dir(version)
	//nolint:gosec // G301: temp directory is read by the OS installer
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &FileWriteError{Path: dir, Err: err}
	}

	name := fileNameFromURL(rawURL)
	target := filepath.Join(dir, name)

	lock := flock.New(target + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("lock %s: %w", target, err)
	}
	if !locked {
		return "", fmt.Errorf("lock %s: already held", target)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := d.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if err := writeFileAtomic(dir, target, data); err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err != nil {
		return "", &FileWriteError{Path: target, Err: fmt.Errorf("downloaded file missing: %w", err)}
	}
	return target, nil
}

// fetch performs the GET with retries. Transport errors and 5xx responses
// are retried; any other non-2xx status or an oversized body is permanent.
func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var data []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/octet-stream")
		req.Header.Set("User-Agent", d.userAgent)

		resp, err := d.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(&DownloadError{Err: err})
			}
			return &DownloadError{Err: err}
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			dlErr := &DownloadError{Status: resp.StatusCode}
			if resp.StatusCode >= 500 {
				return dlErr
			}
			return backoff.Permanent(dlErr)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
		if err != nil {
			return &DownloadError{Err: fmt.Errorf("read body: %w", err)}
		}
		if int64(len(body)) > d.maxBytes {
			return backoff.Permanent(&DownloadError{Err: fmt.Errorf("artifact exceeds %d bytes", d.maxBytes)})
		}
		data = body
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.retries)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		var dlErr *DownloadError
		if errors.As(err, &dlErr) {
			return nil, dlErr
		}
		return nil, &DownloadError{Err: err}
	}
	return data, nil
}

func writeFileAtomic(dir, target string, data []byte) error {
	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".part-*")
	if err != nil {
		return &FileWriteError{Path: target, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &FileWriteError{Path: target, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &FileWriteError{Path: target, Err: err}
	}
	//nolint:gosec // G302: installer images must be readable by the OS handler
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return &FileWriteError{Path: target, Err: err}
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return &FileWriteError{Path: target, Err: err}
	}
	return nil
}

// fileNameFromURL returns the final path segment of rawURL, or
// fallbackFileName when there is none.
func fileNameFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	name := path.Base(strings.TrimRight(p, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return fallbackFileName
	}
	return name
}
