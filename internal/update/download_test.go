package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/o/r/releases/download/v1/mirror_1.0.0_x64.dmg", "mirror_1.0.0_x64.dmg"},
		{"https://example.com/files/pkg.dmg?token=abc", "pkg.dmg"},
		{"https://example.com/files/pkg.dmg/", "pkg.dmg"},
		{"https://example.com/", fallbackFileName},
		{"https://example.com", fallbackFileName},
		{"", fallbackFileName},
	}
	for _, tt := range tests {
		if got := fileNameFromURL(tt.url); got != tt.want {
			t.Errorf("fileNameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDownloaderWritesArtifact(t *testing.T) {
	payload := []byte("fake disk image contents")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "mirror-app" {
			t.Errorf("User-Agent = %q", got)
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	root := t.TempDir()
	d := NewDownloader(WithTempRoot(root))

	path, err := d.Download(context.Background(), server.URL+"/dl/mirror_0.2.0_x64.dmg", "0.2.0")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	want := filepath.Join(root, "update_0.2.0", "mirror_0.2.0_x64.dmg")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("contents = %q, want %q", data, payload)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".part-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}

	// Re-running into the existing directory replaces the artifact.
	if _, err := d.Download(context.Background(), server.URL+"/dl/mirror_0.2.0_x64.dmg", "0.2.0"); err != nil {
		t.Fatalf("second Download() error: %v", err)
	}
}

func TestDownloaderFallbackFileName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	d := NewDownloader(WithTempRoot(t.TempDir()))
	path, err := d.Download(context.Background(), server.URL+"/", "1.0.0")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if filepath.Base(path) != "update.dmg" {
		t.Errorf("file name = %q, want update.dmg", filepath.Base(path))
	}
}

func TestDownloaderClientErrorIsPermanent(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	d := NewDownloader(WithTempRoot(t.TempDir()), WithDownloadRetries(3, time.Millisecond))
	_, err := d.Download(context.Background(), server.URL+"/missing.dmg", "0.2.0")

	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected *DownloadError, got %v", err)
	}
	if dlErr.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", dlErr.Status)
	}
	if err.Error() != "download failed: HTTP 404" {
		t.Errorf("message = %q", err.Error())
	}
	if requests.Load() != 1 {
		t.Errorf("requests = %d, want 1", requests.Load())
	}
}

func TestDownloaderRetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := NewDownloader(WithTempRoot(t.TempDir()), WithDownloadRetries(2, time.Millisecond))
	path, err := d.Download(context.Background(), server.URL+"/pkg.dmg", "0.2.0")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if requests.Load() != 2 {
		t.Errorf("requests = %d, want 2", requests.Load())
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestDownloaderGivesUpAfterRetries(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDownloader(WithTempRoot(t.TempDir()), WithDownloadRetries(1, time.Millisecond))
	_, err := d.Download(context.Background(), server.URL+"/pkg.dmg", "0.2.0")

	var dlErr *DownloadError
	if !errors.As(err, &dlErr) || dlErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected HTTP 500 DownloadError, got %v", err)
	}
	if requests.Load() != 2 {
		t.Errorf("requests = %d, want 2", requests.Load())
	}
}

func TestDownloaderRejectsOversizedArtifact(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	d := NewDownloader(WithTempRoot(t.TempDir()), WithDownloadRetries(2, time.Millisecond))
	d.maxBytes = 4
	_, err := d.Download(context.Background(), server.URL+"/pkg.dmg", "0.2.0")

	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected *DownloadError, got %v", err)
	}
	if err.Error() != "download failed: artifact exceeds 4 bytes" {
		t.Errorf("message = %q", err.Error())
	}
	if requests.Load() != 1 {
		t.Errorf("requests = %d, want 1", requests.Load())
	}
	if _, statErr := os.Stat(filepath.Join(d.Dir("0.2.0"), "pkg.dmg")); !os.IsNotExist(statErr) {
		t.Errorf("oversized artifact should not be written, stat err = %v", statErr)
	}
}

func TestDownloaderAcceptsArtifactAtLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123"))
	}))
	defer server.Close()

	d := NewDownloader(WithTempRoot(t.TempDir()))
	d.maxBytes = 4
	path, err := d.Download(context.Background(), server.URL+"/pkg.dmg", "0.2.0")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "0123" {
		t.Errorf("artifact = %q, want %q", data, "0123")
	}
}
