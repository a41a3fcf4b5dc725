package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunUpdateManualFallbackCopiesLink(t *testing.T) {
	server := newReleaseServer(t, "v0.2.0")
	opened := stubOpenURL(t)

	var copied []string
	origCopy := copyToClipboard
	copyToClipboard = func(s string) error {
		copied = append(copied, s)
		return nil
	}
	t.Cleanup(func() { copyToClipboard = origCopy })

	var stdout, stderr bytes.Buffer
	err := runUpdate(context.Background(), updateParams{
		stdout:   &stdout,
		stderr:   &stderr,
		pipeline: newTestPipeline(t, server, "0.1.0", nil),
		copyLink: true,
		open:     true,
	})
	if err != nil {
		t.Fatalf("runUpdate() error: %v", err)
	}

	pageURL := server.URL + "/owner/repo/releases/tag/v0.2.0"
	out := plainText(stdout.String())
	for _, want := range []string{
		"Automatic install failed: no installer package found for platform x64",
		"Please download and install manually: " + pageURL,
		"Link copied to clipboard.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(copied) != 1 || copied[0] != pageURL {
		t.Errorf("copied = %v, want [%s]", copied, pageURL)
	}
	if len(*opened) != 1 || (*opened)[0] != pageURL {
		t.Errorf("opened = %v", *opened)
	}
}

func TestRunUpdateInstalls(t *testing.T) {
	server := newReleaseServer(t, "v0.2.0", "mirror_0.2.0_x64.dmg")

	var launched string
	installer := installerFunc(func(_ context.Context, path string) error {
		launched = path
		return nil
	})

	var stdout, stderr bytes.Buffer
	err := runUpdate(context.Background(), updateParams{
		stdout:   &stdout,
		stderr:   &stderr,
		pipeline: newTestPipeline(t, server, "0.1.0", installer),
		copyLink: true,
	})
	if err != nil {
		t.Fatalf("runUpdate() error: %v", err)
	}
	if filepath.Base(launched) != "mirror_0.2.0_x64.dmg" {
		t.Errorf("launched = %q", launched)
	}
	out := plainText(stdout.String())
	if !strings.Contains(out, "The installer has been launched") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "clipboard") {
		t.Error("link should only be copied on manual fallback")
	}
}

func TestRunUpdateUpToDate(t *testing.T) {
	server := newReleaseServer(t, "v0.1.0")
	var stdout, stderr bytes.Buffer

	err := runUpdate(context.Background(), updateParams{
		stdout:   &stdout,
		stderr:   &stderr,
		pipeline: newTestPipeline(t, server, "0.1.0", nil),
	})
	if err != nil {
		t.Fatalf("runUpdate() error: %v", err)
	}
	if got := plainText(stdout.String()); got != "Already up to date (version 0.1.0)." {
		t.Errorf("output = %q", got)
	}
}

func TestIsTerminalRejectsBuffers(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("buffer should not be a terminal")
	}
}
