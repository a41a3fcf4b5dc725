package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"mirror/internal/update"
)

var testRepo = update.Repository{Owner: "owner", Name: "repo"}

// plainText drops terminal styling from command output.
func plainText(s string) string {
	return strings.TrimSpace(ansi.Strip(s))
}

type installerFunc func(ctx context.Context, path string) error

func (f installerFunc) Launch(ctx context.Context, path string) error { return f(ctx, path) }

// newReleaseServer serves the latest-release API for tag and the named
// installer packages.
func newReleaseServer(t *testing.T, tag string, packages ...string) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/repos/owner/repo/releases/latest":
			_ = json.NewEncoder(w).Encode(update.Release{
				TagName: tag,
				HTMLURL: server.URL + "/owner/repo/releases/tag/" + tag,
				Name:    "Mirror " + tag,
				Body:    "## Changes\n\n- Faster sync",
			})
		case strings.HasPrefix(r.URL.Path, "/owner/repo/releases/download/"):
			for _, p := range packages {
				if filepath.Base(r.URL.Path) == p {
					_, _ = w.Write([]byte("dmg"))
					return
				}
			}
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestPipeline(t *testing.T, server *httptest.Server, current string, installer update.Installer) *update.Pipeline {
	t.Helper()
	if installer == nil {
		installer = update.UnsupportedInstaller{}
	}
	resolver := update.NewResolver(update.NewReleaseCache(),
		update.NewGitHubAPI(testRepo, update.WithAPIBaseURL(server.URL)), nil)
	return update.NewPipeline(current, resolver,
		update.WithSelector(update.NewArtifactSelector(testRepo, update.WithSelectorBaseURL(server.URL))),
		update.WithDownloader(update.NewDownloader(update.WithTempRoot(t.TempDir()), update.WithDownloadRetries(0, 0))),
		update.WithInstaller(installer),
		update.WithArch(update.ArchX64),
	)
}

func stubOpenURL(t *testing.T) *[]string {
	t.Helper()
	var opened []string
	orig := openURL
	openURL = func(u string) error {
		opened = append(opened, u)
		return nil
	}
	t.Cleanup(func() { openURL = orig })
	return &opened
}
