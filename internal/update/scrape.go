package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxPageBytes bounds how much of the releases page is scanned (5 MB).
const maxPageBytes = 5 << 20

// ReleasePage discovers the latest tag by scraping the public "latest
// release" page. It depends on GitHub's markup and is only a fallback: its
// results are treated as provisional and are not cached by the Resolver.
type ReleasePage struct {
	httpClient *http.Client
	repo       Repository
	baseURL    string
	userAgent  string
	timeout    time.Duration
	product    string
}

// ReleasePageOption configures a ReleasePage.
type ReleasePageOption func(*ReleasePage)

// WithPageHTTPClient sets a custom HTTP client.
func WithPageHTTPClient(client *http.Client) ReleasePageOption {
	return func(p *ReleasePage) {
		p.httpClient = client
	}
}

// WithPageBaseURL overrides the web base URL (default https://github.com).
func WithPageBaseURL(base string) ReleasePageOption {
	return func(p *ReleasePage) {
		p.baseURL = strings.TrimRight(base, "/")
	}
}

// WithPageUserAgent sets the User-Agent header.
func WithPageUserAgent(ua string) ReleasePageOption {
	return func(p *ReleasePage) {
		p.userAgent = ua
	}
}

// WithPageTimeout sets the request timeout.
func WithPageTimeout(timeout time.Duration) ReleasePageOption {
	return func(p *ReleasePage) {
		p.timeout = timeout
	}
}

// WithPageProductName sets the product name used in synthesized titles.
func WithPageProductName(name string) ReleasePageOption {
	return func(p *ReleasePage) {
		p.product = name
	}
}

// NewReleasePage creates the secondary strategy for repo.
func NewReleasePage(repo Repository, opts ...ReleasePageOption) *ReleasePage {
	p := &ReleasePage{
		httpClient: http.DefaultClient,
		repo:       repo,
		baseURL:    DefaultWebBaseURL,
		userAgent:  DefaultUserAgent,
		timeout:    DefaultMetadataTimeout,
		product:    "Mirror",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Strategy.
func (p *ReleasePage) Name() string { return "releases-page" }

// Latest fetches the releases page and extracts the first release tag.
func (p *ReleasePage) Latest(ctx context.Context) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/%s/releases/latest", p.baseURL, p.repo.Owner, p.repo.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Release{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("%s: %w", p.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Release{}, &StrategyError{Strategy: p.Name(), Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Release{}, fmt.Errorf("%s: read page: %w", p.Name(), err)
	}

	marker := p.tagMarker()
	tag, ok := extractTag(string(body), marker)
	if !ok && resp.Request != nil && resp.Request.URL != nil {
		// The latest page redirects to the tag page; use the landing path
		// when the markup does not link to it.
		tag, ok = tagFromPath(resp.Request.URL.Path, marker)
	}
	if !ok {
		return Release{}, fmt.Errorf("%s: %w", p.Name(), ErrTagNotFound)
	}

	return Release{
		TagName: tag,
		HTMLURL: fmt.Sprintf("%s/%s/%s/releases/tag/%s", p.baseURL, p.repo.Owner, p.repo.Name, tag),
		Name:    fmt.Sprintf("%s %s", p.product, tag),
		Body:    "Retrieved from releases page",
	}, nil
}

func (p *ReleasePage) tagMarker() string {
	return "/" + p.repo.Owner + "/" + p.repo.Name + "/releases/tag/"
}

// extractTag finds the first occurrence of marker in markup and returns the
// text between it and the next double quote.
func extractTag(markup, marker string) (string, bool) {
	start := strings.Index(markup, marker)
	if start < 0 {
		return "", false
	}
	rest := markup[start+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end <= 0 {
		return "", false
	}
	return rest[:end], true
}

func tagFromPath(path, marker string) (string, bool) {
	idx := strings.Index(path, marker)
	if idx < 0 {
		return "", false
	}
	tag := strings.Trim(path[idx+len(marker):], "/")
	if tag == "" || strings.Contains(tag, "/") {
		return "", false
	}
	return tag, true
}
