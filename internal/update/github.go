package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultAPIBaseURL      = "https://api.github.com"
	DefaultWebBaseURL      = "https://github.com"
	DefaultUserAgent       = "mirror-app"
	DefaultMetadataTimeout = 10 * time.Second

	// maxJSONResponseBytes bounds the decoded API response (10 MB).
	maxJSONResponseBytes = 10 << 20

	// maxErrorBodyBytes bounds the response body kept in a StrategyError.
	maxErrorBodyBytes = 4 << 10
)

// GitHubAPI resolves the latest release through the GitHub REST API.
type GitHubAPI struct {
	httpClient *http.Client
	repo       Repository
	baseURL    string
	userAgent  string
	timeout    time.Duration
}

// GitHubAPIOption configures a GitHubAPI.
type GitHubAPIOption func(*GitHubAPI)

// WithAPIHTTPClient sets a custom HTTP client.
func WithAPIHTTPClient(client *http.Client) GitHubAPIOption {
	return func(g *GitHubAPI) {
		g.httpClient = client
	}
}

// WithAPIBaseURL overrides the API base URL, primarily for test servers and
// GitHub Enterprise.
func WithAPIBaseURL(base string) GitHubAPIOption {
	return func(g *GitHubAPI) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithAPIUserAgent sets the User-Agent header. GitHub rejects requests
// without one.
func WithAPIUserAgent(ua string) GitHubAPIOption {
	return func(g *GitHubAPI) {
		g.userAgent = ua
	}
}

// WithAPITimeout sets the per-request timeout.
func WithAPITimeout(timeout time.Duration) GitHubAPIOption {
	return func(g *GitHubAPI) {
		g.timeout = timeout
	}
}

// NewGitHubAPI creates the primary strategy for repo.
func NewGitHubAPI(repo Repository, opts ...GitHubAPIOption) *GitHubAPI {
	g := &GitHubAPI{
		httpClient: http.DefaultClient,
		repo:       repo,
		baseURL:    DefaultAPIBaseURL,
		userAgent:  DefaultUserAgent,
		timeout:    DefaultMetadataTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements Strategy.
func (g *GitHubAPI) Name() string { return "github-api" }

// Latest fetches the latest release from the API.
func (g *GitHubAPI) Latest(ctx context.Context) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", g.baseURL, g.repo.Owner, g.repo.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Release{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("%s: %w", g.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusForbidden {
		if rlErr := checkRateLimit(g.Name(), resp); rlErr != nil {
			return Release{}, rlErr
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Release{}, newStrategyError(g.Name(), resp)
	}

	var release Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&release); err != nil {
		return Release{}, fmt.Errorf("%s: decode response: %w", g.Name(), err)
	}
	if release.TagName == "" {
		return Release{}, fmt.Errorf("%s: response has no tag_name", g.Name())
	}
	return release, nil
}

// checkRateLimit returns a *RateLimitError when X-RateLimit-Remaining is
// exactly "0". Companion headers are parsed best-effort for the message.
func checkRateLimit(strategy string, resp *http.Response) error {
	if strings.TrimSpace(resp.Header.Get("X-RateLimit-Remaining")) != "0" {
		return nil
	}
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	rlErr := &RateLimitError{Strategy: strategy, Limit: limit}
	if resetUnix > 0 {
		rlErr.ResetAt = time.Unix(resetUnix, 0)
	}
	return rlErr
}

func newStrategyError(strategy string, resp *http.Response) *StrategyError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &StrategyError{
		Strategy: strategy,
		Status:   resp.StatusCode,
		Body:     strings.TrimSpace(string(body)),
	}
}
