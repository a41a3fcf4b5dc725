package update

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Architecture labels used in installer file names.
const (
	ArchARM64 = "aarch64"
	ArchX64   = "x64"
)

// DetectArch maps a GOARCH value to the installer naming convention.
// Everything that is not 64-bit ARM gets the default x64 package.
func DetectArch(goarch string) string {
	if goarch == "arm64" {
		return ArchARM64
	}
	return ArchX64
}

// ArtifactSelector builds the download URL of the installer package for a
// release and architecture, and checks that it exists before returning it.
type ArtifactSelector struct {
	httpClient *http.Client
	repo       Repository
	baseURL    string
	product    string
	userAgent  string
	timeout    time.Duration
}

// ArtifactSelectorOption configures an ArtifactSelector.
type ArtifactSelectorOption func(*ArtifactSelector)

// WithSelectorHTTPClient sets a custom HTTP client for the existence probe.
func WithSelectorHTTPClient(client *http.Client) ArtifactSelectorOption {
	return func(s *ArtifactSelector) {
		s.httpClient = client
	}
}

// WithSelectorBaseURL overrides the download host (default https://github.com).
func WithSelectorBaseURL(base string) ArtifactSelectorOption {
	return func(s *ArtifactSelector) {
		s.baseURL = strings.TrimRight(base, "/")
	}
}

// WithSelectorProduct sets the product prefix of installer file names.
func WithSelectorProduct(product string) ArtifactSelectorOption {
	return func(s *ArtifactSelector) {
		s.product = product
	}
}

// WithSelectorUserAgent sets the User-Agent header of the probe.
func WithSelectorUserAgent(ua string) ArtifactSelectorOption {
	return func(s *ArtifactSelector) {
		s.userAgent = ua
	}
}

// WithSelectorTimeout sets the probe timeout.
func WithSelectorTimeout(timeout time.Duration) ArtifactSelectorOption {
	return func(s *ArtifactSelector) {
		s.timeout = timeout
	}
}

// NewArtifactSelector creates a selector for repo.
func NewArtifactSelector(repo Repository, opts ...ArtifactSelectorOption) *ArtifactSelector {
	s := &ArtifactSelector{
		httpClient: http.DefaultClient,
		repo:       repo,
		baseURL:    DefaultWebBaseURL,
		product:    "mirror",
		userAgent:  DefaultUserAgent,
		timeout:    DefaultMetadataTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FileName returns the installer file name for version and arch.
func (s *ArtifactSelector) FileName(version, arch string) string {
	if arch != ArchARM64 {
		arch = ArchX64
	}
	return fmt.Sprintf("%s_%s_%s.dmg", s.product, version, arch)
}

// ResolveURL returns the download URL of the installer for tag and arch.
// The release tag names the download directory; the normalized version
// names the file. A HEAD probe must succeed before the URL is returned.
func (s *ArtifactSelector) ResolveURL(ctx context.Context, tag, arch string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/releases/download/%s/%s",
		s.baseURL, s.repo.Owner, s.repo.Name, tag, s.FileName(NormalizeTag(tag), arch))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", url, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &PlatformUnsupportedError{Arch: arch}
	}
	return url, nil
}
