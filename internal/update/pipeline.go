package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	apperrors "mirror/internal/errors"
)

// InstallLaunchedMessage is reported once the installer has been handed off.
const InstallLaunchedMessage = "Update downloaded. The installer has been launched; follow its prompts to finish installing."

// Decision is the result of comparing the running version with the latest
// release.
type Decision struct {
	CurrentVersion  string `json:"current"`
	LatestVersion   string `json:"latest"`
	UpdateAvailable bool   `json:"has_update"`
	DownloadURL     string `json:"download_url,omitempty"`

	Tag   string `json:"tag,omitempty"`
	Title string `json:"title,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Outcome is the result of a full check-and-update run.
type Outcome struct {
	Decision Decision
	Message  string

	// Installed is true once the installer was launched.
	Installed bool

	// ManualURL and InstallErr are set when the automatic install failed
	// and the user was pointed at the release page instead.
	ManualURL  string
	InstallErr error
}

// Pipeline ties release resolution, artifact selection, download and
// installation together for one running build.
type Pipeline struct {
	current    string
	resolver   *Resolver
	selector   *ArtifactSelector
	downloader *Downloader
	installer  Installer
	arch       string
	logger     *log.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithSelector sets the artifact selector.
func WithSelector(s *ArtifactSelector) PipelineOption {
	return func(p *Pipeline) {
		p.selector = s
	}
}

// WithDownloader sets the downloader.
func WithDownloader(d *Downloader) PipelineOption {
	return func(p *Pipeline) {
		p.downloader = d
	}
}

// WithInstaller sets the installer.
func WithInstaller(i Installer) PipelineOption {
	return func(p *Pipeline) {
		p.installer = i
	}
}

// WithArch overrides the detected architecture (aarch64 or x64).
func WithArch(arch string) PipelineOption {
	return func(p *Pipeline) {
		p.arch = arch
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *log.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline for the build identified by current.
func NewPipeline(current string, resolver *Resolver, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		current:    current,
		resolver:   resolver,
		selector:   NewArtifactSelector(DefaultRepository),
		downloader: NewDownloader(),
		installer:  NewInstaller(runtime.GOOS),
		arch:       DetectArch(runtime.GOARCH),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentVersion returns the version of the running build.
func (p *Pipeline) CurrentVersion() string {
	return p.current
}

// CheckForUpdates resolves the latest release and compares it with the
// running version. It never downloads anything.
func (p *Pipeline) CheckForUpdates(ctx context.Context) (Decision, error) {
	release, err := p.resolver.Resolve(ctx)
	if err != nil {
		return Decision{}, apperrors.New(CodeFor(err), "update check failed: "+err.Error(), err)
	}

	latest := NormalizeTag(release.TagName)
	if !IsSemver(p.current) || !IsSemver(latest) {
		p.logger.Debug("comparing non-semver versions lexically", "current", p.current, "latest", latest)
	}

	d := Decision{
		CurrentVersion:  p.current,
		LatestVersion:   latest,
		UpdateAvailable: IsNewer(p.current, latest),
		Tag:             release.TagName,
		Title:           release.Name,
		Notes:           release.Body,
	}
	if d.UpdateAvailable {
		d.DownloadURL = release.HTMLURL
	}
	return d, nil
}

// CheckAndUpdate runs the full pipeline and returns the user-facing message.
func (p *Pipeline) CheckAndUpdate(ctx context.Context) (string, error) {
	out, err := p.Run(ctx)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}

// Run checks for an update and, if one exists, downloads and launches the
// installer. When installation fails but a release page is known, the
// failure is reported in the Outcome rather than as an error.
func (p *Pipeline) Run(ctx context.Context) (Outcome, error) {
	d, err := p.CheckForUpdates(ctx)
	if err != nil {
		return Outcome{}, err
	}

	if !d.UpdateAvailable {
		return Outcome{
			Decision: d,
			Message:  fmt.Sprintf("Already up to date (version %s).", d.CurrentVersion),
		}, nil
	}

	p.logger.Info("update available", "current", d.CurrentVersion, "latest", d.LatestVersion)
	detected := fmt.Sprintf("Update available: %s -> %s.", d.CurrentVersion, d.LatestVersion)

	msg, err := p.DownloadAndInstall(ctx, d)
	if err == nil {
		return Outcome{
			Decision:  d,
			Message:   detected + "\n" + msg,
			Installed: true,
		}, nil
	}

	p.logger.Warn("automatic install failed", "err", err)
	if d.DownloadURL == "" {
		return Outcome{}, apperrors.New(CodeFor(err), "update failed: "+err.Error(), err)
	}
	return Outcome{
		Decision: d,
		Message: strings.Join([]string{
			detected,
			"Automatic install failed: " + err.Error(),
			"Please download and install manually: " + d.DownloadURL,
		}, "\n"),
		ManualURL:  d.DownloadURL,
		InstallErr: err,
	}, nil
}

// DownloadAndInstall fetches the installer package for d and launches it.
// A release page URL is first resolved to the platform artifact.
func (p *Pipeline) DownloadAndInstall(ctx context.Context, d Decision) (string, error) {
	if d.DownloadURL == "" {
		return "", ErrNoDownloadURL
	}

	url := d.DownloadURL
	if strings.Contains(url, "releases/tag") {
		tag := d.Tag
		if tag == "" {
			tag = d.LatestVersion
		}
		resolved, err := p.selector.ResolveURL(ctx, tag, p.arch)
		if err != nil {
			return "", err
		}
		url = resolved
	}

	p.logger.Debug("downloading installer", "url", url)
	path, err := p.downloader.Download(ctx, url, d.LatestVersion)
	if err != nil {
		return "", err
	}

	p.logger.Debug("launching installer", "path", path)
	if err := p.installer.Launch(ctx, path); err != nil {
		if errors.Is(err, ErrInstallUnsupportedPlatform) {
			return "", fmt.Errorf("installer downloaded to %s: %w", path, err)
		}
		return "", err
	}
	return InstallLaunchedMessage, nil
}
