package update

import (
	"errors"
	"fmt"
	"time"

	apperrors "mirror/internal/errors"
)

var (
	// ErrRateLimited matches any *RateLimitError.
	ErrRateLimited = errors.New("GitHub API rate limit exceeded")

	// ErrAllSourcesFailed is returned by Resolve when every strategy failed.
	ErrAllSourcesFailed = errors.New("all update check methods failed; this could be due to network issues or GitHub API rate limits, please try again later")

	// ErrTagNotFound is returned when the releases page has no release tag.
	ErrTagNotFound = errors.New("could not extract version from releases page")

	// ErrNoDownloadURL is returned when an update has no known download location.
	ErrNoDownloadURL = errors.New("no download URL found")

	// ErrInstallUnsupportedPlatform is returned by installers for platforms
	// without a native package handler.
	ErrInstallUnsupportedPlatform = errors.New("automatic installation is not supported on this platform")
)

// RateLimitError is returned when the API reports no remaining quota.
type RateLimitError struct {
	Strategy string
	Limit    int
	ResetAt  time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return ErrRateLimited.Error()
	}
	return fmt.Sprintf("%s (limit %d, resets at %s)", ErrRateLimited, e.Limit, e.ResetAt.UTC().Format("15:04 UTC"))
}

// Is makes errors.Is(err, ErrRateLimited) hold.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StrategyError carries a non-success HTTP response from a strategy.
type StrategyError struct {
	Strategy string
	Status   int
	Body     string
}

func (e *StrategyError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Strategy, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d - %s", e.Strategy, e.Status, e.Body)
}

// PlatformUnsupportedError is returned when no installer package exists for
// the detected architecture.
type PlatformUnsupportedError struct {
	Arch string
}

func (e *PlatformUnsupportedError) Error() string {
	return fmt.Sprintf("no installer package found for platform %s", e.Arch)
}

// DownloadError is returned when the artifact download does not succeed.
// Status is zero for transport failures.
type DownloadError struct {
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download failed: HTTP %d", e.Status)
	}
	return fmt.Sprintf("download failed: %v", e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// FileWriteError is returned when the artifact could not be stored.
type FileWriteError struct {
	Path string
	Err  error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *FileWriteError) Unwrap() error { return e.Err }

// InstallLaunchError is returned when the OS handler could not be started.
type InstallLaunchError struct {
	Stderr string
	Err    error
}

func (e *InstallLaunchError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("failed to launch installer: %s", e.Stderr)
	}
	return fmt.Sprintf("failed to launch installer: %v", e.Err)
}

func (e *InstallLaunchError) Unwrap() error { return e.Err }

// CodeFor maps an error from this package onto an application error code.
func CodeFor(err error) apperrors.Code {
	if code := apperrors.CodeOf(err); code != apperrors.CodeUnknown {
		return code
	}

	var (
		strategyErr *StrategyError
		platformErr *PlatformUnsupportedError
		downloadErr *DownloadError
		writeErr    *FileWriteError
		launchErr   *InstallLaunchError
	)
	switch {
	case errors.Is(err, ErrAllSourcesFailed):
		return apperrors.CodeAllSourcesFailed
	case errors.Is(err, ErrRateLimited):
		return apperrors.CodeRateLimited
	case errors.As(err, &strategyErr), errors.Is(err, ErrTagNotFound):
		return apperrors.CodeStrategyFailed
	case errors.Is(err, ErrNoDownloadURL):
		return apperrors.CodeNoDownloadURL
	case errors.As(err, &platformErr):
		return apperrors.CodePlatformUnsupported
	case errors.As(err, &downloadErr):
		return apperrors.CodeDownloadFailed
	case errors.As(err, &writeErr):
		return apperrors.CodeFileWriteFailed
	case errors.As(err, &launchErr):
		return apperrors.CodeInstallLaunchFailed
	case errors.Is(err, ErrInstallUnsupportedPlatform):
		return apperrors.CodeInstallUnsupported
	default:
		return apperrors.CodeUnknown
	}
}
