package errors

import "errors"

// Code identifies a structured error type used across the application.
type Code string

const (
	// Generic codes
	CodeUnknown            Code = "unknown"
	CodeConfigurationError Code = "configuration_error"

	// Release resolution
	CodeRateLimited      Code = "rate_limited"
	CodeStrategyFailed   Code = "strategy_failed"
	CodeAllSourcesFailed Code = "all_sources_failed"

	// Download and install
	CodeNoDownloadURL       Code = "no_download_url"
	CodePlatformUnsupported Code = "platform_unsupported"
	CodeDownloadFailed      Code = "download_failed"
	CodeFileWriteFailed     Code = "file_write_failed"
	CodeInstallLaunchFailed Code = "install_launch_failed"
	CodeInstallUnsupported  Code = "install_unsupported_platform"
)

// Error represents a structured error with a machine-readable code plus message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

// Unwrap returns the wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// New wraps an error with a code/message.
func New(code Code, msg string, err error) Error {
	return Error{Code: code, Message: msg, Err: err}
}

// CodeOf walks the error chain and returns the first structured code found.
func CodeOf(err error) Code {
	var structured Error
	if errors.As(err, &structured) {
		return structured.Code
	}
	return CodeUnknown
}

// IsCode reports whether the error (or its unwrap chain) matches the provided code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Transient reports whether the code describes a failure that is likely to
// go away on retry (network trouble, rate limits).
func (c Code) Transient() bool {
	switch c {
	case CodeRateLimited, CodeStrategyFailed, CodeAllSourcesFailed, CodeDownloadFailed:
		return true
	default:
		return false
	}
}
