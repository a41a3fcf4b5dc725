package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "mirror/internal/errors"
	"mirror/internal/update"
)

const (
	exitOK        = 0
	exitUserError = 1
	exitTransient = 2
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// userErrorCodes are failures the user has to act on; retrying alone
// will not help.
var userErrorCodes = []apperrors.Code{
	apperrors.CodeNoDownloadURL,
	apperrors.CodePlatformUnsupported,
	apperrors.CodeInstallUnsupported,
	apperrors.CodeConfigurationError,
	apperrors.CodeFileWriteFailed,
}

// classifyExitCode maps an update error to a process exit code.
// Problems the user can act on exit with 1; network and upstream
// failures exit with 2.
func classifyExitCode(err error) int {
	tagged := apperrors.New(update.CodeFor(err), "", err)
	if apperrors.CodeOf(tagged).Transient() {
		return exitTransient
	}
	for _, code := range userErrorCodes {
		if apperrors.IsCode(tagged, code) {
			return exitUserError
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return exitTransient
	}
	if errors.Is(err, context.Canceled) {
		return exitUserError
	}
	return exitTransient
}

// formatError renders an update error with remediation hints.
func formatError(err error) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render("Error:"))
	b.WriteString(" ")
	b.WriteString(err.Error())

	var rlErr *update.RateLimitError
	if errors.As(err, &rlErr) && !rlErr.ResetAt.IsZero() {
		fmt.Fprintf(&b, "\n\nThe GitHub API quota resets at %s.", rlErr.ResetAt.Local().Format("15:04"))
	}

	if causes := update.Causes(err); len(causes) > 0 {
		b.WriteString("\n")
		for _, cause := range causes {
			b.WriteString("\n  ")
			b.WriteString(mutedStyle.Render("- " + cause.Error()))
		}
	}
	return b.String()
}

// fail prints err and wraps it with its exit code.
func fail(w io.Writer, err error) error {
	fmt.Fprintln(w, formatError(err))
	return &ExitError{Code: classifyExitCode(err), Err: err}
}
