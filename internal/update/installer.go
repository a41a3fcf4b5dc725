package update

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Installer hands a downloaded artifact to the operating system.
type Installer interface {
	Launch(ctx context.Context, path string) error
}

// CommandInstaller runs an OS handler command with the artifact path
// appended to Args. The handler is expected to return as soon as it has
// passed the file on; the installer UI itself is not monitored.
type CommandInstaller struct {
	Command string
	Args    []string
}

// Launch runs the handler and reports its stderr when it fails. Terminal
// escapes in the handler output are dropped.
func (c CommandInstaller) Launch(ctx context.Context, path string) error {
	args := append(append([]string(nil), c.Args...), path)
	//nolint:gosec // G204: command comes from the platform registry
	cmd := exec.CommandContext(ctx, c.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &InstallLaunchError{Stderr: strings.TrimSpace(ansi.Strip(stderr.String())), Err: err}
	}
	return nil
}

// UnsupportedInstaller is used on platforms without a package handler.
type UnsupportedInstaller struct{}

// Launch always fails with ErrInstallUnsupportedPlatform.
func (UnsupportedInstaller) Launch(context.Context, string) error {
	return ErrInstallUnsupportedPlatform
}

var installers = map[string]func() Installer{
	"darwin": func() Installer { return CommandInstaller{Command: "open"} },
}

// NewInstaller returns the installer for goos.
func NewInstaller(goos string) Installer {
	if ctor, ok := installers[goos]; ok {
		return ctor()
	}
	return UnsupportedInstaller{}
}
