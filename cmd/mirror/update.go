package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"mirror/internal/update"
)

// copyToClipboard writes text to the system clipboard.
var copyToClipboard = clipboard.WriteAll

type updateParams struct {
	stdout   io.Writer
	stderr   io.Writer
	pipeline *update.Pipeline
	copyLink bool
	open     bool
	spinner  bool
}

func newUpdateCommand() *cobra.Command {
	var noSpinner bool
	p := updateParams{}
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download and launch the installer for the latest release",
		Long: `Download and launch the installer for the latest release.

The installer package matching this machine's architecture is downloaded
to a temporary directory and handed to the operating system. If that is
not possible, the release page link is printed instead.`,
		Example: `  # Update to the latest release
  mirror update

  # Copy the manual download link if the automatic install fails
  mirror update --copy-link`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.stdout = cmd.OutOrStdout()
			p.stderr = cmd.ErrOrStderr()
			p.pipeline = pipelineFactory()
			p.spinner = !noSpinner && isTerminal(p.stderr)
			return runUpdate(cmd.Context(), p)
		},
	}
	cmd.Flags().BoolVar(&p.copyLink, "copy-link", false, "copy the manual download link to the clipboard on failure")
	cmd.Flags().BoolVar(&p.open, "open", false, "open the manual download link in the browser on failure")
	cmd.Flags().BoolVar(&noSpinner, "no-spinner", false, "disable the progress spinner")
	return cmd
}

// runUpdate is the core update flow, separated from Cobra for testability.
func runUpdate(ctx context.Context, p updateParams) error {
	var (
		out update.Outcome
		err error
	)
	if p.spinner {
		out, err = runWithSpinner(ctx, p.stderr, "Checking for updates...", p.pipeline.Run)
	} else {
		out, err = p.pipeline.Run(ctx)
	}
	if err != nil {
		return fail(p.stderr, err)
	}

	renderOutcome(p.stdout, out)
	if out.ManualURL == "" {
		return nil
	}

	if p.copyLink {
		if err := copyToClipboard(out.ManualURL); err != nil {
			fmt.Fprintln(p.stderr, warningStyle.Render("Warning:"), "could not copy link:", err)
		} else {
			fmt.Fprintln(p.stdout, mutedStyle.Render("Link copied to clipboard."))
		}
	}
	if p.open {
		if err := openURL(out.ManualURL); err != nil {
			fmt.Fprintln(p.stderr, warningStyle.Render("Warning:"), "could not open browser:", err)
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
