package main

import (
	"context"
	"fmt"
	"io"

	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"

	"mirror/internal/config"
	"mirror/internal/update"
)

// openURL opens a link in the default browser.
var openURL = open.Start

type checkParams struct {
	stdout   io.Writer
	stderr   io.Writer
	pipeline *update.Pipeline
	asJSON   bool
	notes    bool
	open     bool
	format   string
}

func newCheckCommand() *cobra.Command {
	p := checkParams{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a newer release is available",
		Example: `  # Show current and latest versions
  mirror check

  # Machine-readable output
  mirror check --json

  # Include release notes and open the release page
  mirror check --notes --open`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.stdout = cmd.OutOrStdout()
			p.stderr = cmd.ErrOrStderr()
			p.pipeline = pipelineFactory()
			p.format = config.GetString(config.KeyOutputFormat)
			return runCheck(cmd.Context(), p)
		},
	}
	cmd.Flags().BoolVar(&p.asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&p.notes, "notes", false, "show release notes")
	cmd.Flags().BoolVar(&p.open, "open", false, "open the release page in the browser when an update is available")
	return cmd
}

// runCheck resolves the latest release and reports it without installing.
func runCheck(ctx context.Context, p checkParams) error {
	d, err := p.pipeline.CheckForUpdates(ctx)
	if err != nil {
		return fail(p.stderr, err)
	}

	if p.asJSON {
		if err := writeJSON(p.stdout, d); err != nil {
			return err
		}
	} else {
		renderDecision(p.stdout, d)
		if p.notes {
			renderNotes(p.stdout, d, buildNotesRenderer(p.format, defaultNotesWidth))
		}
	}

	if p.open && d.UpdateAvailable && d.DownloadURL != "" {
		if err := openURL(d.DownloadURL); err != nil {
			fmt.Fprintln(p.stderr, warningStyle.Render("Warning:"), "could not open browser:", err)
		}
	}
	return nil
}
