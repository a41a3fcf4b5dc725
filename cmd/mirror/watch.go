package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"mirror/internal/config"
	"mirror/internal/debug"
	"mirror/internal/update"
)

type watchParams struct {
	stdout   io.Writer
	pipeline *update.Pipeline
	interval time.Duration
	logger   *log.Logger
}

func newWatchCommand() *cobra.Command {
	p := watchParams{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check for updates periodically and report new releases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.stdout = cmd.OutOrStdout()
			p.pipeline = pipelineFactory()
			p.logger = debug.Logger().WithPrefix("watcher")
			if !cmd.Flags().Changed("interval") {
				p.interval = config.Update().CheckInterval
			}
			return runWatch(cmd.Context(), p)
		},
	}
	cmd.Flags().DurationVar(&p.interval, "interval", update.DefaultCheckInterval, "time between checks")
	return cmd
}

// runWatch blocks until ctx is cancelled, printing one line per new release.
func runWatch(ctx context.Context, p watchParams) error {
	fmt.Fprintln(p.stdout, mutedStyle.Render(fmt.Sprintf("Watching for updates every %s (current version %s).", p.interval, p.pipeline.CurrentVersion())))

	w := update.NewWatcher(p.pipeline, func(d update.Decision) {
		line := fmt.Sprintf("%s Update available: %s -> %s",
			time.Now().Format(time.Kitchen), d.CurrentVersion, d.LatestVersion)
		fmt.Fprintln(p.stdout, warningStyle.Render(line))
		if d.DownloadURL != "" {
			fmt.Fprintln(p.stdout, "  "+linkStyle.Render(d.DownloadURL))
		}
	}, update.WithInterval(p.interval), update.WithWatcherLogger(p.logger))

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
