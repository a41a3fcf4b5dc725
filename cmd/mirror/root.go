package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"mirror/internal/config"
	"mirror/internal/debug"
	apperrors "mirror/internal/errors"
	"mirror/internal/update"
)

type globalFlags struct {
	debug      bool
	configPath string
	noColor    bool
}

// pipelineFactory builds the update pipeline for a command invocation.
// Tests replace it to point at local servers.
var pipelineFactory = func() *update.Pipeline {
	return newPipeline(config.Update(), debug.Logger())
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "mirror",
		Short: "Keep mirror up to date with its GitHub releases",
		Long: titleStyle.Render("mirror") + ` checks GitHub for newer releases of the desktop app,
downloads the installer package for this machine and launches it.

When the automatic install is not possible, the release page link is
printed so the update can be finished by hand.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return flags.setup(cmd, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "write a debug log to ~/.mirror/debug.log")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.mirror/config.yaml)")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newVersionCommand(),
		newCheckCommand(),
		newUpdateCommand(),
		newWatchCommand(),
	)
	return root
}

func (g *globalFlags) setup(cmd *cobra.Command, stderr io.Writer) error {
	var opts []config.Option
	if strings.TrimSpace(g.configPath) != "" {
		opts = append(opts, config.WithUserConfig(g.configPath))
	}
	if err := config.Initialize(opts...); err != nil {
		cfgErr := apperrors.New(apperrors.CodeConfigurationError, "load configuration: "+err.Error(), err)
		fmt.Fprintln(stderr, errorStyle.Render("Error:"), cfgErr)
		return &ExitError{Code: exitUserError, Err: cfgErr}
	}
	if cmd.Flags().Changed("debug") {
		if err := config.ApplyOverrides(map[string]any{config.KeyDebug: g.debug}); err != nil {
			return err
		}
	}
	if g.noColor || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if err := debug.Init(config.GetBool(config.KeyDebug)); err != nil {
		fmt.Fprintln(stderr, warningStyle.Render("Warning:"), "debug log unavailable:", err)
		return nil
	}
	if debug.Enabled() {
		if path, err := debug.GetLogPath(); err == nil {
			fmt.Fprintln(stderr, mutedStyle.Render("Debug log: "+path))
		}
		debug.Logf("mirror %s running %q", Version, cmd.CommandPath())
	}
	return nil
}

// newPipeline wires the update components from settings.
func newPipeline(s config.UpdateSettings, logger *log.Logger) *update.Pipeline {
	repo := update.Repository{Owner: s.Owner, Name: s.Repo}
	client := &http.Client{}

	primary := update.NewGitHubAPI(repo,
		update.WithAPIHTTPClient(client),
		update.WithAPIBaseURL(s.APIBaseURL),
		update.WithAPIUserAgent(s.UserAgent),
		update.WithAPITimeout(s.MetadataTimeout),
	)
	secondary := update.NewReleasePage(repo,
		update.WithPageHTTPClient(client),
		update.WithPageBaseURL(s.WebBaseURL),
		update.WithPageUserAgent(s.UserAgent),
		update.WithPageTimeout(s.MetadataTimeout),
	)
	resolver := update.NewResolver(update.NewReleaseCache(), primary, secondary,
		update.WithCacheTTL(s.CacheTTL),
		update.WithResolverLogger(logger.WithPrefix("resolver")),
	)

	return update.NewPipeline(update.NormalizeTag(Version), resolver,
		update.WithSelector(update.NewArtifactSelector(repo,
			update.WithSelectorHTTPClient(client),
			update.WithSelectorBaseURL(s.WebBaseURL),
			update.WithSelectorProduct(s.Product),
			update.WithSelectorUserAgent(s.UserAgent),
			update.WithSelectorTimeout(s.MetadataTimeout),
		)),
		update.WithDownloader(update.NewDownloader(
			update.WithDownloadHTTPClient(client),
			update.WithDownloadUserAgent(s.UserAgent),
			update.WithDownloadTimeout(s.DownloadTimeout),
			update.WithDownloadRetries(s.DownloadRetries, 0),
		)),
		update.WithPipelineLogger(logger.WithPrefix("pipeline")),
	)
}
