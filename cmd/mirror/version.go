package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information - injected at build time via ldflags
var (
	Version   = "dev"
	Build     = "unknown"
	BuildTime = ""
)

type versionInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go"`
	Platform  string `json:"platform"`
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if Build != "unknown" {
		info.Build = Build
	}
	return info
}

func newVersionCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of this build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version information as JSON")
	return cmd
}

// printVersion prints the version information
func printVersion(w io.Writer, asJSON bool) error {
	info := currentVersionInfo()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(w, "mirror version %s", info.Version)
	if info.Build != "" {
		fmt.Fprintf(w, " (build: %s)", info.Build)
	}
	if info.BuildTime != "" {
		fmt.Fprintf(w, " [%s]", info.BuildTime)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Go version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "OS/Arch: %s\n", info.Platform)

	// Development builds carry the VCS revision in their build info.
	if Version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range bi.Settings {
				if setting.Key == "vcs.revision" && len(setting.Value) > 7 {
					fmt.Fprintf(w, "Commit: %s\n", setting.Value[:7])
					break
				}
			}
		}
	}
	return nil
}
