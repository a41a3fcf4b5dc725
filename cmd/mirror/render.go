package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"mirror/internal/update"
)

const defaultNotesWidth = 80

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	linkStyle    = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("14"))
)

// buildNotesRenderer returns a markdown renderer for release notes. The
// plain format, and any glamour failure, fall back to word wrapping.
func buildNotesRenderer(format string, width int) func(string) string {
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style := strings.ToLower(strings.TrimSpace(format))
	switch style {
	case "", "rich":
		style = "dark"
	case "plain":
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderDecision(w io.Writer, d update.Decision) {
	fmt.Fprintf(w, "Current version: %s\n", d.CurrentVersion)
	fmt.Fprintf(w, "Latest version:  %s\n", d.LatestVersion)
	fmt.Fprintln(w)

	if !d.UpdateAvailable {
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("Already up to date (version %s).", d.CurrentVersion)))
		return
	}
	fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("An update is available: %s -> %s", d.CurrentVersion, d.LatestVersion)))
	if d.DownloadURL != "" {
		fmt.Fprintln(w, "Release: "+linkStyle.Render(d.DownloadURL))
	}
	fmt.Fprintln(w, mutedStyle.Render("Run 'mirror update' to install."))
}

func renderNotes(w io.Writer, d update.Decision, render func(string) string) {
	notes := strings.TrimSpace(d.Notes)
	if notes == "" {
		return
	}
	fmt.Fprintln(w)
	if d.Title != "" {
		fmt.Fprintln(w, titleStyle.Render(d.Title))
	}
	fmt.Fprintln(w, render(notes))
}

func renderOutcome(w io.Writer, out update.Outcome) {
	switch {
	case out.Installed:
		fmt.Fprintln(w, successStyle.Render(out.Message))
	case out.ManualURL != "":
		lines := strings.Split(out.Message, "\n")
		for _, line := range lines {
			switch {
			case strings.HasPrefix(line, "Automatic install failed:"):
				fmt.Fprintln(w, warningStyle.Render(line))
			case strings.HasSuffix(line, out.ManualURL):
				prefix := strings.TrimSuffix(line, out.ManualURL)
				fmt.Fprintln(w, prefix+linkStyle.Render(out.ManualURL))
			default:
				fmt.Fprintln(w, line)
			}
		}
	default:
		fmt.Fprintln(w, successStyle.Render(out.Message))
	}
}
