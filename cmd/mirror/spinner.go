package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"mirror/internal/update"
)

type outcomeMsg struct {
	outcome update.Outcome
	err     error
}

// progressModel shows a spinner while the update pipeline runs.
type progressModel struct {
	spinner spinner.Model
	label   string
	run     func() (update.Outcome, error)
	cancel  context.CancelFunc

	done    bool
	outcome update.Outcome
	err     error
}

func newProgressModel(label string, run func() (update.Outcome, error), cancel context.CancelFunc) progressModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = titleStyle
	return progressModel{spinner: s, label: label, run: run, cancel: cancel}
}

func (m progressModel) Init() tea.Cmd {
	run := m.run
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		out, err := run()
		return outcomeMsg{outcome: out, err: err}
	})
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case outcomeMsg:
		m.done = true
		m.outcome = msg.outcome
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.cancel != nil {
				m.cancel()
			}
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.label)
}

// runWithSpinner runs fn behind a spinner written to w.
func runWithSpinner(ctx context.Context, w io.Writer, label string, fn func(context.Context) (update.Outcome, error)) (update.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newProgressModel(label, func() (update.Outcome, error) { return fn(ctx) }, cancel)
	final, err := tea.NewProgram(model, tea.WithOutput(w), tea.WithContext(ctx)).Run()
	if err != nil {
		return update.Outcome{}, fmt.Errorf("progress view: %w", err)
	}
	pm, ok := final.(progressModel)
	if !ok {
		return update.Outcome{}, fmt.Errorf("progress view: unexpected model %T", final)
	}
	return pm.outcome, pm.err
}
