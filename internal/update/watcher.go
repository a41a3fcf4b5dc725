package update

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCheckInterval is how often a Watcher polls for releases.
const DefaultCheckInterval = time.Hour

// Watcher periodically checks for updates and reports each newly
// available version once.
type Watcher struct {
	pipeline *Pipeline
	interval time.Duration
	notify   func(Decision)
	logger   *log.Logger

	lastNotified string
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *log.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher that calls notify for new versions.
func NewWatcher(p *Pipeline, notify func(Decision), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		pipeline: p,
		interval: DefaultCheckInterval,
		notify:   notify,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run checks immediately and then on every tick until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.check(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	d, err := w.pipeline.CheckForUpdates(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("periodic update check failed", "err", err)
		}
		return
	}
	if !d.UpdateAvailable || d.LatestVersion == w.lastNotified {
		return
	}
	w.lastNotified = d.LatestVersion
	if w.notify != nil {
		w.notify(d)
	}
}
