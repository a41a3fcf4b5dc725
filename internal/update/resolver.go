package update

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// Resolver finds the latest release. It consults the cache first, then the
// primary strategy, then the secondary one. Only primary results are cached.
type Resolver struct {
	cache     *ReleaseCache
	primary   Strategy
	secondary Strategy
	ttl       time.Duration
	now       func() time.Time
	logger    *log.Logger
	flight    singleflight.Group
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithCacheTTL sets the freshness window for cached releases.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithResolverLogger sets the logger used for strategy diagnostics.
func WithResolverLogger(l *log.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver. cache may be shared between resolvers and
// may be nil, in which case every call goes to the network. secondary may be
// nil to disable the fallback.
func NewResolver(cache *ReleaseCache, primary, secondary Strategy, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:     cache,
		primary:   primary,
		secondary: secondary,
		ttl:       DefaultCacheTTL,
		now:       time.Now,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the latest release. A fresh cache entry is returned
// without network I/O. Concurrent callers that miss the cache share a single
// network round; each still returns early if its own ctx is done.
func (r *Resolver) Resolve(ctx context.Context) (Release, error) {
	if entry, ok := r.cache.Get(LatestReleaseKey); ok && entry.Fresh(r.now(), r.ttl) {
		r.logger.Debug("using cached release info", "tag", entry.Release.TagName, "fetched_at", entry.FetchedAt)
		return entry.Release, nil
	}

	// The shared flight must not be torn down by one caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(LatestReleaseKey, func() (any, error) {
		return r.fetch(flightCtx)
	})

	select {
	case <-ctx.Done():
		return Release{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Release{}, res.Err
		}
		return res.Val.(Release), nil
	}
}

func (r *Resolver) fetch(ctx context.Context) (Release, error) {
	// A flight that finished between the caller's cache miss and joining
	// may already have stored a fresh entry.
	if entry, ok := r.cache.Get(LatestReleaseKey); ok && entry.Fresh(r.now(), r.ttl) {
		return entry.Release, nil
	}

	var failures []error

	if r.primary != nil {
		release, err := r.primary.Latest(ctx)
		if err == nil {
			r.cache.Put(LatestReleaseKey, release, r.now())
			return release, nil
		}
		r.logger.Warn("release strategy failed", "strategy", r.primary.Name(), "err", err)
		failures = append(failures, err)
	}

	if r.secondary != nil {
		release, err := r.secondary.Latest(ctx)
		if err == nil {
			r.logger.Info("resolved release from fallback source", "strategy", r.secondary.Name(), "tag", release.TagName)
			return release, nil
		}
		r.logger.Warn("release strategy failed", "strategy", r.secondary.Name(), "err", err)
		failures = append(failures, err)
	}

	return Release{}, &allSourcesError{causes: failures}
}

// allSourcesError reports ErrAllSourcesFailed while keeping each strategy's
// failure reachable through errors.Is/As.
type allSourcesError struct {
	causes []error
}

func (e *allSourcesError) Error() string {
	return ErrAllSourcesFailed.Error()
}

func (e *allSourcesError) Unwrap() []error {
	return append([]error{ErrAllSourcesFailed}, e.causes...)
}

// Causes returns the individual strategy failures of an all-sources error.
func Causes(err error) []error {
	var all *allSourcesError
	if errors.As(err, &all) {
		return all.causes
	}
	return nil
}
