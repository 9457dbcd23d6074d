package library

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/synfitgo/internal/ctxlog"
	"github.com/specialistvlad/synfitgo/internal/synthesis"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Entry is one library entry to build: its key and the request that
// synthesizes it with the convolution parameters pinned to zero.
type Entry struct {
	Key     string
	Request synthesis.Request
}

// Library builds and serves unconvolved spectra.
type Library struct {
	invoker synthesis.Invoker
	store   Store
	group   singleflight.Group

	builds atomic.Int64
	hits   atomic.Int64
}

// New returns a library backed by store. A nil store means a MemoryStore.
func New(invoker synthesis.Invoker, store Store) *Library {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Library{invoker: invoker, store: store}
}

// Build synthesizes every entry not yet in the library, at most workers at a
// time. Duplicate keys are built once.
func (l *Library) Build(ctx context.Context, entries []Entry, workers int) error {
	logger := ctxlog.FromContext(ctx)
	if workers < 1 {
		workers = 1
	}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, e := range entries {
		g.Go(func() error {
			_, err := l.Ensure(gctx, e)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("library build failed: %w", err)
	}

	logger.Info("📚 Library built.", "entries", l.store.Len(), "syntheses", l.Builds(), "duration", time.Since(start))
	return nil
}

// Ensure returns the entry for e.Key, synthesizing it if it is missing.
// Concurrent callers for the same key share one synthesis.
func (l *Library) Ensure(ctx context.Context, e Entry) (*synthesis.Output, error) {
	if out, ok := l.store.Get(e.Key); ok {
		return out, nil
	}
	v, err, _ := l.group.Do(e.Key, func() (any, error) {
		if out, ok := l.store.Get(e.Key); ok {
			return out, nil
		}
		ctxlog.FromContext(ctx).Debug("Building library entry.", "key", e.Key, "point", e.Request.Label)
		out, err := l.invoker.Synthesize(ctx, e.Request)
		if err != nil {
			return nil, err
		}
		l.builds.Add(1)
		l.store.Put(e.Key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*synthesis.Output), nil
}

// Convolve produces the spectrum for req from the entry under key.
func (l *Library) Convolve(ctx context.Context, key string, req synthesis.Request) (*synthesis.Output, error) {
	base, ok := l.store.Get(key)
	if !ok {
		return nil, fmt.Errorf("library has no entry %q for [%s]", key, req.Label)
	}
	l.hits.Add(1)
	return l.invoker.Convolve(ctx, base, req)
}

// Len returns the number of entries.
func (l *Library) Len() int { return l.store.Len() }

// Builds returns how many full syntheses the library ran.
func (l *Library) Builds() int64 { return l.builds.Load() }

// Hits returns how many convolutions were served from the library.
func (l *Library) Hits() int64 { return l.hits.Load() }
