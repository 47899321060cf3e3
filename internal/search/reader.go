package search

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dcse/searchd/internal/index"
)

// ErrNotReady is returned for queries that arrive before the index exists
// and the reader has published its first snapshot.
var ErrNotReady = errors.New("index not ready")

// snapshot is one published read view. It pins an index epoch through its
// handle for as long as it is the live snapshot.
type snapshot struct {
	handle     *index.Handle
	generation uint64
}

// Reader maintains the live read view of the index for all concurrent
// queries, independent of write cadence. Before the index exists it stays in
// a not-ready state instead of blocking; a background loop polls, initializes
// once the index appears, and republishes when the writer has committed new
// work. Publication is an atomic pointer swap, and a superseded snapshot's
// epoch handle is released rather than closed, so in-flight searches finish
// against the view they started with.
type Reader struct {
	engine   *index.Engine
	interval time.Duration

	current atomic.Pointer[snapshot]
}

// NewReader creates a reader polling at the given refresh interval.
func NewReader(engine *index.Engine, interval time.Duration) *Reader {
	return &Reader{
		engine:   engine,
		interval: interval,
	}
}

// Ready reports whether a snapshot has been published.
func (r *Reader) Ready() bool {
	return r.current.Load() != nil
}

// Acquire returns an index handle for one query. The caller must Release it
// when the query completes. Returns ErrNotReady before the first snapshot.
func (r *Reader) Acquire() (*index.Handle, error) {
	if r.current.Load() == nil {
		return nil, ErrNotReady
	}
	handle, err := r.engine.Acquire()
	if err != nil {
		return nil, ErrNotReady
	}
	return handle, nil
}

// Run polls until ctx is cancelled. Refresh failures are logged and retried
// on the next tick; they are never fatal.
func (r *Reader) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if cur := r.current.Swap(nil); cur != nil {
				cur.handle.Release()
			}
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}

// Refresh performs one poll step: initialize the snapshot if the index has
// appeared, or republish when the writer generation advanced.
func (r *Reader) refresh() {
	cur := r.current.Load()

	if cur == nil {
		ok, err := r.engine.TryOpen()
		if err != nil {
			slog.Error("Index refresh error", "error", err)
			return
		}
		if !ok {
			// No index yet; the writer has not created segments.
			return
		}
		handle, err := r.engine.Acquire()
		if err != nil {
			slog.Error("Index refresh error", "error", err)
			return
		}
		r.current.Store(&snapshot{handle: handle, generation: r.engine.Generation()})
		slog.Info("Index created, reader initialized")
		return
	}

	gen := r.engine.Generation()
	if gen == cur.generation {
		return
	}

	handle, err := r.engine.Acquire()
	if err != nil {
		slog.Error("Index refresh error", "error", err)
		return
	}
	old := r.current.Swap(&snapshot{handle: handle, generation: gen})
	if old != nil {
		old.handle.Release()
	}
	slog.Debug("Index snapshot refreshed", "generation", gen)
}

// RefreshNow forces one poll step outside the ticker, for tests and startup.
func (r *Reader) RefreshNow() {
	r.refresh()
}
