// Package poller runs per-entity periodic refresh loops with explicit
// start/stop lifecycle, overlap suppression, and capability gating.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uplift-crm/upliftsync/internal/httpapi"
)

// FetchFunc performs one refresh for an entity. Returning an error the
// taxonomy classifies as denied stops the entity's poller permanently;
// transient errors are logged and retried on the next natural tick.
type FetchFunc func(ctx context.Context) error

// GateFunc is consulted before each tick's fetch. Returning false skips
// the tick without counting as a failure.
type GateFunc func(ctx context.Context) bool

// Set manages the pollers, keyed by entity id. Starting an entity that is
// already running replaces the existing loop rather than adding a second
// one; Stop is idempotent.
type Set struct {
	mu      sync.Mutex
	entries map[string]*loop
}

type loop struct {
	entityID string
	cancel   context.CancelFunc
	done     chan struct{}
	busy     atomic.Bool
	stopped  atomic.Bool
}

// NewSet creates an empty poller set.
func NewSet() *Set {
	return &Set{entries: make(map[string]*loop)}
}

// Handle identifies one started poller. Stopping a handle that has been
// superseded by a later Start for the same entity is a no-op.
type Handle struct {
	set *Set
	l   *loop
}

// Stop stops the poller this handle refers to. Idempotent.
func (h *Handle) Stop() {
	if h == nil || h.l == nil {
		return
	}
	h.set.stopLoop(h.l)
}

// Start begins polling for the entity. fetch runs once immediately, then
// on every interval tick. At most one fetch per entity is ever in flight:
// a tick firing while the previous fetch is still pending is skipped, not
// queued. gate may be nil.
func (s *Set) Start(entityID string, interval time.Duration, gate GateFunc, fetch FetchFunc) *Handle {
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{
		entityID: entityID,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	if prev, ok := s.entries[entityID]; ok {
		prev.markStopped()
	}
	s.entries[entityID] = l
	s.mu.Unlock()

	go s.run(ctx, l, interval, gate, fetch)
	return &Handle{set: s, l: l}
}

func (s *Set) run(ctx context.Context, l *loop, interval time.Duration, gate GateFunc, fetch FetchFunc) {
	defer close(l.done)
	slog.Debug("Poller started", "entity", l.entityID, "interval", interval)

	s.tick(ctx, l, gate, fetch)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, l, gate, fetch)
		}
	}
}

// tick dispatches one gated fetch. The fetch runs asynchronously under a
// busy flag: a tick that fires while the previous fetch is still pending
// is dropped here rather than queued behind it.
func (s *Set) tick(ctx context.Context, l *loop, gate GateFunc, fetch FetchFunc) {
	if ctx.Err() != nil {
		return
	}
	if gate != nil && !gate(ctx) {
		slog.Debug("Poller tick gated", "entity", l.entityID)
		return
	}
	if !l.busy.CompareAndSwap(false, true) {
		slog.Debug("Poller tick skipped: fetch in flight", "entity", l.entityID)
		return
	}
	go func() {
		defer l.busy.Store(false)
		err := fetch(ctx)
		switch {
		case err == nil, ctx.Err() != nil:
		case httpapi.IsDenied(err):
			// The capability is off for this entity. Stop for good; an
			// external Invalidate plus explicit restart brings it back.
			slog.Info("Poller self-stopped", "entity", l.entityID, "status", httpapi.StatusCode(err))
			s.stopLoop(l)
		default:
			slog.Warn("Poller fetch failed", "entity", l.entityID, "error", err)
		}
	}()
}

// Stop stops the poller for the entity, if one is running. Idempotent.
func (s *Set) Stop(entityID string) {
	s.mu.Lock()
	l, ok := s.entries[entityID]
	s.mu.Unlock()
	if ok {
		s.stopLoop(l)
	}
}

// StopAll stops every running poller and waits for the loops to exit.
func (s *Set) StopAll() {
	s.mu.Lock()
	loops := make([]*loop, 0, len(s.entries))
	for _, l := range s.entries {
		loops = append(loops, l)
	}
	s.mu.Unlock()
	for _, l := range loops {
		s.stopLoop(l)
		<-l.done
	}
}

// Running reports whether a poller is currently registered for the entity.
func (s *Set) Running(entityID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[entityID]
	return ok
}

// stopLoop cancels one loop and unregisters it, unless a later Start has
// already replaced it in the map.
func (s *Set) stopLoop(l *loop) {
	l.markStopped()
	s.mu.Lock()
	if cur, ok := s.entries[l.entityID]; ok && cur == l {
		delete(s.entries, l.entityID)
	}
	s.mu.Unlock()
}

func (l *loop) markStopped() {
	if l.stopped.CompareAndSwap(false, true) {
		l.cancel()
	}
}
