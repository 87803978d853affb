// Package mailbox covers the mail-integration collaborator: the
// process-wide capability cache that decides whether the integration is
// usable for an identity, and the HTTP client for the integration itself.
package mailbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/uplift-crm/upliftsync/internal/httpapi"
)

// Availability is the cached usability state of a capability for one
// identity.
type Availability string

const (
	AvailabilityUnknown     Availability = "unknown"
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
)

// DefaultTTL bounds how long a probe result is trusted.
const DefaultTTL = 5 * time.Minute

// ProbeFunc issues one lightweight status check for an identity. A nil
// error means the capability is usable.
type ProbeFunc func(ctx context.Context, identity string) error

// CapabilityStatus is what Status reports for an identity.
type CapabilityStatus struct {
	State         Availability
	LastCheckedAt time.Time
}

type cacheEntry struct {
	state     Availability
	checkedAt time.Time
	pending   chan struct{} // non-nil while a probe is in flight
}

// CapabilityCache is a keyed, time-bounded record of capability
// availability. Many simultaneously rendered views consult it; within a
// TTL window a given identity is probed at most once, and concurrent
// callers share a single in-flight probe. A denied probe (authorization
// failure or not-found) is cached sticky for the full TTL; transient
// failures are never cached so the next caller retries immediately.
type CapabilityCache struct {
	probe ProbeFunc
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry

	now func() time.Time // test hook
}

// NewCapabilityCache creates a cache around the given probe. A zero ttl
// defaults to DefaultTTL.
func NewCapabilityCache(probe ProbeFunc, ttl time.Duration) *CapabilityCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CapabilityCache{
		probe:   probe,
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// Probe returns the availability for the identity, issuing at most one
// network check per TTL window. It never returns an error: a transient
// probe failure yields the previous state (or Unknown) uncached.
func (c *CapabilityCache) Probe(ctx context.Context, identity string) Availability {
	c.mu.Lock()
	e, ok := c.entries[identity]
	if !ok {
		e = &cacheEntry{state: AvailabilityUnknown}
		c.entries[identity] = e
	}
	if e.state != AvailabilityUnknown && c.now().Sub(e.checkedAt) < c.ttl {
		state := e.state
		c.mu.Unlock()
		return state
	}
	if e.pending != nil {
		// Another caller owns the probe; wait for it to settle.
		wait := e.pending
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
		}
		c.mu.Lock()
		state := AvailabilityUnknown
		if cur, ok := c.entries[identity]; ok {
			state = cur.state
		}
		c.mu.Unlock()
		return state
	}
	// Check-and-mark happens under one lock acquisition so concurrent
	// callers observe a single pending probe.
	e.pending = make(chan struct{})
	prev := e.state
	c.mu.Unlock()

	err := c.probe(ctx, identity)

	c.mu.Lock()
	defer c.mu.Unlock()
	// The owner always settles its own ticket. If Invalidate removed or
	// replaced the entry mid-probe, the stale result is discarded.
	close(e.pending)
	e.pending = nil
	cur, ok := c.entries[identity]
	if !ok || cur != e {
		return prev
	}
	switch {
	case err == nil:
		cur.state = AvailabilityAvailable
		cur.checkedAt = c.now()
	case httpapi.IsDenied(err):
		// Sticky negative cache: the capability is off for this identity,
		// suppress re-probing for the full TTL.
		cur.state = AvailabilityUnavailable
		cur.checkedAt = c.now()
		slog.Info("Capability unavailable", "identity", identity, "status", httpapi.StatusCode(err))
	default:
		// Transient: keep the previous state uncached so the next call
		// retries right away.
		cur.state = prev
		slog.Warn("Capability probe failed", "identity", identity, "error", err)
	}
	return cur.state
}

// Status returns the cached state without probing.
func (c *CapabilityCache) Status(identity string) CapabilityStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[identity]; ok {
		return CapabilityStatus{State: e.state, LastCheckedAt: e.checkedAt}
	}
	return CapabilityStatus{State: AvailabilityUnknown}
}

// Invalidate clears the entry so the next Probe hits the network. An
// in-flight probe keeps running but its result is discarded; the probe
// owner still closes its ticket, so waiters are not stranded.
func (c *CapabilityCache) Invalidate(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, identity)
}
