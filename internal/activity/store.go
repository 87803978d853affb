package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uplift-crm/upliftsync/internal/feed"
)

// Store is the canonical client-side holder of ledger records. It is the
// only writer of activity state in the process, and it never patches state
// locally: every mutation resolves only after a full refetch from the
// service, so the open/history views can never diverge from the backend
// (the service may synthesize follow-up tasks a local patch would miss).
type Store struct {
	client    *Client
	publisher feed.Publisher

	mu     sync.RWMutex
	items  []Activity
	loaded bool
}

// NewStore creates a Store. publisher may be nil.
func NewStore(client *Client, publisher feed.Publisher) *Store {
	return &Store{client: client, publisher: publisher}
}

// Reload replaces the whole ledger with a fresh fetch. Partial responses
// are never merged into existing state.
func (s *Store) Reload(ctx context.Context) error {
	items, err := s.client.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = items
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Loaded reports whether at least one fetch has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// List returns the records matching the filter, in backend order.
func (s *Store) List(f Filter) []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Activity, 0, len(s.items))
	for _, a := range s.items {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}

// Open returns the open-work view: Planned, Pending, and Overdue records.
func (s *Store) Open() []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	open, _ := Partition(s.items)
	return open
}

// History returns the history view: Completed and Cancelled records.
func (s *Store) History() []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, history := Partition(s.items)
	return history
}

// Counts returns the total and open record counts of the loaded ledger.
func (s *Store) Counts() (total, open int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.items {
		if a.Status.Open() {
			open++
		}
	}
	return len(s.items), open
}

// Create submits a new record and resynchronizes the full ledger before
// returning. A failed submit propagates unreloaded; the prior state stays
// valid and displayed.
func (s *Store) Create(ctx context.Context, p CreatePayload) (Activity, error) {
	created, err := s.client.Create(ctx, p)
	if err != nil {
		return Activity{}, err
	}
	if err := s.Reload(ctx); err != nil {
		return created, fmt.Errorf("reload after create: %w", err)
	}
	s.emit(ctx, feed.KindActivityCreated, created.ID, created.LeadID, "")
	return created, nil
}

// Complete marks the record Completed with the given outcome, then
// resynchronizes. After it returns, the ledger reflects both the completed
// record and any follow-up task the service spawned in the same operation.
func (s *Store) Complete(ctx context.Context, id, outcome string) (Activity, error) {
	updated, err := s.client.Update(ctx, id, map[string]any{
		"status":  string(StatusCompleted),
		"outcome": outcome,
	})
	if err != nil {
		return Activity{}, err
	}
	if err := s.Reload(ctx); err != nil {
		return updated, fmt.Errorf("reload after complete: %w", err)
	}
	s.emit(ctx, feed.KindActivityCompleted, id, updated.LeadID, outcome)
	return updated, nil
}

// Verify submits a verification, then resynchronizes.
func (s *Store) Verify(ctx context.Context, p VerifyPayload) (Activity, error) {
	verified, err := s.client.Verify(ctx, p)
	if err != nil {
		return Activity{}, err
	}
	if err := s.Reload(ctx); err != nil {
		return verified, fmt.Errorf("reload after verify: %w", err)
	}
	s.emit(ctx, feed.KindActivityVerified, p.ActivityID, verified.LeadID, "")
	return verified, nil
}

// Summary fetches the server-computed overview. Pass-through; the overview
// is not cached locally.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	return s.client.Summary(ctx)
}

// emit publishes a mutation event to the analytics feed, best-effort.
func (s *Store) emit(ctx context.Context, kind, activityID, leadID, outcome string) {
	if s.publisher == nil {
		return
	}
	ev := feed.Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		ActivityID: activityID,
		LeadID:     leadID,
		Outcome:    outcome,
		At:         time.Now(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("Ledger feed publish failed", "kind", kind, "activity_id", activityID, "error", err)
	}
}
