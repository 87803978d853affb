// Package session owns the live sync session: the capability cache, the
// ledger store, the insight orchestrator, and every running timer. Its
// lifecycle is explicit — Start wires everything, Close tears it all down
// deterministically — rather than being tied to any view lifecycle.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/uplift-crm/upliftsync/internal/activity"
	"github.com/uplift-crm/upliftsync/internal/insight"
	"github.com/uplift-crm/upliftsync/internal/mailbox"
	"github.com/uplift-crm/upliftsync/internal/notify"
	"github.com/uplift-crm/upliftsync/internal/poller"
)

// Options configures a Controller.
type Options struct {
	Store     *activity.Store
	Insights  *insight.Orchestrator
	Mail      *mailbox.Client
	Cache     *mailbox.CapabilityCache
	Notifier  notify.Notifier
	UserEmail string

	// UnreadInterval paces the per-lead unread pollers (default 60s).
	UnreadInterval time.Duration
	// InsightInterval paces the periodic bulk insight refresh
	// (default 60s).
	InsightInterval time.Duration
	// Scope is the initial insight scope.
	Scope insight.Scope
}

// Controller is the session-scoped owner of all background activity.
type Controller struct {
	store    *activity.Store
	insights *insight.Orchestrator
	mail     *mailbox.Client
	cache    *mailbox.CapabilityCache
	notifier notify.Notifier

	userEmail       string
	unreadInterval  time.Duration
	insightInterval time.Duration

	pollers *poller.Set

	mu          sync.Mutex
	scope       insight.Scope
	unread      map[string]int
	refreshStop context.CancelFunc
	refreshDone chan struct{}
	started     bool
	closed      bool
}

// New creates a Controller. It does nothing until Start.
func New(opts Options) *Controller {
	if opts.Notifier == nil {
		opts.Notifier = notify.LogNotifier{}
	}
	if opts.UnreadInterval <= 0 {
		opts.UnreadInterval = 60 * time.Second
	}
	if opts.InsightInterval <= 0 {
		opts.InsightInterval = 60 * time.Second
	}
	return &Controller{
		store:           opts.Store,
		insights:        opts.Insights,
		mail:            opts.Mail,
		cache:           opts.Cache,
		notifier:        opts.Notifier,
		userEmail:       opts.UserEmail,
		unreadInterval:  opts.UnreadInterval,
		insightInterval: opts.InsightInterval,
		pollers:         poller.NewSet(),
		scope:           opts.Scope,
		unread:          make(map[string]int),
	}
}

// Start loads the ledger, takes the first insight snapshot, and starts
// the periodic insight refresh. A failed initial ledger load is logged
// and retried implicitly by later mutations; it does not abort the
// session.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("session already closed")
	}
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	c.started = true
	refreshCtx, cancel := context.WithCancel(context.Background())
	c.refreshStop = cancel
	c.refreshDone = make(chan struct{})
	scope := c.scope
	c.mu.Unlock()

	if err := c.store.Reload(ctx); err != nil {
		slog.Warn("Initial ledger load failed", "error", err)
	}
	c.insights.Request(ctx, scope)

	go c.refreshLoop(refreshCtx)
	slog.Info("Session started", "user", c.userEmail)
	return nil
}

// refreshLoop re-requests the bulk insight on a fixed cadence. It always
// reads the current scope, so scope changes take effect on the next tick.
func (c *Controller) refreshLoop(ctx context.Context) {
	defer close(c.refreshDone)
	ticker := time.NewTicker(c.insightInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.insights.Request(ctx, c.Scope())
		}
	}
}

// Scope returns the current insight scope.
func (c *Controller) Scope() insight.Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// SetScope changes the insight scope and refreshes immediately through
// the deduplicated path.
func (c *Controller) SetScope(ctx context.Context, scope insight.Scope) insight.Snapshot {
	c.mu.Lock()
	c.scope = scope
	c.mu.Unlock()
	return c.insights.Request(ctx, scope)
}

// RefreshInsights is the explicit user-triggered refresh. Same
// deduplicated path as every other trigger.
func (c *Controller) RefreshInsights(ctx context.Context) insight.Snapshot {
	return c.insights.Request(ctx, c.Scope())
}

// WatchLead starts the unread-count poller for a lead. The poller is
// gated on mailbox availability for the session's user; a denied count
// fetch stops it permanently until Invalidate plus a fresh WatchLead.
func (c *Controller) WatchLead(leadID, leadEmail string) {
	gate := func(ctx context.Context) bool {
		return c.cache.Probe(ctx, c.userEmail) == mailbox.AvailabilityAvailable
	}
	fetch := func(ctx context.Context) error {
		n, err := c.mail.UnreadCount(ctx, leadEmail)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.unread[leadID] = n
		c.mu.Unlock()
		return nil
	}
	c.pollers.Start(leadID, c.unreadInterval, gate, fetch)
}

// UnwatchLead stops the lead's unread poller. Idempotent.
func (c *Controller) UnwatchLead(leadID string) {
	c.pollers.Stop(leadID)
}

// Unread returns the last known unread count for a lead.
func (c *Controller) Unread(leadID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread[leadID]
}

// CreateActivity records a new ledger entry. Failures are surfaced to the
// user and returned.
func (c *Controller) CreateActivity(ctx context.Context, p activity.CreatePayload) (activity.Activity, error) {
	created, err := c.store.Create(ctx, p)
	if err != nil {
		c.notifier.Notify(ctx, notify.LevelError, fmt.Sprintf("Could not create activity %q: %v", p.Title, err))
		return activity.Activity{}, err
	}
	return created, nil
}

// CompleteActivity completes a ledger entry with an outcome. Failures are
// surfaced to the user and returned.
func (c *Controller) CompleteActivity(ctx context.Context, id, outcome string) (activity.Activity, error) {
	updated, err := c.store.Complete(ctx, id, outcome)
	if err != nil {
		c.notifier.Notify(ctx, notify.LevelError, fmt.Sprintf("Could not complete activity %s: %v", id, err))
		return activity.Activity{}, err
	}
	return updated, nil
}

// VerifyActivity verifies a ledger entry. Failures are surfaced to the
// user and returned.
func (c *Controller) VerifyActivity(ctx context.Context, p activity.VerifyPayload) (activity.Activity, error) {
	verified, err := c.store.Verify(ctx, p)
	if err != nil {
		c.notifier.Notify(ctx, notify.LevelError, fmt.Sprintf("Could not verify activity %s: %v", p.ActivityID, err))
		return activity.Activity{}, err
	}
	return verified, nil
}

// SummarizeActivity fetches a per-item summary. A failure is a targeted
// user action gone wrong: it is surfaced and returned, never absorbed.
func (c *Controller) SummarizeActivity(ctx context.Context, id string) (string, error) {
	summary, err := c.insights.SummarizeItem(ctx, id)
	if err != nil {
		c.notifier.Notify(ctx, notify.LevelError, fmt.Sprintf("AI summary failed for %s: %v", id, err))
		return "", err
	}
	return summary, nil
}

// SuggestNextStep fetches a per-item next-step suggestion, surfacing
// failures like SummarizeActivity.
func (c *Controller) SuggestNextStep(ctx context.Context, id string) (string, error) {
	step, err := c.insights.SuggestNextStep(ctx, id)
	if err != nil {
		c.notifier.Notify(ctx, notify.LevelError, fmt.Sprintf("AI next step failed for %s: %v", id, err))
		return "", err
	}
	return step, nil
}

// Close stops the refresh timer and every poller. Idempotent; after Close
// no background network traffic remains.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	stop := c.refreshStop
	done := c.refreshDone
	c.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	c.pollers.StopAll()
	slog.Info("Session closed", "user", c.userEmail)
}
