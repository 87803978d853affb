package insight

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Source tags where a snapshot's numbers came from.
type Source string

const (
	SourceRemote        Source = "remote"
	SourceLocalFallback Source = "local_fallback"
)

// DefaultTimeout bounds the aggregate insight call. The call is cancelled,
// not merely ignored, when the timeout elapses.
const DefaultTimeout = 20 * time.Second

// FallbackTrend is the qualitative label used when no richer computation
// is possible locally.
const FallbackTrend = "Stable"

// Snapshot is a point-in-time aggregate insight. Once any request has
// completed, consumers always see a snapshot; it is never nil.
type Snapshot struct {
	GeneratedAt      time.Time `json:"generated_at"`
	Source           Source    `json:"source"`
	TotalActivities  int       `json:"total_activities"`
	ActiveActivities int       `json:"active_activities"`
	ActiveRate       int       `json:"active_rate"` // percent, rounded
	Trend            string    `json:"trend"`
	Summary          string    `json:"summary,omitempty"`
}

// Overlay holds per-item enrichment. Its lifecycle is independent of the
// bulk snapshot: a bulk refresh never clears it.
type Overlay struct {
	Summary  string `json:"summary,omitempty"`
	NextStep string `json:"next_step,omitempty"`
}

// LedgerView is the slice of the activity store the fallback computation
// needs.
type LedgerView interface {
	Loaded() bool
	Counts() (total, open int)
}

type ticket struct {
	done chan struct{}
	snap Snapshot
}

// Orchestrator deduplicates and timeout-bounds insight requests. All
// refresh triggers (mount, scope change, the periodic timer, explicit user
// refresh) funnel through Request, so identical concurrent scopes share
// one network call.
type Orchestrator struct {
	client  *Client
	ledger  LedgerView
	timeout time.Duration

	mu       sync.Mutex
	inflight map[string]*ticket
	last     *Snapshot
	overlays map[string]Overlay

	now func() time.Time // test hook
}

// NewOrchestrator creates an Orchestrator. A zero timeout defaults to
// DefaultTimeout.
func NewOrchestrator(client *Client, ledger LedgerView, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orchestrator{
		client:   client,
		ledger:   ledger,
		timeout:  timeout,
		inflight: make(map[string]*ticket),
		overlays: make(map[string]Overlay),
		now:      time.Now,
	}
}

// Request returns an aggregate snapshot for the scope. It never fails:
// when the remote call errors or exceeds the timeout, the snapshot
// degrades to a deterministic local fallback computed from the loaded
// ledger, and if even that is impossible the prior snapshot stands.
// Concurrent calls sharing a scope signature attach to one in-flight
// operation.
func (o *Orchestrator) Request(ctx context.Context, scope Scope) Snapshot {
	sig := scope.Signature()

	o.mu.Lock()
	if t, ok := o.inflight[sig]; ok {
		o.mu.Unlock()
		select {
		case <-t.done:
			return t.snap
		case <-ctx.Done():
			return o.Current()
		}
	}
	t := &ticket{done: make(chan struct{})}
	o.inflight[sig] = t
	o.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	remote, err := o.client.Insights(callCtx, scope)
	cancel()

	var snap Snapshot
	if err == nil {
		snap = Snapshot{
			GeneratedAt:      o.now(),
			Source:           SourceRemote,
			TotalActivities:  remote.TotalActivities,
			ActiveActivities: remote.ActiveActivities,
			ActiveRate:       remote.ActiveRate,
			Trend:            remote.Trend,
			Summary:          remote.Summary,
		}
	} else {
		slog.Warn("Insight refresh degraded to local fallback", "scope", sig, "error", err)
		snap = o.fallback()
	}

	o.mu.Lock()
	o.last = &snap
	t.snap = snap
	delete(o.inflight, sig)
	o.mu.Unlock()
	close(t.done)
	return snap
}

// fallback computes a snapshot from the loaded ledger: total count, open
// count, and the open rate rounded to the nearest integer percent (zero
// when the ledger is empty). When nothing is loaded yet the prior snapshot
// is kept if one exists.
func (o *Orchestrator) fallback() Snapshot {
	if o.ledger == nil || !o.ledger.Loaded() {
		o.mu.Lock()
		prior := o.last
		o.mu.Unlock()
		if prior != nil {
			return *prior
		}
		return Snapshot{GeneratedAt: o.now(), Source: SourceLocalFallback, Trend: FallbackTrend}
	}
	total, open := o.ledger.Counts()
	rate := 0
	if total > 0 {
		rate = int(math.Round(float64(open) / float64(total) * 100))
	}
	return Snapshot{
		GeneratedAt:      o.now(),
		Source:           SourceLocalFallback,
		TotalActivities:  total,
		ActiveActivities: open,
		ActiveRate:       rate,
		Trend:            FallbackTrend,
	}
}

// Current returns the latest snapshot, or a fresh local fallback when no
// request has completed yet.
func (o *Orchestrator) Current() Snapshot {
	o.mu.Lock()
	last := o.last
	o.mu.Unlock()
	if last != nil {
		return *last
	}
	return o.fallback()
}

// SummarizeItem fetches a per-item summary and merges it into the overlay
// map. Unlike the bulk path the error propagates: this is a targeted user
// action, not a background sync.
func (o *Orchestrator) SummarizeItem(ctx context.Context, id string) (string, error) {
	summary, err := o.client.SummarizeActivity(ctx, id)
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	ov := o.overlays[id]
	ov.Summary = summary
	o.overlays[id] = ov
	o.mu.Unlock()
	return summary, nil
}

// SuggestNextStep fetches a per-item next-step suggestion and merges it
// into the overlay map. Errors propagate to the caller.
func (o *Orchestrator) SuggestNextStep(ctx context.Context, id string) (string, error) {
	step, err := o.client.SuggestNextStep(ctx, id)
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	ov := o.overlays[id]
	ov.NextStep = step
	o.overlays[id] = ov
	o.mu.Unlock()
	return step, nil
}

// ItemOverlay returns the enrichment recorded for an item, if any.
func (o *Orchestrator) ItemOverlay(id string) (Overlay, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ov, ok := o.overlays[id]
	return ov, ok
}

// WeeklyReport passes through to the service; errors propagate like the
// other targeted actions.
func (o *Orchestrator) WeeklyReport(ctx context.Context) (string, error) {
	return o.client.WeeklyReport(ctx)
}

// Ping checks service health.
func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.client.Ping(ctx)
}
