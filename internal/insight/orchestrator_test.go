package insight

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	loaded bool
	total  int
	open   int
}

func (f fakeLedger) Loaded() bool       { return f.loaded }
func (f fakeLedger) Counts() (int, int) { return f.total, f.open }

// insightServer is a scripted AI service.
type insightServer struct {
	mu       sync.Mutex
	hits     atomic.Int32
	fail     bool
	hang     chan struct{} // when set, /ai/insights blocks until closed
	insights remoteInsights
}

func (s *insightServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ai/insights", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.mu.Lock()
		fail, hang, payload := s.fail, s.hang, s.insights
		s.mu.Unlock()
		if hang != nil {
			select {
			case <-hang:
			case <-r.Context().Done():
				return
			}
		}
		if fail {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(payload)
	})
	mux.HandleFunc("/ai/summarize/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(summarizeResponse{Summary: "short summary"})
	})
	mux.HandleFunc("/ai/next-step/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no suggestion available", http.StatusBadGateway)
	})
	mux.HandleFunc("/ai/weekly-report", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(weeklyReportResponse{Report: "quiet week"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestOrchestrator(t *testing.T, svc *insightServer, ledger LedgerView, timeout time.Duration) *Orchestrator {
	t.Helper()
	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)
	return NewOrchestrator(NewClient(srv.URL, 5*time.Second, nil), ledger, timeout)
}

func TestRequestReturnsRemoteSnapshot(t *testing.T) {
	svc := &insightServer{insights: remoteInsights{
		TotalActivities: 12, ActiveActivities: 5, ActiveRate: 42, Trend: "Rising", Summary: "busy period",
	}}
	o := newTestOrchestrator(t, svc, fakeLedger{loaded: true, total: 12, open: 5}, 0)

	snap := o.Request(t.Context(), Scope{Days: 7})
	assert.Equal(t, SourceRemote, snap.Source)
	assert.Equal(t, 12, snap.TotalActivities)
	assert.Equal(t, 42, snap.ActiveRate)
	assert.Equal(t, "Rising", snap.Trend)
	assert.Equal(t, snap, o.Current())
}

func TestRemoteFailureFallsBackToLedger(t *testing.T) {
	svc := &insightServer{fail: true}
	o := newTestOrchestrator(t, svc, fakeLedger{loaded: true, total: 8, open: 3}, 0)

	snap := o.Request(t.Context(), Scope{Days: 7})
	assert.Equal(t, SourceLocalFallback, snap.Source)
	assert.Equal(t, 8, snap.TotalActivities)
	assert.Equal(t, 3, snap.ActiveActivities)
	assert.Equal(t, 38, snap.ActiveRate, "3 of 8 open rounds to 38 percent")
	assert.Equal(t, FallbackTrend, snap.Trend)
}

func TestFallbackWithEmptyLedgerIsZeroRate(t *testing.T) {
	svc := &insightServer{fail: true}
	o := newTestOrchestrator(t, svc, fakeLedger{loaded: true}, 0)

	snap := o.Request(t.Context(), Scope{})
	assert.Equal(t, SourceLocalFallback, snap.Source)
	assert.Zero(t, snap.ActiveRate)
}

func TestFallbackKeepsPriorSnapshotWhenLedgerUnloaded(t *testing.T) {
	svc := &insightServer{insights: remoteInsights{TotalActivities: 4, ActiveRate: 75, Trend: "Falling"}}
	o := newTestOrchestrator(t, svc, fakeLedger{loaded: false}, 0)

	first := o.Request(t.Context(), Scope{Days: 30})
	require.Equal(t, SourceRemote, first.Source)

	svc.mu.Lock()
	svc.fail = true
	svc.mu.Unlock()

	second := o.Request(t.Context(), Scope{Days: 30})
	assert.Equal(t, first, second, "with no loaded ledger the prior snapshot stands")
}

func TestTimeoutDegradesToFallback(t *testing.T) {
	hang := make(chan struct{})
	defer close(hang)
	svc := &insightServer{hang: hang}
	o := newTestOrchestrator(t, svc, fakeLedger{loaded: true, total: 10, open: 10}, 50*time.Millisecond)

	start := time.Now()
	snap := o.Request(t.Context(), Scope{Days: 7})
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, SourceLocalFallback, snap.Source)
	assert.Equal(t, 100, snap.ActiveRate)
}

func TestConcurrentRequestsShareOneCall(t *testing.T) {
	hang := make(chan struct{})
	svc := &insightServer{hang: hang, insights: remoteInsights{TotalActivities: 3, Trend: "Stable"}}
	o := newTestOrchestrator(t, svc, fakeLedger{loaded: true, total: 3}, 0)

	var wg sync.WaitGroup
	snaps := make([]Snapshot, 10)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i] = o.Request(t.Context(), Scope{Days: 7, UserID: "u1"})
		}(i)
	}
	// Give every goroutine time to register or attach before releasing.
	time.Sleep(50 * time.Millisecond)
	close(hang)
	wg.Wait()

	assert.Equal(t, int32(1), svc.hits.Load(), "identical scopes must share one network call")
	for _, snap := range snaps {
		assert.Equal(t, snaps[0], snap)
	}
}

func TestDistinctScopesDoNotShare(t *testing.T) {
	svc := &insightServer{}
	o := newTestOrchestrator(t, svc, nil, 0)

	o.Request(t.Context(), Scope{Days: 7})
	o.Request(t.Context(), Scope{Days: 30})
	assert.Equal(t, int32(2), svc.hits.Load())
}

func TestOverlaySurvivesBulkRefresh(t *testing.T) {
	svc := &insightServer{}
	o := newTestOrchestrator(t, svc, nil, 0)

	summary, err := o.SummarizeItem(t.Context(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "short summary", summary)

	o.Request(t.Context(), Scope{Days: 7})

	ov, ok := o.ItemOverlay("a1")
	require.True(t, ok, "bulk refresh must not clear per-item overlays")
	assert.Equal(t, "short summary", ov.Summary)
}

func TestPerItemErrorPropagates(t *testing.T) {
	svc := &insightServer{}
	o := newTestOrchestrator(t, svc, nil, 0)

	_, err := o.SuggestNextStep(t.Context(), "a1")
	require.Error(t, err)
	_, ok := o.ItemOverlay("a1")
	assert.False(t, ok, "failed enrichment must not record an overlay")
}

func TestCurrentBeforeAnyRequest(t *testing.T) {
	svc := &insightServer{}
	o := newTestOrchestrator(t, svc, fakeLedger{loaded: true, total: 2, open: 1}, 0)

	snap := o.Current()
	assert.Equal(t, SourceLocalFallback, snap.Source)
	assert.Equal(t, 50, snap.ActiveRate)
}

func TestWeeklyReportAndPing(t *testing.T) {
	svc := &insightServer{}
	o := newTestOrchestrator(t, svc, nil, 0)

	report, err := o.WeeklyReport(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "quiet week", report)
	assert.NoError(t, o.Ping(t.Context()))
}
