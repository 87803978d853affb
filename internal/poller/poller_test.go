package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uplift-crm/upliftsync/internal/httpapi"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestImmediateFetchThenTicks(t *testing.T) {
	s := NewSet()
	defer s.StopAll()

	var calls atomic.Int32
	s.Start("lead-1", 20*time.Millisecond, nil, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	waitFor(t, func() bool { return calls.Load() >= 3 }, "expected immediate fetch plus ticks")
	assert.True(t, s.Running("lead-1"))
}

func TestOverlappingTicksAreSkippedNotQueued(t *testing.T) {
	s := NewSet()
	defer s.StopAll()

	var calls atomic.Int32
	release := make(chan struct{})
	s.Start("lead-1", 10*time.Millisecond, nil, func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})

	waitFor(t, func() bool { return calls.Load() == 1 }, "first fetch should start")
	// Let several ticks fire while the first fetch is stuck.
	time.Sleep(80 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load(), "ticks during an in-flight fetch must be dropped")

	close(release)
	waitFor(t, func() bool { return calls.Load() >= 2 }, "polling should resume after the fetch returns")
}

func TestDeniedErrorStopsPollerPermanently(t *testing.T) {
	s := NewSet()
	defer s.StopAll()

	var calls atomic.Int32
	s.Start("lead-1", 10*time.Millisecond, nil, func(ctx context.Context) error {
		calls.Add(1)
		return &httpapi.StatusError{Code: 404, Body: "integration removed"}
	})

	waitFor(t, func() bool { return !s.Running("lead-1") }, "denied fetch should unregister the poller")
	settled := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, calls.Load(), "no fetches after self-stop")
}

func TestTransientErrorKeepsPolling(t *testing.T) {
	s := NewSet()
	defer s.StopAll()

	var calls atomic.Int32
	s.Start("lead-1", 10*time.Millisecond, nil, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("connection reset")
	})

	waitFor(t, func() bool { return calls.Load() >= 3 }, "transient failures must not stop the loop")
	assert.True(t, s.Running("lead-1"))
}

func TestGateSkipsFetch(t *testing.T) {
	s := NewSet()
	defer s.StopAll()

	var open atomic.Bool
	var calls atomic.Int32
	s.Start("lead-1", 10*time.Millisecond, func(ctx context.Context) bool {
		return open.Load()
	}, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(0), calls.Load(), "gated ticks must not fetch")

	open.Store(true)
	waitFor(t, func() bool { return calls.Load() >= 1 }, "fetch should run once the gate opens")
}

func TestStartReplacesExistingLoop(t *testing.T) {
	s := NewSet()
	defer s.StopAll()

	var first, second atomic.Int32
	s.Start("lead-1", 10*time.Millisecond, nil, func(ctx context.Context) error {
		first.Add(1)
		return nil
	})
	waitFor(t, func() bool { return first.Load() >= 1 }, "first loop should run")

	s.Start("lead-1", 10*time.Millisecond, nil, func(ctx context.Context) error {
		second.Add(1)
		return nil
	})
	waitFor(t, func() bool { return second.Load() >= 2 }, "second loop should run")

	settled := first.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, first.Load(), "replaced loop must stop ticking")
}

func TestSupersededHandleStopIsNoOp(t *testing.T) {
	s := NewSet()
	defer s.StopAll()

	h1 := s.Start("lead-1", 10*time.Millisecond, nil, func(ctx context.Context) error { return nil })
	s.Start("lead-1", 10*time.Millisecond, nil, func(ctx context.Context) error { return nil })

	h1.Stop()
	assert.True(t, s.Running("lead-1"), "stopping a superseded handle must not kill the replacement")
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewSet()
	s.Start("lead-1", 10*time.Millisecond, nil, func(ctx context.Context) error { return nil })

	s.Stop("lead-1")
	s.Stop("lead-1")
	s.Stop("never-started")
	assert.False(t, s.Running("lead-1"))
}

func TestStopAllWaitsForLoops(t *testing.T) {
	s := NewSet()
	for _, id := range []string{"a", "b", "c"} {
		s.Start(id, 10*time.Millisecond, nil, func(ctx context.Context) error { return nil })
	}
	s.StopAll()
	for _, id := range []string{"a", "b", "c"} {
		assert.False(t, s.Running(id))
	}
}
