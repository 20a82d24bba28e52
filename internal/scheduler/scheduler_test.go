package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

const quiet = 40 * time.Millisecond

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeAssembler struct {
	calls   atomic.Int32
	clears  atomic.Int32
	block   chan struct{}
	started chan struct{}
	err     error
}

func (f *fakeAssembler) assemble(ctx context.Context, scriptID string) error {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeAssembler) clear(scriptID string) {
	f.clears.Add(1)
}

func startScheduler(t *testing.T, f *fakeAssembler) *Scheduler {
	t.Helper()
	s := New(quiet, f.assemble, f.clear, testLogger())
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestObserve_RapidApprovalsRenderOnce(t *testing.T) {
	f := &fakeAssembler{}
	s := startScheduler(t, f)

	s.Observe("s1", 0)
	s.Observe("s1", 1)
	time.Sleep(quiet / 4)
	s.Observe("s1", 2)

	waitFor(t, func() bool { return f.calls.Load() == 1 })
	time.Sleep(3 * quiet)

	if got := f.calls.Load(); got != 1 {
		t.Errorf("render calls = %d, want 1", got)
	}
}

func TestObserve_FirstObservationIsBaseline(t *testing.T) {
	f := &fakeAssembler{}
	s := startScheduler(t, f)

	s.Observe("s1", 3)
	time.Sleep(3 * quiet)

	if got := f.calls.Load(); got != 0 {
		t.Errorf("render calls = %d, want 0", got)
	}
}

func TestObserve_DecreaseCancelsAndClears(t *testing.T) {
	f := &fakeAssembler{}
	s := startScheduler(t, f)

	s.Observe("s1", 1)
	s.Observe("s1", 2)
	s.Observe("s1", 1)
	time.Sleep(3 * quiet)

	if got := f.calls.Load(); got != 0 {
		t.Errorf("render calls = %d, want 0 after decrease", got)
	}
	if got := f.clears.Load(); got != 1 {
		t.Errorf("clears = %d, want 1", got)
	}
}

func TestObserve_CoalescesInFlight(t *testing.T) {
	f := &fakeAssembler{block: make(chan struct{}), started: make(chan struct{}, 4)}
	s := startScheduler(t, f)

	s.Observe("s1", 0)
	s.Observe("s1", 1)
	<-f.started

	s.Observe("s1", 2)
	time.Sleep(2 * quiet)
	if got := f.calls.Load(); got != 1 {
		t.Fatalf("render calls while in flight = %d, want 1", got)
	}

	close(f.block)
	waitFor(t, func() bool { return f.calls.Load() == 2 })
	time.Sleep(3 * quiet)
	if got := f.calls.Load(); got != 2 {
		t.Errorf("render calls = %d, want 2 (one coalesced rerun)", got)
	}
}

func TestRun_ErrorClears(t *testing.T) {
	f := &fakeAssembler{err: errors.New("renderer down")}
	s := startScheduler(t, f)

	s.Observe("s1", 0)
	s.Observe("s1", 1)

	waitFor(t, func() bool { return f.clears.Load() == 1 })
}

func TestPause(t *testing.T) {
	f := &fakeAssembler{}
	s := startScheduler(t, f)

	s.Pause()
	if !s.IsPaused() {
		t.Fatal("IsPaused() = false")
	}
	s.Observe("s1", 0)
	s.Observe("s1", 1)
	time.Sleep(3 * quiet)
	if got := f.calls.Load(); got != 0 {
		t.Errorf("render calls while paused = %d", got)
	}

	s.Resume()
	s.Observe("s1", 2)
	waitFor(t, func() bool { return f.calls.Load() == 1 })
}
