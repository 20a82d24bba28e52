// Package scheduler re-assembles a script automatically once its set of
// eligible segments has grown and then stayed quiet for a while.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// AssembleFunc renders a script. It is called from the scheduler's own
// goroutine.
type AssembleFunc func(ctx context.Context, scriptID string) error

// ClearFunc resets the auto-assembled marker on a script.
type ClearFunc func(scriptID string)

type Scheduler struct {
	quiet    time.Duration
	assemble AssembleFunc
	clear    ClearFunc
	logger   *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	state  map[string]*scriptState

	paused  atomic.Bool
	running atomic.Bool
}

type scriptState struct {
	count    int
	timer    *time.Timer
	inflight bool
	rerun    bool
	cancel   context.CancelFunc
	gen      uint64
}

func New(quiet time.Duration, assemble AssembleFunc, clear ClearFunc, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		quiet:    quiet,
		assemble: assemble,
		clear:    clear,
		logger:   logger,
		state:    make(map[string]*scriptState),
	}
}

// Start binds the scheduler to ctx. Observations before Start are tracked but
// never fire.
func (s *Scheduler) Start(ctx context.Context) {
	if s.running.Swap(true) {
		return
	}
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.logger.Info("auto-assembly scheduler started", "quiet_period", s.quiet)
}

// Stop cancels pending timers and in-flight renders.
func (s *Scheduler) Stop() {
	if !s.running.Swap(false) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.state {
		if st.timer != nil {
			st.timer.Stop()
		}
		if st.cancel != nil {
			st.cancel()
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("auto-assembly scheduler stopped")
}

func (s *Scheduler) Pause() {
	s.paused.Store(true)
	s.logger.Info("auto-assembly paused")
}

func (s *Scheduler) Resume() {
	s.paused.Store(false)
	s.logger.Info("auto-assembly resumed")
}

func (s *Scheduler) IsPaused() bool {
	return s.paused.Load()
}

// Observe records the current eligible count for a script. Growth restarts
// the quiet timer; shrinkage cancels pending work and clears the
// auto-assembled marker.
func (s *Scheduler) Observe(scriptID string, eligible int) {
	s.mu.Lock()
	st, ok := s.state[scriptID]
	if !ok {
		st = &scriptState{count: eligible}
		s.state[scriptID] = st
		s.mu.Unlock()
		return
	}

	prev := st.count
	st.count = eligible

	switch {
	case eligible > prev:
		s.armLocked(scriptID, st)
		s.mu.Unlock()
	case eligible < prev:
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		st.gen++
		st.rerun = false
		if st.cancel != nil {
			st.cancel()
		}
		s.mu.Unlock()
		s.logger.Debug("eligible set shrank, auto-assembly cleared", "script_id", scriptID, "eligible", eligible)
		if s.clear != nil {
			s.clear(scriptID)
		}
	default:
		s.mu.Unlock()
	}
}

// Forget drops tracking for a script.
func (s *Scheduler) Forget(scriptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state[scriptID]; ok {
		if st.timer != nil {
			st.timer.Stop()
		}
		if st.cancel != nil {
			st.cancel()
		}
		delete(s.state, scriptID)
	}
}

func (s *Scheduler) armLocked(scriptID string, st *scriptState) {
	if st.timer != nil {
		st.timer.Stop()
	}
	st.gen++
	gen := st.gen
	st.timer = time.AfterFunc(s.quiet, func() { s.fire(scriptID, gen) })
}

func (s *Scheduler) fire(scriptID string, gen uint64) {
	s.mu.Lock()
	st, ok := s.state[scriptID]
	if !ok || st.gen != gen || s.ctx == nil || !s.running.Load() {
		s.mu.Unlock()
		return
	}
	st.timer = nil
	if s.paused.Load() {
		s.mu.Unlock()
		s.logger.Debug("auto-assembly skipped while paused", "script_id", scriptID)
		return
	}
	if st.inflight {
		st.rerun = true
		s.mu.Unlock()
		s.logger.Debug("auto-assembly coalesced into in-flight render", "script_id", scriptID)
		return
	}
	st.inflight = true
	ctx, cancel := context.WithCancel(s.ctx)
	st.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx, cancel, scriptID, st)
}

func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, scriptID string, st *scriptState) {
	defer cancel()

	s.logger.Info("auto-assembly triggered", "script_id", scriptID)
	err := s.assemble(ctx, scriptID)

	s.mu.Lock()
	st.inflight = false
	st.cancel = nil
	rerun := st.rerun && err == nil
	st.rerun = false
	if rerun {
		s.armLocked(scriptID, st)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("auto-assembly failed", "script_id", scriptID, "error", err)
		if s.clear != nil {
			s.clear(scriptID)
		}
	}
}
