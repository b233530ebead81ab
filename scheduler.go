package fabric

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// SchedulerState is the Tree Scheduler's three states (spec.md §4.6):
// Idle (nothing to do), Pending (a recompute was requested while one
// was already running, so another must follow), Running (a recompute
// is in flight).
type SchedulerState uint8

const (
	SchedulerIdle SchedulerState = iota
	SchedulerPending
	SchedulerRunning
)

// TreeScheduler coalesces route/tree recompute requests: bursts of
// declarer-set changes (many Declare/Undeclare messages arriving back
// to back) collapse into at most one extra recompute pass after the
// in-flight one finishes, instead of one recompute per trigger. The
// coalescing comes from the Idle/Pending/Running state machine; each
// pass runs through the singleflight.Group, which only the single
// runLoop goroutine calls (Request never enters it).
type TreeScheduler struct {
	mu    sync.Mutex
	state SchedulerState
	sf    singleflight.Group
	runFn func()
}

// NewTreeScheduler builds a TreeScheduler that invokes runFn for each
// recompute pass.
func NewTreeScheduler(runFn func()) *TreeScheduler {
	return &TreeScheduler{runFn: runFn}
}

// Request asks the scheduler to run a recompute pass. If one is
// already running, this trigger is folded into a single trailing
// pass rather than starting a second goroutine immediately.
func (s *TreeScheduler) Request() {
	s.mu.Lock()
	switch s.state {
	case SchedulerIdle:
		s.state = SchedulerRunning
		s.mu.Unlock()
		go s.runLoop()
	case SchedulerRunning:
		s.state = SchedulerPending
		s.mu.Unlock()
	case SchedulerPending:
		s.mu.Unlock()
	}
}

func (s *TreeScheduler) runLoop() {
	for {
		s.sf.Do("recompute", func() (any, error) {
			s.runFn()
			return nil, nil
		})

		s.mu.Lock()
		if s.state == SchedulerPending {
			s.state = SchedulerRunning
			s.mu.Unlock()
			continue
		}
		s.state = SchedulerIdle
		s.mu.Unlock()
		return
	}
}

// State reports the scheduler's current state, for admin-space
// introspection and tests.
func (s *TreeScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
