package testutil

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

type scheduledTask struct {
	at   time.Duration
	seq  int
	task func()
}

// ManualScheduler is a deterministic scheduler for tests. Tasks only run when
// the test advances the virtual clock, on the goroutine calling Advance.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []scheduledTask
	err   error
}

// NewManualScheduler returns a ManualScheduler with its clock at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule records task to run delay after the current virtual time.
func (s *ManualScheduler) Schedule(delay time.Duration, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.seq++
	s.tasks = append(s.tasks, scheduledTask{at: s.now + delay, seq: s.seq, task: task})
	return nil
}

// FailWith makes every following Schedule call return err. Pass nil to recover.
func (s *ManualScheduler) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Advance moves the virtual clock forward by d and runs every task that became
// due, in deadline order. It returns the number of tasks run.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	var due, rest []scheduledTask
	for _, t := range s.tasks {
		if t.at <= s.now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	s.tasks = rest
	s.mu.Unlock()

	slices.SortFunc(due, func(a, b scheduledTask) int {
		if c := cmp.Compare(a.at, b.at); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	for _, t := range due {
		t.task()
	}
	return len(due)
}

// Pending returns the number of tasks not run yet.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
