package cache

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs a callback once, at or after delay, on a goroutine other than
// the caller's. Implementations must never run the callback synchronously
// inside Schedule.
type Scheduler interface {
	Schedule(delay time.Duration, task func()) error
}

// SchedulerOptions controls construction of a DelayedScheduler.
type SchedulerOptions struct {
	// Workers is the number of goroutines running due tasks. Defaults to GOMAXPROCS.
	Workers int

	// QueueSize is the number of due tasks buffered ahead of the workers.
	// A timer whose task finds the queue full waits for a slot; submission itself
	// is never rejected while the scheduler runs. Defaults to 1024.
	QueueSize int

	// Logger receives recovered task panics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DelayedScheduler arms a runtime timer per task and hands due tasks to a fixed
// pool of workers. Size the pool for the expected key cardinality times churn:
// a burst of simultaneous expirations queues up behind the workers.
type DelayedScheduler struct {
	queue    chan func()
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  atomic.Bool
	workers  int
	pending  atomic.Int64
	logger   *slog.Logger
}

// NewDelayedScheduler constructs a DelayedScheduler and starts its workers.
func NewDelayedScheduler(opts SchedulerOptions) *DelayedScheduler {
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := opts.QueueSize
	if queueSize < 1 {
		queueSize = 1024
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &DelayedScheduler{
		queue:   make(chan func(), queueSize),
		done:    make(chan struct{}),
		workers: workers,
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Schedule implements Scheduler.
func (s *DelayedScheduler) Schedule(delay time.Duration, task func()) error {
	if task == nil {
		return ErrNilTask
	}
	if s.stopped.Load() {
		return ErrSchedulerStopped
	}
	s.pending.Add(1)
	schedulerPending.Inc()
	time.AfterFunc(delay, func() { s.dispatch(task) })
	return nil
}

// dispatch runs on the timer goroutine and hands the task to a worker.
func (s *DelayedScheduler) dispatch(task func()) {
	select {
	case <-s.done:
		s.drop()
		return
	default:
	}
	select {
	case s.queue <- task:
	case <-s.done:
		s.drop()
	}
}

func (s *DelayedScheduler) drop() {
	s.pending.Add(-1)
	schedulerPending.Dec()
}

func (s *DelayedScheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case task := <-s.queue:
			s.run(task)
		}
	}
}

func (s *DelayedScheduler) run(task func()) {
	defer func() {
		s.drop()
		if r := recover(); r != nil {
			s.logger.Error("cache: scheduled task panic recovered", slog.Any("panic", r))
		}
	}()
	task()
}

// Pending returns the number of scheduled tasks that have not run yet.
func (s *DelayedScheduler) Pending() int64 {
	return s.pending.Load()
}

// Workers returns the worker count.
func (s *DelayedScheduler) Workers() int {
	return s.workers
}

// Stop rejects further tasks and stops the workers. Armed timers that fire
// afterwards are dropped. Stop is idempotent.
func (s *DelayedScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.done)
		s.wg.Wait()
		for {
			select {
			case <-s.queue:
				s.drop()
			default:
				return
			}
		}
	})
}

var (
	defaultScheduler     *DelayedScheduler
	defaultSchedulerOnce sync.Once
)

// DefaultScheduler returns the process-wide scheduler shared by every cache
// built without an explicit one. It lives for the rest of the process.
func DefaultScheduler() *DelayedScheduler {
	defaultSchedulerOnce.Do(func() {
		defaultScheduler = NewDelayedScheduler(SchedulerOptions{})
	})
	return defaultScheduler
}

// Ensure DelayedScheduler implements Scheduler at compile time.
var _ Scheduler = (*DelayedScheduler)(nil)
