package cache

import "errors"

var (
	// ErrInvalidTTL is returned when a non-positive TTL is supplied.
	ErrInvalidTTL = errors.New("cache: ttl must be positive")

	// ErrNilPopulator is returned by New when no populator is configured.
	ErrNilPopulator = errors.New("cache: nil populator")

	// ErrScheduleFailed wraps a scheduler rejection. The write that needed the
	// eviction is not committed.
	ErrScheduleFailed = errors.New("cache: eviction could not be scheduled")

	// ErrPopulatePanic is returned to every waiter of a populate that panicked.
	ErrPopulatePanic = errors.New("cache: populator panicked")

	// ErrSchedulerStopped is returned by Schedule after Stop.
	ErrSchedulerStopped = errors.New("cache: scheduler stopped")

	// ErrNilTask is returned by Schedule for a nil callback.
	ErrNilTask = errors.New("cache: nil task")
)
