// Package ratelimit counts requests per caller and route in fixed windows.
//
// A window opens with the first request for a key and closes a fixed duration
// later, regardless of traffic in between. Requests landing just before and
// just after a window boundary are counted in different windows, so a caller
// can be admitted up to twice the limit across a boundary. That bound is part
// of the contract; callers that need tighter limits must use a smaller window.
package ratelimit

import (
	"sync/atomic"
	"time"

	"expiring-cache-api/internal/cache"
)

// DefaultWindow is used when NewCounterStore is given a zero window.
const DefaultWindow = 10 * time.Second

// Key identifies one counter.
type Key struct {
	Caller string
	Route  string
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed   bool
	Count     int64
	Limit     int64
	Remaining int64
	// RetryAfter is an upper bound on how long until the current window closes.
	RetryAfter time.Duration
}

// CounterStore holds one counter per Key for the length of its window.
type CounterStore struct {
	window time.Duration
	cache  *cache.ExpiringCache[Key, *atomic.Int64]
}

// NewCounterStore constructs a CounterStore.
func NewCounterStore(window time.Duration, scheduler cache.Scheduler) (*CounterStore, error) {
	if window == 0 {
		window = DefaultWindow
	}
	c, err := cache.New(func(Key) (*atomic.Int64, error) {
		return new(atomic.Int64), nil
	}, cache.Options{Name: "rate_limit", TTL: window, Scheduler: scheduler})
	if err != nil {
		return nil, err
	}
	return &CounterStore{window: window, cache: c}, nil
}

// Window returns the window length.
func (s *CounterStore) Window() time.Duration {
	return s.window
}

// Increment counts one request and returns the count in the current window.
func (s *CounterStore) Increment(caller, route string) (int64, error) {
	counter, err := s.cache.Get(Key{Caller: caller, Route: route})
	if err != nil {
		return 0, err
	}
	return counter.Add(1), nil
}

// Allow counts one request and reports whether it fits within limit.
// Rejected requests are counted too.
func (s *CounterStore) Allow(caller, route string, limit int64) (Decision, error) {
	count, err := s.Increment(caller, route)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:    count <= limit,
		Count:      count,
		Limit:      limit,
		Remaining:  max(limit-count, 0),
		RetryAfter: s.window,
	}, nil
}

// Reset closes the current window for caller and route.
func (s *CounterStore) Reset(caller, route string) {
	s.cache.Remove(Key{Caller: caller, Route: route})
}
