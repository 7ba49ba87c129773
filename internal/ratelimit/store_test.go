package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"expiring-cache-api/internal/cache"
	"expiring-cache-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, window time.Duration) (*CounterStore, *testutil.ManualScheduler) {
	t.Helper()
	sched := testutil.NewManualScheduler()
	s, err := NewCounterStore(window, sched)
	require.NoError(t, err)
	return s, sched
}

func TestNewCounterStore_DefaultWindow(t *testing.T) {
	s, _ := newTestStore(t, 0)
	require.Equal(t, DefaultWindow, s.Window())
}

func TestIncrement_CountsPerKey(t *testing.T) {
	s, _ := newTestStore(t, 10*time.Second)

	for i := int64(1); i <= 3; i++ {
		n, err := s.Increment("10.0.0.1", "/api/me")
		require.NoError(t, err)
		require.Equal(t, i, n)
	}

	n, err := s.Increment("10.0.0.1", "/api/logout")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = s.Increment("10.0.0.2", "/api/me")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestIncrement_Concurrent(t *testing.T) {
	s, _ := newTestStore(t, 10*time.Second)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Increment("c", "r")
		}()
	}
	wg.Wait()

	count, err := s.Increment("c", "r")
	require.NoError(t, err)
	require.Equal(t, int64(n+1), count)
}

func TestWindowIsFixed(t *testing.T) {
	s, sched := newTestStore(t, 10*time.Second)

	_, err := s.Increment("c", "r")
	require.NoError(t, err)

	// Traffic inside the window does not push the reset out.
	for i := 0; i < 9; i++ {
		sched.Advance(time.Second)
		_, err := s.Increment("c", "r")
		require.NoError(t, err)
	}
	sched.Advance(time.Second)

	n, err := s.Increment("c", "r")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestAllow(t *testing.T) {
	s, _ := newTestStore(t, 10*time.Second)

	for i := 0; i < 3; i++ {
		d, err := s.Allow("c", "r", 3)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, int64(3-i-1), d.Remaining)
	}

	d, err := s.Allow("c", "r", 3)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, int64(4), d.Count)
	require.Zero(t, d.Remaining)
	require.Equal(t, 10*time.Second, d.RetryAfter)
}

func TestReset(t *testing.T) {
	s, _ := newTestStore(t, 10*time.Second)

	_, err := s.Increment("c", "r")
	require.NoError(t, err)
	s.Reset("c", "r")

	n, err := s.Increment("c", "r")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

// A fixed window admits up to twice the limit across a boundary. This is the
// expected behaviour, not a defect.
func TestBoundaryBurstIsBoundedByTwiceTheLimit(t *testing.T) {
	const limit = 5
	s, sched := newTestStore(t, 10*time.Second)

	admitted := func(n int) int {
		allowed := 0
		for i := 0; i < n; i++ {
			d, err := s.Allow("c", "r", limit)
			require.NoError(t, err)
			if d.Allowed {
				allowed++
			}
		}
		return allowed
	}

	// Window opens at t=0 with one request.
	require.Equal(t, 1, admitted(1))

	// t=9.6s: the rest of the window's budget, plus extra that must be rejected.
	sched.Advance(9600 * time.Millisecond)
	burstBefore := admitted(limit * 2)
	require.Equal(t, limit-1, burstBefore)

	// t=10.2s: the window has closed, a fresh one admits a full limit.
	sched.Advance(600 * time.Millisecond)
	burstAfter := admitted(limit * 2)
	require.Equal(t, limit, burstAfter)

	inOneSecond := burstBefore + burstAfter
	require.Greater(t, inOneSecond, limit)
	require.LessOrEqual(t, inOneSecond, 2*limit)
}

func TestIncrement_SchedulerRejection(t *testing.T) {
	s, sched := newTestStore(t, 10*time.Second)
	sched.FailWith(errors.New("rejected"))

	_, err := s.Increment("c", "r")
	require.ErrorIs(t, err, cache.ErrScheduleFailed)

	_, err = s.Allow("c", "r", 1)
	require.ErrorIs(t, err, cache.ErrScheduleFailed)
}
