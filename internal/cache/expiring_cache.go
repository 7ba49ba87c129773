package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// entry stores a cached value together with the version of the write that
// produced it. Only the eviction task scheduled with the same version may
// remove the entry.
type entry[V any] struct {
	value   V
	version uint64
}

// call tracks an in-flight populate for one key.
type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Options controls construction of an ExpiringCache.
type Options struct {
	// Name labels the instance in metrics and logs.
	Name string

	// TTL is the default time-to-live used for populated entries. Required.
	TTL time.Duration

	// Scheduler runs eviction tasks. Defaults to the process-wide DefaultScheduler.
	Scheduler Scheduler

	// HoldLockWhilePopulating runs the populator while holding the instance lock.
	// A slow populator then blocks every other key of the instance. When false
	// (the default) a miss only claims the key under the lock and populates
	// outside of it; concurrent misses for the same key wait for that claim.
	HoldLockWhilePopulating bool
}

// ExpiringCache is a lazily populated map whose entries evict themselves after
// their TTL. Each write arms a one-shot eviction task on the Scheduler; the task
// removes the key only if it still holds the version it was armed for, so
// overwritten or removed entries never need their timers cancelled.
type ExpiringCache[K comparable, V any] struct {
	name      string
	ttl       time.Duration
	populate  Populator[K, V]
	scheduler Scheduler
	serialize bool

	mu       sync.Mutex
	items    map[K]*entry[V]
	inflight map[K]*call[V]

	// generation counts local clears; a populate claimed in an older generation
	// is not committed.
	generation uint64
	// nextVersion stamps every write. It is never reset, so versions stay unique
	// across clears.
	nextVersion uint64

	epoch atomic.Uint64
}

// New constructs an ExpiringCache that fills misses with populate.
func New[K comparable, V any](populate Populator[K, V], opts Options) (*ExpiringCache[K, V], error) {
	if populate == nil {
		return nil, ErrNilPopulator
	}
	if opts.TTL <= 0 {
		return nil, ErrInvalidTTL
	}
	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = DefaultScheduler()
	}
	name := opts.Name
	if name == "" {
		name = "default"
	}
	c := &ExpiringCache[K, V]{
		name:      name,
		ttl:       opts.TTL,
		populate:  populate,
		scheduler: scheduler,
		serialize: opts.HoldLockWhilePopulating,
		items:     make(map[K]*entry[V]),
		inflight:  make(map[K]*call[V]),
	}
	c.epoch.Store(CurrentEpoch())
	return c, nil
}

// Name returns the instance name.
func (c *ExpiringCache[K, V]) Name() string {
	return c.name
}

// TTL returns the default time-to-live.
func (c *ExpiringCache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Get implements Cache.Get.
func (c *ExpiringCache[K, V]) Get(key K) (V, error) {
	c.syncEpoch()

	c.mu.Lock()
	if e, ok := c.items[key]; ok {
		c.mu.Unlock()
		cacheHits.WithLabelValues(c.name).Inc()
		return e.value, nil
	}
	cacheMisses.WithLabelValues(c.name).Inc()

	if c.serialize {
		defer c.mu.Unlock()
		generation := c.generation
		value, err := c.safePopulate(key)
		if err != nil {
			return value, err
		}
		if c.syncEpochLocked(); c.generation != generation {
			return value, nil
		}
		return c.insertLocked(key, value, c.ttl)
	}

	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-cl.done
		return cl.value, cl.err
	}
	cl := &call[V]{done: make(chan struct{})}
	c.inflight[key] = cl
	generation := c.generation
	c.mu.Unlock()

	value, err := c.safePopulate(key)

	c.mu.Lock()
	c.syncEpochLocked()
	if c.inflight[key] == cl {
		delete(c.inflight, key)
	}
	if err == nil && c.generation == generation {
		value, err = c.insertLocked(key, value, c.ttl)
	}
	c.mu.Unlock()

	cl.value, cl.err = value, err
	close(cl.done)
	return value, err
}

// GetIfPresent implements Cache.GetIfPresent.
func (c *ExpiringCache[K, V]) GetIfPresent(key K) (V, bool) {
	c.syncEpoch()

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	cacheHits.WithLabelValues(c.name).Inc()
	return e.value, true
}

// Put implements Cache.Put.
func (c *ExpiringCache[K, V]) Put(key K, value V, ttl time.Duration) (V, error) {
	if ttl <= 0 {
		var zero V
		return zero, ErrInvalidTTL
	}
	c.syncEpoch()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(key, value, ttl)
}

// Remove implements Cache.Remove. Any armed eviction for key becomes a no-op.
func (c *ExpiringCache[K, V]) Remove(key K) {
	c.syncEpoch()

	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// ResetExpiry implements Cache.ResetExpiry. The entry gets a fresh version so
// the previously armed task no longer matches it. If the new task cannot be
// scheduled the entry keeps its old version and old deadline.
func (c *ExpiringCache[K, V]) ResetExpiry(key K, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}
	c.syncEpoch()

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return false, nil
	}
	version := c.nextVersion + 1
	if err := c.armLocked(key, version, ttl); err != nil {
		return true, err
	}
	c.nextVersion = version
	e.version = version
	return true, nil
}

// Len implements Cache.Len.
func (c *ExpiringCache[K, V]) Len() int {
	c.syncEpoch()

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear implements Cache.Clear. It affects this instance only; use
// BumpGlobalEpoch to flush every instance in the process.
func (c *ExpiringCache[K, V]) Clear() {
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}

// insertLocked stores value unless key is present, arming its eviction first so
// that no entry is ever committed without one.
func (c *ExpiringCache[K, V]) insertLocked(key K, value V, ttl time.Duration) (V, error) {
	if e, ok := c.items[key]; ok {
		return e.value, nil
	}
	version := c.nextVersion + 1
	if err := c.armLocked(key, version, ttl); err != nil {
		var zero V
		return zero, err
	}
	c.nextVersion = version
	c.items[key] = &entry[V]{value: value, version: version}
	return value, nil
}

// armLocked schedules the eviction of key at the given version. Schedulers run
// tasks asynchronously, so arming under the lock cannot deadlock with expire.
func (c *ExpiringCache[K, V]) armLocked(key K, version uint64, ttl time.Duration) error {
	if err := c.scheduler.Schedule(ttl, func() { c.expire(key, version) }); err != nil {
		return fmt.Errorf("%w: %w", ErrScheduleFailed, err)
	}
	return nil
}

// expire is the eviction task body.
func (c *ExpiringCache[K, V]) expire(key K, version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok && e.version == version {
		delete(c.items, key)
		cacheEvictions.WithLabelValues(c.name).Inc()
	}
}

// resetLocked drops every entry and in-flight claim and starts a new generation.
func (c *ExpiringCache[K, V]) resetLocked() {
	c.items = make(map[K]*entry[V])
	c.inflight = make(map[K]*call[V])
	c.generation++
}

// safePopulate runs the populator, turning a panic into ErrPopulatePanic so that
// waiters on the claim are always released.
func (c *ExpiringCache[K, V]) safePopulate(key K) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			value, err = zero, fmt.Errorf("%w: %v", ErrPopulatePanic, r)
		}
		if err != nil {
			populateErrors.WithLabelValues(c.name).Inc()
		}
	}()
	return c.populate(key)
}
