package cache

import "sync/atomic"

// globalEpoch is shared by every ExpiringCache in the process. It starts at zero
// and only ever moves forward.
var globalEpoch atomic.Uint64

// BumpGlobalEpoch advances the process-wide epoch and returns the new value.
// Every cache instance treats its contents as cleared from this point on; the
// physical clear happens on that instance's next operation.
func BumpGlobalEpoch() uint64 {
	epoch := globalEpoch.Add(1)
	epochBumps.Inc()
	return epoch
}

// CurrentEpoch returns the current process-wide epoch.
func CurrentEpoch() uint64 {
	return globalEpoch.Load()
}

// syncEpoch clears the instance if the global epoch moved past the one it last
// observed. The fast path is a pair of atomic loads.
func (c *ExpiringCache[K, V]) syncEpoch() {
	if c.epoch.Load() == CurrentEpoch() {
		return
	}
	c.mu.Lock()
	c.syncEpochLocked()
	c.mu.Unlock()
}

// syncEpochLocked re-checks under the instance lock so that concurrent observers
// of the same bump clear the table only once.
func (c *ExpiringCache[K, V]) syncEpochLocked() {
	global := CurrentEpoch()
	if c.epoch.Load() >= global {
		return
	}
	c.resetLocked()
	c.epoch.Store(global)
}
