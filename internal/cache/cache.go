package cache

import "time"

// Cache defines the keyed store API shared by every self-expiring cache instance.
// Implementations must be goroutine-safe: eviction tasks run on scheduler workers
// concurrently with callers.
type Cache[K comparable, V any] interface {
	// Get returns the value for key, computing and storing it on a miss.
	Get(key K) (V, error)

	// GetIfPresent returns the value for key without populating on a miss.
	GetIfPresent(key K) (V, bool)

	// Put stores value under key with the given TTL unless key is already present,
	// in which case the existing value is returned and nothing changes.
	Put(key K, value V, ttl time.Duration) (V, error)

	// Remove deletes key if present.
	Remove(key K)

	// ResetExpiry re-arms the eviction of key to fire ttl from now.
	// It reports false when key is absent.
	ResetExpiry(key K, ttl time.Duration) (bool, error)

	// Len returns the number of entries currently stored.
	Len() int

	// Clear removes all entries of this instance.
	Clear()
}

// Populator computes the value of a missing key.
// It must be safe to call again for the same key: a populate that loses a race with
// an epoch bump is discarded and may be repeated by a later Get.
type Populator[K comparable, V any] func(key K) (V, error)

// Ensure ExpiringCache implements Cache at compile time.
var _ Cache[string, int] = (*ExpiringCache[string, int])(nil)
