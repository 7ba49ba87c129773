// Package cache implements a generic self-expiring keyed cache.
//
// An ExpiringCache fills misses through a Populator and evicts every entry on
// its own after a TTL. There is no sweep over the table: each write arms a
// one-shot task on a shared Scheduler, and the task removes the key only if the
// entry still carries the version it was armed for. Overwrites, removals and
// ResetExpiry therefore never cancel timers; stale tasks simply find nothing to
// do.
//
// BumpGlobalEpoch invalidates every instance in the process at once. Instances
// compare a local copy of the epoch on each operation and clear themselves on
// the first access after a bump, so the bump itself is O(1) and needs no
// registry of live caches.
//
// Populate modes:
//   - claim-then-release (default): a miss claims the key under the instance
//     lock, populates outside it and commits afterwards. Concurrent misses for
//     the same key share one populate; other keys are not held up.
//   - lock-the-instance (Options.HoldLockWhilePopulating): the populator runs
//     under the instance lock. Simpler, but a slow populator serialises every
//     key of the instance.
package cache
