// Package cache provides a concurrent, capacity-bounded map with an
// approximate LRU eviction order and lock-amortized bookkeeping.
//
// Design
//
//   - Table: keys live in a lock-striped hash table (per-shard RWMutex).
//     Lookups and mutations are linearizable per key and never wait for
//     eviction work.
//
//   - Eviction deque: resident entries are linked into one intrusive
//     MRU↔LRU deque owned by a pluggable policy (LRU by default, 2Q in
//     policy/twoq). The deque, the policy and the weighted size are only
//     touched under a single eviction lock.
//
//   - Buffers: reads are recorded in striped, lossy ring buffers (one
//     stripe per P); writes enqueue add/update/removal tasks in a lock-free
//     queue that is never lossy. Buffers are drained in small batches by
//     whichever caller wins a TryLock on the eviction lock; a caller that
//     loses simply returns and a later call finishes the work.
//
//   - Entry lifecycle: alive (mapped and linked), retired (unmapped, waiting
//     for its removal task), dead (unlinked, weight released). Transitions
//     swap an immutable (value, weight, state) triple with compare-and-swap.
//
//   - Weights: capacity is measured by a Weigher (1 per entry by default).
//     ByteSlice, StringBytes, Slice and MapWeigher bound aggregate size.
//     A weigher must return at least 1.
//
//   - Listener: Options.OnEvict(k, v, reason) runs on the goroutine that
//     triggered the eviction, after the lock is released.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     Plug metrics/prom to export them to Prometheus.
//
// Basic usage
//
//	m := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	m.Put("a", []byte("1"))
//	if v, ok := m.Get("a"); ok {
//	    _ = v
//	}
//	m.Remove("a")
//
// Bounding by bytes
//
//	m, err := cache.NewBuilder[string, []byte]().
//	    MaximumWeightedCapacity(64 << 20).
//	    Weigher(cache.ByteSlice()).
//	    Listener(func(k string, v []byte, r cache.EvictReason) { log.Debug("evicted", "key", k) }).
//	    Build()
//
// # Ordered snapshots
//
// AscendingKeys/DescendingKeys take the eviction lock, drain the buffers
// and walk the deque, so they reflect every access recorded so far.
package cache
