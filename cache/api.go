package cache

import (
	"context"
	"iter"
)

// Map is a concurrent, capacity-bounded map with an approximate LRU
// eviction order. All methods are safe for concurrent use by multiple
// goroutines.
//
// The hash table view is always linearizable per key. The eviction order is
// eventually consistent: reads are recorded in lossy striped buffers and
// writes in a lock-free queue, both applied in amortized batches under a
// single eviction lock that callers never wait for.
//
// Capacity is measured in weighted units (see Weigher); by default every
// entry weighs 1 and capacity is an entry count.
type Map[K comparable, V any] interface {
	// Get returns the value for k and records the access for the policy.
	Get(k K) (V, bool)

	// GetQuietly returns the value for k without recording an access.
	GetQuietly(k K) (V, bool)

	// ContainsKey reports whether k is mapped.
	ContainsKey(k K) bool

	// ContainsValue reports whether any entry holds v. O(n).
	ContainsValue(v V) bool

	// Put maps k to v and returns the previous value, if any.
	Put(k K, v V) (V, bool)

	// PutIfAbsent maps k to v only if k is absent. When k is present the
	// existing value is returned with true and nothing is changed.
	PutIfAbsent(k K, v V) (V, bool)

	// ComputeIfAbsent returns the value for k, computing and storing it with
	// fn when absent. fn runs at most once per absent key and must not access
	// the map. A false from fn leaves k unmapped.
	ComputeIfAbsent(k K, fn func(K) (V, bool)) (V, bool)

	// GetOrLoad returns the value for k, loading it via Options.Loader on a
	// miss. Concurrent loads for the same key are coalesced.
	// Returns ErrNoLoader if no Loader was configured.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Replace maps k to v only if k is currently mapped and returns the
	// replaced value.
	Replace(k K, v V) (V, bool)

	// ReplaceIf maps k to newV only if k is currently mapped to oldV.
	ReplaceIf(k K, oldV, newV V) bool

	// Remove deletes k and returns the removed value.
	Remove(k K) (V, bool)

	// RemoveIf deletes k only if it is currently mapped to v.
	RemoveIf(k K, v V) bool

	// Clear removes every entry without notifying the eviction listener.
	Clear()

	// Len returns the number of mapped entries.
	Len() int

	// IsEmpty reports whether Len() == 0.
	IsEmpty() bool

	// WeightedSize returns the total weight of the resident entries as seen
	// by the eviction policy. It may lag behind Len while buffers drain.
	WeightedSize() int64

	// Capacity returns the maximum total weight.
	Capacity() int64

	// SetCapacity changes the maximum total weight, evicting immediately if
	// needed. It blocks on the eviction lock.
	SetCapacity(capacity int64) error

	// All iterates over the mapped entries in no particular order.
	All() iter.Seq2[K, V]

	// Keys iterates over the mapped keys in no particular order.
	Keys() iter.Seq[K]

	// AscendingKeys returns up to limit keys ordered from the next to be
	// evicted to the most recently used. A non-positive limit means all.
	AscendingKeys(limit int) []K

	// DescendingKeys returns up to limit keys ordered from the most recently
	// used to the next to be evicted. A non-positive limit means all.
	DescendingKeys(limit int) []K

	// AscendingEntries is AscendingKeys with values.
	AscendingEntries(limit int) []Entry[K, V]

	// DescendingEntries is DescendingKeys with values.
	DescendingEntries(limit int) []Entry[K, V]

	// Close marks the map as closed. Current implementation is a soft close:
	// reads miss and writes are ignored afterwards. Returns nil.
	Close() error
}

// Entry is a key/value pair of an ordered snapshot.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}
