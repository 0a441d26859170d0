package collections

import (
	"iter"
	"maps"
	"math/bits"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/beancore/internal/util"
)

// EvictionBatch is the slack a CopyOnWriteMap allows above its maximum
// size, and the number of entries evicted once the slack is used up.
const EvictionBatch = 16

// CopyOnWriteMap is a soft cache for read-mostly data. Reads load the
// current snapshot without locking. Writes are serialized: each one clones
// the snapshot, applies the change and publishes the clone.
//
// When a write grows the map to maxSize+EvictionBatch entries or more,
// random entries are dropped until maxSize remain, so a single write of
// one entry evicts EvictionBatch of them. Eviction order is unspecified.
// A published snapshot never holds maxSize+EvictionBatch entries.
type CopyOnWriteMap[K comparable, V any] struct {
	mu      sync.Mutex // serializes writers
	snap    atomic.Pointer[map[K]V]
	maxSize int
}

// NewCopyOnWriteMap returns an empty map bounded to roughly maxSize entries.
func NewCopyOnWriteMap[K comparable, V any](maxSize int) *CopyOnWriteMap[K, V] {
	if maxSize < 0 {
		maxSize = 0
	}
	m := &CopyOnWriteMap[K, V]{maxSize: maxSize}
	empty := map[K]V{}
	m.snap.Store(&empty)
	return m
}

func (m *CopyOnWriteMap[K, V]) load() map[K]V { return *m.snap.Load() }

// update applies fn to a private copy and publishes it when fn reports a
// change. Must not be called with mu held.
func (m *CopyOnWriteMap[K, V]) update(fn func(next map[K]V) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := maps.Clone(m.load())
	if next == nil {
		next = map[K]V{}
	}
	if !fn(next) {
		return
	}
	if len(next) >= m.maxSize+EvictionBatch {
		Evict(next, len(next)-m.maxSize)
	}
	m.snap.Store(&next)
}

// Get returns the value for k.
func (m *CopyOnWriteMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.load()[k]
	return v, ok
}

// GetOrDefault returns the value for k, or def when k is absent.
func (m *CopyOnWriteMap[K, V]) GetOrDefault(k K, def V) V {
	if v, ok := m.load()[k]; ok {
		return v
	}
	return def
}

// ContainsKey reports whether k is mapped.
func (m *CopyOnWriteMap[K, V]) ContainsKey(k K) bool {
	_, ok := m.load()[k]
	return ok
}

// ContainsValue scans the snapshot for v.
func (m *CopyOnWriteMap[K, V]) ContainsValue(v V) bool {
	for _, x := range m.load() {
		if util.Equal(x, v) {
			return true
		}
	}
	return false
}

// Len returns the number of entries in the current snapshot.
func (m *CopyOnWriteMap[K, V]) Len() int { return len(m.load()) }

// Snapshot returns a copy of the current contents.
func (m *CopyOnWriteMap[K, V]) Snapshot() map[K]V { return maps.Clone(m.load()) }

// All iterates over one snapshot; concurrent writes are not observed.
func (m *CopyOnWriteMap[K, V]) All() iter.Seq2[K, V] {
	return maps.All(m.load())
}

// Put maps k to v and returns the previous value.
func (m *CopyOnWriteMap[K, V]) Put(k K, v V) (prev V, existed bool) {
	m.update(func(next map[K]V) bool {
		prev, existed = next[k]
		next[k] = v
		return true
	})
	return prev, existed
}

// PutAll copies every entry of src in one write.
func (m *CopyOnWriteMap[K, V]) PutAll(src map[K]V) {
	if len(src) == 0 {
		return
	}
	m.update(func(next map[K]V) bool {
		maps.Copy(next, src)
		return true
	})
}

// PutIfAbsent maps k to v unless k is mapped, and returns the value k
// ends up with.
func (m *CopyOnWriteMap[K, V]) PutIfAbsent(k K, v V) (actual V, loaded bool) {
	if cur, ok := m.Get(k); ok {
		return cur, true
	}
	m.update(func(next map[K]V) bool {
		if actual, loaded = next[k]; loaded {
			return false
		}
		next[k], actual = v, v
		return true
	})
	return actual, loaded
}

// Remove deletes k and returns its value.
func (m *CopyOnWriteMap[K, V]) Remove(k K) (prev V, existed bool) {
	if !m.ContainsKey(k) {
		return prev, false
	}
	m.update(func(next map[K]V) bool {
		if prev, existed = next[k]; existed {
			delete(next, k)
		}
		return existed
	})
	return prev, existed
}

// RemoveIf deletes k only if it maps to v.
func (m *CopyOnWriteMap[K, V]) RemoveIf(k K, v V) bool {
	removed := false
	m.update(func(next map[K]V) bool {
		if cur, ok := next[k]; ok && util.Equal(cur, v) {
			delete(next, k)
			removed = true
		}
		return removed
	})
	return removed
}

// Replace maps k to v only if k is mapped.
func (m *CopyOnWriteMap[K, V]) Replace(k K, v V) (prev V, replaced bool) {
	m.update(func(next map[K]V) bool {
		if prev, replaced = next[k]; replaced {
			next[k] = v
		}
		return replaced
	})
	return prev, replaced
}

// ReplaceIf maps k to newV only if k maps to oldV.
func (m *CopyOnWriteMap[K, V]) ReplaceIf(k K, oldV, newV V) bool {
	replaced := false
	m.update(func(next map[K]V) bool {
		if cur, ok := next[k]; ok && util.Equal(cur, oldV) {
			next[k] = newV
			replaced = true
		}
		return replaced
	})
	return replaced
}

// ComputeIfAbsent returns the value for k, computing and storing it when
// absent. fn runs under the write lock and must not call back into m.
// When fn returns false nothing is stored.
func (m *CopyOnWriteMap[K, V]) ComputeIfAbsent(k K, fn func(K) (V, bool)) (V, bool) {
	if v, ok := m.Get(k); ok {
		return v, true
	}
	var (
		out V
		ok  bool
	)
	m.update(func(next map[K]V) bool {
		if out, ok = next[k]; ok {
			return false
		}
		if out, ok = fn(k); !ok {
			return false
		}
		next[k] = out
		return true
	})
	return out, ok
}

// ComputeIfPresent replaces the value of a mapped k with fn's result, or
// removes k when fn returns false.
func (m *CopyOnWriteMap[K, V]) ComputeIfPresent(k K, fn func(K, V) (V, bool)) (V, bool) {
	var (
		out V
		ok  bool
	)
	m.update(func(next map[K]V) bool {
		cur, present := next[k]
		if !present {
			return false
		}
		if out, ok = fn(k, cur); ok {
			next[k] = out
		} else {
			delete(next, k)
		}
		return true
	})
	return out, ok
}

// Compute sets k to fn's result; fn sees the current value and whether it
// exists. Returning false removes k.
func (m *CopyOnWriteMap[K, V]) Compute(k K, fn func(k K, cur V, present bool) (V, bool)) (V, bool) {
	var (
		out V
		ok  bool
	)
	m.update(func(next map[K]V) bool {
		cur, present := next[k]
		if out, ok = fn(k, cur, present); ok {
			next[k] = out
			return true
		}
		if present {
			delete(next, k)
		}
		return present
	})
	return out, ok
}

// Merge stores v when k is absent, otherwise fn(old, v); fn returning
// false removes k.
func (m *CopyOnWriteMap[K, V]) Merge(k K, v V, fn func(old, v V) (V, bool)) (V, bool) {
	return m.Compute(k, func(_ K, cur V, present bool) (V, bool) {
		if !present {
			return v, true
		}
		return fn(cur, v)
	})
}

// ReplaceAll rewrites every value in one write.
func (m *CopyOnWriteMap[K, V]) ReplaceAll(fn func(K, V) V) {
	m.update(func(next map[K]V) bool {
		for k, v := range next {
			next[k] = fn(k, v)
		}
		return len(next) > 0
	})
}

// Clear publishes an empty map.
func (m *CopyOnWriteMap[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	empty := map[K]V{}
	m.snap.Store(&empty)
}

// Evict removes n randomly chosen entries from dst, or every entry when
// dst holds fewer than n.
func Evict[K comparable, V any](dst map[K]V, n int) {
	size := len(dst)
	if n >= size {
		clear(dst)
		return
	}
	if n <= 0 {
		return
	}
	chosen := newBitset(size)
	for i := 0; i < n; i++ {
		chosen.setNthClear(rand.IntN(size - i))
	}
	pos := 0
	for k := range dst {
		if chosen.test(pos) {
			delete(dst, k)
		}
		pos++
	}
}

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) test(i int) bool { return b[i>>6]&(1<<(uint(i)&63)) != 0 }

// setNthClear sets the n-th (0-based) clear bit.
func (b bitset) setNthClear(n int) {
	for w := range b {
		free := bits.OnesCount64(^b[w])
		if n >= free {
			n -= free
			continue
		}
		z := ^b[w]
		for ; n > 0; n-- {
			z &= z - 1
		}
		b[w] |= 1 << bits.TrailingZeros64(z)
		return
	}
}
