package cache

import (
	"context"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/IvanBrykalov/beancore/internal/queue"
	"github.com/IvanBrykalov/beancore/internal/singleflight"
	"github.com/IvanBrykalov/beancore/internal/util"
	"github.com/IvanBrykalov/beancore/policy"
	"github.com/IvanBrykalov/beancore/policy/lru"
)

// boundedMap is a concurrent hash table bounded by a weighted capacity.
//
// Table mutations go straight to the lock-striped table. The deque, the
// policy state and the weighted size are only touched by whoever holds
// evictionLock, which callers acquire with TryLock and never wait for.
type boundedMap[K comparable, V any] struct {
	data *table[K, V]

	// ---- guarded by evictionLock ----
	evictionLock sync.Mutex
	deque        deque[K, V]
	pol          policy.EvictionPolicy[K, V]

	// written under evictionLock, readable anywhere
	weightedSize atomic.Int64
	capacity     atomic.Int64

	drainStatus atomic.Uint32
	_           util.CacheLinePad

	readBuffers []readBuffer[K, V]
	stripeMask  int
	stripeSeq   atomic.Uint32
	stripes     sync.Pool

	writeBuffer *queue.Queue[task[K, V]]
	notifier    notifier[K, V]

	policyFactory policy.Policy[K, V]
	weigher       EntryWeigher[K, V]
	metrics       Metrics
	loader        func(ctx context.Context, k K) (V, error)
	logger        *log.Logger
	closed        atomic.Bool

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a map with the provided Options.
// It panics if Capacity <= 0; use Builder for a zero capacity or for
// validation errors instead of panics.
func New[K comparable, V any](opt Options[K, V]) Map[K, V] {
	if opt.Capacity <= 0 {
		panic("cache: Capacity must be > 0")
	}
	return newMap(opt)
}

func newMap[K comparable, V any](opt Options[K, V]) *boundedMap[K, V] {
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K, V]()
	}
	if opt.Weigher == nil {
		opt.Weigher = EntrySingleton[K, V]()
	}
	if opt.Logger == nil {
		opt.Logger = log.New(io.Discard)
	}

	stripes := util.StripeCount()
	m := &boundedMap[K, V]{
		data:          newTable[K, V](opt.InitialCapacity, opt.ConcurrencyLevel),
		readBuffers:   make([]readBuffer[K, V], stripes),
		stripeMask:    stripes - 1,
		writeBuffer:   queue.New[task[K, V]](),
		policyFactory: opt.Policy,
		weigher:       opt.Weigher,
		metrics:       opt.Metrics,
		loader:        opt.Loader,
		logger:        opt.Logger,
	}
	m.pol = m.policyFactory.New(dequeHooks[K, V]{d: &m.deque})
	m.capacity.Store(min(opt.Capacity, MaximumCapacity))
	m.stripes.New = func() any {
		return &stripeToken{idx: int(m.stripeSeq.Add(1)-1) & m.stripeMask}
	}
	if opt.OnEvict != nil {
		m.notifier = newQueuedNotifier(opt.OnEvict)
	} else {
		m.notifier = discardingNotifier[K, V]{}
	}
	return m
}

// ---- Map[K,V] implementation ----

// Get returns the value for k and records the read for the policy.
func (m *boundedMap[K, V]) Get(k K) (V, bool) {
	if m.closed.Load() {
		var zero V
		return zero, false
	}
	n := m.data.get(k)
	if n == nil {
		m.metrics.Miss()
		var zero V
		return zero, false
	}
	m.metrics.Hit()
	m.afterRead(n)
	return n.Value(), true
}

// GetQuietly returns the value for k without touching the policy or metrics.
func (m *boundedMap[K, V]) GetQuietly(k K) (V, bool) {
	if m.closed.Load() {
		var zero V
		return zero, false
	}
	if n := m.data.get(k); n != nil {
		return n.Value(), true
	}
	var zero V
	return zero, false
}

// ContainsKey reports whether k is mapped.
func (m *boundedMap[K, V]) ContainsKey(k K) bool {
	return !m.closed.Load() && m.data.get(k) != nil
}

// ContainsValue scans the table for v.
func (m *boundedMap[K, V]) ContainsValue(v V) bool {
	requireValue(v)
	found := false
	m.data.each(func(n *node[K, V]) bool {
		if util.Equal(n.Value(), v) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Put maps k to v and returns the previous value.
func (m *boundedMap[K, V]) Put(k K, v V) (V, bool) {
	return m.put(k, v, false)
}

// PutIfAbsent maps k to v only when k is absent.
func (m *boundedMap[K, V]) PutIfAbsent(k K, v V) (V, bool) {
	return m.put(k, v, true)
}

// put inserts or (unless onlyIfAbsent) updates an entry. An update that
// races with a removal retries against the table until one side wins.
func (m *boundedMap[K, V]) put(k K, v V, onlyIfAbsent bool) (V, bool) {
	var zero V
	requireKey(k)
	requireValue(v)
	if m.closed.Load() {
		return zero, false
	}

	w := m.weigh(k, v)
	wv := &weightedValue[V]{value: v, weight: w, state: alive}
	n := newNode(k, wv)

	for {
		prior := m.data.putIfAbsent(k, n)
		if prior == nil {
			m.afterWrite(task[K, V]{kind: addTask, node: n, weight: w})
			return zero, false
		}
		if onlyIfAbsent {
			m.afterRead(prior)
			return prior.Value(), true
		}
		for {
			old := prior.wv.Load()
			if !old.alive() {
				break // being removed: retry the table insert
			}
			if prior.wv.CompareAndSwap(old, wv) {
				m.afterUpdate(prior, w-old.weight)
				return old.value, true
			}
		}
	}
}

// ComputeIfAbsent returns the value for k, computing it under the table
// shard lock when absent.
func (m *boundedMap[K, V]) ComputeIfAbsent(k K, fn func(K) (V, bool)) (V, bool) {
	var zero V
	requireKey(k)
	if m.closed.Load() {
		return zero, false
	}
	if n := m.data.get(k); n != nil {
		m.afterRead(n)
		return n.Value(), true
	}

	var weight int
	n, created := m.data.computeIfAbsent(k, func() *node[K, V] {
		v, ok := fn(k)
		if !ok {
			return nil
		}
		requireValue(v)
		weight = m.weigh(k, v)
		return newNode(k, &weightedValue[V]{value: v, weight: weight, state: alive})
	})
	if n == nil {
		return zero, false
	}
	if created {
		m.afterWrite(task[K, V]{kind: addTask, node: n, weight: weight})
	} else {
		m.afterRead(n)
	}
	return n.Value(), true
}

// GetOrLoad returns the value for k; on miss it loads via the configured
// loader, coalescing concurrent loads for the same key.
func (m *boundedMap[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	if v, ok := m.Get(k); ok {
		return v, nil
	}
	if m.loader == nil {
		var zero V
		return zero, ErrNoLoader
	}

	v, err, _ := m.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := m.GetQuietly(k); ok {
			return v, nil
		}
		v, err := m.loader(ctx, k)
		if err != nil {
			return v, err
		}
		if prior, ok := m.PutIfAbsent(k, v); ok {
			return prior, nil
		}
		return v, nil
	})
	return v, err
}

// Replace maps k to v only if k is mapped.
func (m *boundedMap[K, V]) Replace(k K, v V) (V, bool) {
	var zero V
	requireKey(k)
	requireValue(v)
	if m.closed.Load() {
		return zero, false
	}

	n := m.data.get(k)
	if n == nil {
		return zero, false
	}
	w := m.weigh(k, v)
	wv := &weightedValue[V]{value: v, weight: w, state: alive}
	for {
		old := n.wv.Load()
		if !old.alive() {
			return zero, false
		}
		if n.wv.CompareAndSwap(old, wv) {
			m.afterUpdate(n, w-old.weight)
			return old.value, true
		}
	}
}

// ReplaceIf maps k to newV only if k is mapped to oldV.
func (m *boundedMap[K, V]) ReplaceIf(k K, oldV, newV V) bool {
	requireKey(k)
	requireValue(oldV)
	requireValue(newV)
	if m.closed.Load() {
		return false
	}

	n := m.data.get(k)
	if n == nil {
		return false
	}
	w := m.weigh(k, newV)
	wv := &weightedValue[V]{value: newV, weight: w, state: alive}
	for {
		old := n.wv.Load()
		if !old.alive() || !util.Equal(old.value, oldV) {
			return false
		}
		if n.wv.CompareAndSwap(old, wv) {
			m.afterUpdate(n, w-old.weight)
			return true
		}
	}
}

// Remove deletes k. The node is retired right away and unlinked from the
// deque by a deferred removal task.
func (m *boundedMap[K, V]) Remove(k K) (V, bool) {
	var zero V
	requireKey(k)
	if m.closed.Load() {
		return zero, false
	}
	n := m.data.remove(k)
	if n == nil {
		return zero, false
	}
	n.retire()
	m.afterWrite(task[K, V]{kind: removalTask, node: n})
	return n.Value(), true
}

// RemoveIf deletes k only if it maps to v.
func (m *boundedMap[K, V]) RemoveIf(k K, v V) bool {
	requireKey(k)
	requireValue(v)
	if m.closed.Load() {
		return false
	}
	n := m.data.get(k)
	if n == nil {
		return false
	}
	for {
		cur := n.wv.Load()
		if !cur.alive() || !util.Equal(cur.value, v) {
			return false
		}
		if n.tryRetire(cur) {
			if m.data.removeIf(k, n) {
				m.afterWrite(task[K, V]{kind: removalTask, node: n})
				return true
			}
			return false
		}
	}
}

// Clear unlinks and kills every resident node, then runs the pending write
// tasks so concurrent inserts are still accounted for. Evictions those
// tasks trigger are delivered before Clear returns.
func (m *boundedMap[K, V]) Clear() {
	cleared := func() int {
		m.evictionLock.Lock()
		defer m.evictionLock.Unlock()

		cleared := 0
		for n := m.deque.tail; n != nil; n = m.deque.tail {
			m.deque.remove(n)
			m.data.removeIf(n.key, n)
			m.weightedSize.Add(-int64(n.kill()))
			cleared++
		}
		m.pol = m.policyFactory.New(dequeHooks[K, V]{d: &m.deque})
		for i := range m.readBuffers {
			m.readBuffers[i].reset()
		}
		m.flushWriteBuffer()
		return cleared
	}()
	m.logger.Debug("cache cleared", "entries", cleared)
	m.metrics.Size(m.data.len(), m.WeightedSize())
	m.notifier.deliver()
}

// Len returns the number of mapped entries.
func (m *boundedMap[K, V]) Len() int { return m.data.len() }

// IsEmpty reports whether no entry is mapped.
func (m *boundedMap[K, V]) IsEmpty() bool { return m.data.len() == 0 }

// WeightedSize returns the weighted size seen by the policy.
func (m *boundedMap[K, V]) WeightedSize() int64 {
	return max(0, m.weightedSize.Load())
}

// Capacity returns the maximum weighted size.
func (m *boundedMap[K, V]) Capacity() int64 { return m.capacity.Load() }

// SetCapacity changes the bound and evicts until it holds.
func (m *boundedMap[K, V]) SetCapacity(capacity int64) error {
	if capacity < 0 {
		return ErrNegativeCapacity
	}
	func() {
		m.evictionLock.Lock()
		defer m.evictionLock.Unlock()
		m.capacity.Store(min(capacity, MaximumCapacity))
		m.drainBuffers()
		m.flushWriteBuffer()
		m.evict()
	}()
	m.logger.Debug("cache capacity changed", "capacity", capacity, "weighted_size", m.WeightedSize())
	m.notifier.deliver()
	return nil
}

// All iterates over a per-shard snapshot of the live entries.
func (m *boundedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.data.each(func(n *node[K, V]) bool {
			wv := n.wv.Load()
			if !wv.alive() {
				return true
			}
			return yield(n.key, wv.value)
		})
	}
}

// Keys iterates over the live keys.
func (m *boundedMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// AscendingKeys returns keys in eviction order (next victim first).
func (m *boundedMap[K, V]) AscendingKeys(limit int) []K {
	return entryKeys(m.ordered(true, limit))
}

// DescendingKeys returns keys in retention order (MRU first).
func (m *boundedMap[K, V]) DescendingKeys(limit int) []K {
	return entryKeys(m.ordered(false, limit))
}

// AscendingEntries returns entries in eviction order.
func (m *boundedMap[K, V]) AscendingEntries(limit int) []Entry[K, V] {
	return m.ordered(true, limit)
}

// DescendingEntries returns entries in retention order.
func (m *boundedMap[K, V]) DescendingEntries(limit int) []Entry[K, V] {
	return m.ordered(false, limit)
}

// Close marks the map as closed. Future operations are ignored.
func (m *boundedMap[K, V]) Close() error {
	m.closed.Store(true)
	return nil
}

// ---- ordered snapshots ----

// ordered drains the buffers so the snapshot reflects every recorded access,
// then walks the deque from the requested end.
func (m *boundedMap[K, V]) ordered(ascending bool, limit int) []Entry[K, V] {
	out := m.snapshot(ascending, limit)
	m.notifier.deliver()
	return out
}

func (m *boundedMap[K, V]) snapshot(ascending bool, limit int) []Entry[K, V] {
	m.evictionLock.Lock()
	defer m.evictionLock.Unlock()
	m.drainBuffers()
	m.flushWriteBuffer()

	size := m.deque.len
	if limit > 0 && limit < size {
		size = limit
	}
	out := make([]Entry[K, V], 0, size)
	n := m.deque.head
	if ascending {
		n = m.deque.tail
	}
	for n != nil && len(out) < size {
		out = append(out, Entry[K, V]{Key: n.key, Value: n.Value()})
		if ascending {
			n = n.prev
		} else {
			n = n.next
		}
	}
	return out
}

func entryKeys[K comparable, V any](es []Entry[K, V]) []K {
	keys := make([]K, len(es))
	for i, e := range es {
		keys[i] = e.Key
	}
	return keys
}

// ---- helpers ----

// weigh runs the weigher and enforces its contract.
func (m *boundedMap[K, V]) weigh(k K, v V) int {
	w := m.weigher.WeightOf(k, v)
	if w < 1 {
		panic(ErrInvalidWeight)
	}
	return w
}

func requireKey[K comparable](k K) {
	if util.IsNil(k) {
		panic(ErrNilKey)
	}
}

func requireValue[V any](v V) {
	if util.IsNil(v) {
		panic(ErrNilValue)
	}
}
