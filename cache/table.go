package cache

import (
	"sync"

	"github.com/IvanBrykalov/beancore/internal/util"
)

// table is the lock-striped hash table backing the map. Each key lives in
// exactly one shard, so per-key operations are linearizable.
type table[K comparable, V any] struct {
	shards []tableShard[K, V]
}

// tableShard is an independent partition with its own lock and map.
type tableShard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]*node[K, V]
	_  util.CacheLinePad
}

func newTable[K comparable, V any](initialCapacity, concurrencyLevel int) *table[K, V] {
	n := util.ReasonableShardCount(concurrencyLevel)
	per := (initialCapacity + n - 1) / n // split evenly (ceil)
	t := &table[K, V]{shards: make([]tableShard[K, V], n)}
	for i := range t.shards {
		t.shards[i].m = make(map[K]*node[K, V], per)
	}
	return t
}

func (t *table[K, V]) shard(k K) *tableShard[K, V] {
	return &t.shards[util.ShardIndex(util.Hash(k), len(t.shards))]
}

func (t *table[K, V]) get(k K) *node[K, V] {
	s := t.shard(k)
	s.mu.RLock()
	n := s.m[k]
	s.mu.RUnlock()
	return n
}

// putIfAbsent stores n unless k is mapped; it returns the existing node or nil.
func (t *table[K, V]) putIfAbsent(k K, n *node[K, V]) *node[K, V] {
	s := t.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.m[k]; ok {
		return prior
	}
	s.m[k] = n
	return nil
}

// computeIfAbsent returns the node for k, creating it with fn under the
// shard lock when absent. A nil result from fn leaves k unmapped.
func (t *table[K, V]) computeIfAbsent(k K, fn func() *node[K, V]) (n *node[K, V], created bool) {
	s := t.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.m[k]; ok {
		return prior, false
	}
	n = fn()
	if n == nil {
		return nil, false
	}
	s.m[k] = n
	return n, true
}

// remove deletes k and returns the node it mapped to.
func (t *table[K, V]) remove(k K) *node[K, V] {
	s := t.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.m[k]
	if !ok {
		return nil
	}
	delete(s.m, k)
	return n
}

// removeIf deletes k only if it still maps to n.
func (t *table[K, V]) removeIf(k K, n *node[K, V]) bool {
	s := t.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m[k] != n {
		return false
	}
	delete(s.m, k)
	return true
}

func (t *table[K, V]) len() int {
	total := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		total += len(s.m)
		s.mu.RUnlock()
	}
	return total
}

// each calls fn for a per-shard snapshot of the nodes until fn returns false.
// Shards are not locked while fn runs.
func (t *table[K, V]) each(fn func(n *node[K, V]) bool) {
	var buf []*node[K, V]
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		buf = buf[:0]
		for _, n := range s.m {
			buf = append(buf, n)
		}
		s.mu.RUnlock()
		for _, n := range buf {
			if !fn(n) {
				return
			}
		}
	}
}
