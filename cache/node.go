package cache

import "sync/atomic"

// state is the lifecycle of an entry.
type state uint8

const (
	// alive: mapped in the table and (once its add task ran) linked in the deque.
	alive state = iota
	// retired: removed from the table, still waiting for deque removal.
	retired
	// dead: removed from both; its weight no longer counts.
	dead
)

// weightedValue is an immutable (value, weight, state) triple. Transitions
// swap the whole triple with a CAS on node.wv.
type weightedValue[V any] struct {
	value  V
	weight int
	state  state
}

func (w *weightedValue[V]) alive() bool { return w.state == alive }

// node is an entry owned by the table and, while resident, linked into the
// eviction deque. prev/next are guarded by the eviction lock.
type node[K comparable, V any] struct {
	key K
	wv  atomic.Pointer[weightedValue[V]]

	// Intrusive deque links: head is MRU, tail is LRU.
	prev *node[K, V]
	next *node[K, V]
}

func newNode[K comparable, V any](k K, wv *weightedValue[V]) *node[K, V] {
	n := &node[K, V]{key: k}
	n.wv.Store(wv)
	return n
}

// Key returns the node key (part of policy.Node interface).
func (n *node[K, V]) Key() K { return n.key }

// Value returns the current value (part of policy.Node interface).
func (n *node[K, V]) Value() V { return n.wv.Load().value }

// retire moves an alive node to retired. It returns false if the node was
// already retired or dead.
func (n *node[K, V]) retire() bool {
	for {
		cur := n.wv.Load()
		if !cur.alive() {
			return false
		}
		next := &weightedValue[V]{value: cur.value, weight: cur.weight, state: retired}
		if n.wv.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// tryRetire retires the node only if its current triple is still expect.
func (n *node[K, V]) tryRetire(expect *weightedValue[V]) bool {
	if !expect.alive() {
		return false
	}
	next := &weightedValue[V]{value: expect.value, weight: expect.weight, state: retired}
	return n.wv.CompareAndSwap(expect, next)
}

// kill moves the node to dead and returns the weight it released
// (0 if it was already dead).
func (n *node[K, V]) kill() int {
	for {
		cur := n.wv.Load()
		if cur.state == dead {
			return 0
		}
		next := &weightedValue[V]{value: cur.value, weight: cur.weight, state: dead}
		if n.wv.CompareAndSwap(cur, next) {
			return cur.weight
		}
	}
}
