// Package twoq implements the 2Q eviction policy.
package twoq

import (
	"container/list"

	"github.com/IvanBrykalov/beancore/policy"
)

// twoQ implements the 2Q eviction policy on top of the map's single deque.
//
// Resident queues:
//   - A1in (probation): its own list + index by Node; admits first-time keys
//   - Am   (protected): nodes not present in inIdx; ordering lives in the deque
//
// Ghost A1out: keys only, tracks recently evicted A1in keys so that a
// re-admitted key bypasses probation.
//
// Concurrency: all methods are called under the map's eviction lock.
type twoQ[K comparable, V any] struct {
	h policy.Hooks[K, V]

	capIn    int // A1in size before probation entries become preferred victims
	capGhost int // A1out (ghost) capacity

	// A1in: MRU at Front() -> LRU at Back()
	inList *list.List
	inIdx  map[policy.Node[K, V]]*list.Element

	// A1out (ghosts): keys only, MRU at Front() -> LRU at Back()
	ghostList *list.List
	ghostIdx  map[K]*list.Element
}

// New constructs a 2Q policy factory.
// Common choices: capIn ≈ 25% of capacity; capGhost ≈ 50–100% of capacity.
func New[K comparable, V any](capIn, capGhost int) policy.Policy[K, V] {
	if capIn < 1 {
		capIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return twoQPolicy[K, V]{capIn: capIn, capGhost: capGhost}
}

type twoQPolicy[K comparable, V any] struct {
	capIn    int
	capGhost int
}

func (p twoQPolicy[K, V]) New(h policy.Hooks[K, V]) policy.EvictionPolicy[K, V] {
	return &twoQ[K, V]{
		h:         h,
		capIn:     p.capIn,
		capGhost:  p.capGhost,
		inList:    list.New(),
		inIdx:     make(map[policy.Node[K, V]]*list.Element),
		ghostList: list.New(),
		ghostIdx:  make(map[K]*list.Element),
	}
}

// OnAdd admission rules:
//   - A key remembered in A1out skips probation and goes straight to Am.
//   - Otherwise the node enters A1in (and MRU of the deque).
func (q *twoQ[K, V]) OnAdd(n policy.Node[K, V]) {
	k := n.Key()
	q.h.PushFront(n)
	if ge, ok := q.ghostIdx[k]; ok {
		q.ghostList.Remove(ge)
		delete(q.ghostIdx, k)
		return
	}
	q.inIdx[n] = q.inList.PushFront(n)
}

// OnGet promotes an A1in node to Am and moves it to MRU.
func (q *twoQ[K, V]) OnGet(n policy.Node[K, V]) {
	if el, ok := q.inIdx[n]; ok {
		q.inList.Remove(el)
		delete(q.inIdx, n)
	}
	q.h.MoveToFront(n)
}

// OnUpdate follows OnGet semantics (updates count as recent use).
func (q *twoQ[K, V]) OnUpdate(n policy.Node[K, V]) { q.OnGet(n) }

// OnRemove remembers keys leaving A1in as ghosts, respecting capGhost.
// Removals from Am do not populate ghosts.
func (q *twoQ[K, V]) OnRemove(n policy.Node[K, V]) {
	el, ok := q.inIdx[n]
	if !ok {
		return
	}
	q.inList.Remove(el)
	delete(q.inIdx, n)

	k := n.Key()
	if old := q.ghostIdx[k]; old != nil {
		q.ghostList.Remove(old)
	}
	q.ghostIdx[k] = q.ghostList.PushFront(k)

	for q.ghostList.Len() > q.capGhost {
		tail := q.ghostList.Back()
		if tail == nil {
			break
		}
		delete(q.ghostIdx, tail.Value.(K))
		q.ghostList.Remove(tail)
	}
}

// Victim prefers the oldest probation entry once A1in is over its share,
// otherwise the deque's LRU end.
func (q *twoQ[K, V]) Victim() policy.Node[K, V] {
	if q.inList.Len() > q.capIn {
		if el := q.inList.Back(); el != nil {
			return el.Value.(policy.Node[K, V])
		}
	}
	return q.h.Back()
}
