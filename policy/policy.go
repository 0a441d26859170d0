// Package policy defines the eviction-order strategies that drive the
// bounded map's eviction deque.
package policy

// Node is the minimal contract an entry must satisfy for a policy.
// Policies only need the key and node identity.
type Node[K comparable, V any] interface {
	Key() K
	Value() V
}

// Hooks expose O(1) operations on the map's intrusive eviction deque
// (head = most recently used, tail = least recently used).
//
// Concurrency: all hook calls happen under the map's eviction lock.
// Hooks manage only the deque; the map owns its hash table.
type Hooks[K comparable, V any] interface {
	// MoveToFront promotes the node to MRU.
	MoveToFront(Node[K, V])
	// PushFront links a new node at MRU.
	PushFront(Node[K, V])
	// Remove unlinks the node from the deque.
	Remove(Node[K, V])
	// Back returns the current LRU node (or nil if empty).
	Back() Node[K, V]
	// Contains reports whether the node is linked into the deque.
	Contains(Node[K, V]) bool
	// Len returns the number of linked nodes.
	Len() int
}

// EvictionPolicy is a map-local policy instance bound to deque hooks.
// All methods are invoked under the eviction lock while buffers drain.
//
// Semantics:
//   - OnAdd links a node that just became resident.
//   - OnGet/OnUpdate record an access; they are only called for linked nodes.
//   - OnRemove is a notification issued before the map unlinks the node
//     (explicit removal or eviction) so the policy can update its own state.
//   - Victim names the next node to evict while the map is over capacity.
type EvictionPolicy[K comparable, V any] interface {
	OnAdd(Node[K, V])
	OnGet(Node[K, V])
	OnUpdate(Node[K, V])
	OnRemove(Node[K, V])
	Victim() Node[K, V]
}

// Policy is a factory that binds a policy instance to a map's deque hooks.
type Policy[K comparable, V any] interface {
	New(Hooks[K, V]) EvictionPolicy[K, V]
}
