package cache

import "github.com/IvanBrykalov/beancore/policy"

// deque is the intrusive eviction order (head=MRU, tail=LRU).
// Every method requires the eviction lock.
type deque[K comparable, V any] struct {
	head *node[K, V]
	tail *node[K, V]
	len  int
}

// contains reports whether n is linked.
func (d *deque[K, V]) contains(n *node[K, V]) bool {
	return n.prev != nil || n.next != nil || d.head == n
}

// pushFront links n at MRU in O(1).
func (d *deque[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.len++
}

// moveToFront promotes n to MRU in O(1).
func (d *deque[K, V]) moveToFront(n *node[K, V]) {
	if n == d.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if d.tail == n {
		d.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
}

// remove unlinks n in O(1). Unlinked nodes are ignored.
func (d *deque[K, V]) remove(n *node[K, V]) {
	if !d.contains(n) {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if d.head == n {
		d.head = n.next
	}
	if d.tail == n {
		d.tail = n.prev
	}
	n.prev, n.next = nil, nil
	d.len--
}

// dequeHooks adapts the deque to policy.Hooks.
type dequeHooks[K comparable, V any] struct{ d *deque[K, V] }

func (h dequeHooks[K, V]) MoveToFront(x policy.Node[K, V]) { h.d.moveToFront(x.(*node[K, V])) }
func (h dequeHooks[K, V]) PushFront(x policy.Node[K, V])   { h.d.pushFront(x.(*node[K, V])) }
func (h dequeHooks[K, V]) Remove(x policy.Node[K, V])      { h.d.remove(x.(*node[K, V])) }
func (h dequeHooks[K, V]) Contains(x policy.Node[K, V]) bool {
	return h.d.contains(x.(*node[K, V]))
}
func (h dequeHooks[K, V]) Len() int { return h.d.len }

// Back returns the LRU node. The nil check keeps a nil *node from turning
// into a non-nil interface.
func (h dequeHooks[K, V]) Back() policy.Node[K, V] {
	if h.d.tail == nil {
		return nil
	}
	return h.d.tail
}
