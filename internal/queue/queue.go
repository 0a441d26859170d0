// Package queue provides an unbounded lock-free FIFO queue used for the
// cache write buffer and the pending eviction notifications.
package queue

import "sync/atomic"

// Queue is a Michael-Scott linked queue. Any number of goroutines may
// Push and Pop concurrently. The zero value is not usable; call New.
type Queue[T any] struct {
	head atomic.Pointer[node[T]]
	tail atomic.Pointer[node[T]]
}

type node[T any] struct {
	val  T
	next atomic.Pointer[node[T]]
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	stub := &node[T]{}
	q.head.Store(stub)
	q.tail.Store(stub)
	return q
}

// Push appends v at the tail. It never blocks and never fails.
func (q *Queue[T]) Push(v T) {
	n := &node[T]{val: v}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			// tail is lagging: help it forward.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			return
		}
	}
}

// Pop removes and returns the head element.
// The boolean is false when the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if next == nil {
			var zero T
			return zero, false
		}
		if head == tail {
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		v := next.val
		if q.head.CompareAndSwap(head, next) {
			return v, true
		}
	}
}

// Empty reports whether the queue had no elements at the time of the call.
func (q *Queue[T]) Empty() bool {
	return q.head.Load().next.Load() == nil
}
