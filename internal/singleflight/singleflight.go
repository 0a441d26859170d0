// Package singleflight coalesces concurrent loads of the same key.
package singleflight

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrLeaderPanicked is returned to followers whose leader's fn panicked.
// The leader itself re-panics with the original value.
var ErrLeaderPanicked = errors.New("singleflight: load panicked")

// Group coalesces concurrent function calls for the same key K so that
// the supplied fn is executed at most once per in-flight key. Other
// concurrent callers wait for the shared result.
//
// Cancelling ctx in a follower unblocks only that follower; it does not
// cancel the leader's fn. The zero value is ready to use.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
	dups int
}

// Do runs fn once for the given key. shared reports whether the result
// was handed to more than one caller.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (v V, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()

		select {
		case <-c.done:
			return c.val, c.err, true
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err(), true
		}
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)

	g.mu.Lock()
	shared = c.dups > 0
	g.mu.Unlock()
	return c.val, c.err, shared
}

// run executes fn, publishes the result and removes the in-flight marker,
// even when fn panics.
func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	normal := false
	defer func() {
		if !normal {
			r := recover()
			c.err = fmt.Errorf("%w: %v", ErrLeaderPanicked, r)
			g.finish(key, c)
			panic(r)
		}
		g.finish(key, c)
	}()
	c.val, c.err = fn()
	normal = true
}

func (g *Group[K, V]) finish(key K, c *call[V]) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
	close(c.done)
}
