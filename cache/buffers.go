package cache

import (
	"sync/atomic"

	"github.com/IvanBrykalov/beancore/internal/queue"
	"github.com/IvanBrykalov/beancore/internal/util"
)

const (
	// readBufferSize is the number of slots in each striped ring.
	readBufferSize = 128
	readBufferMask = readBufferSize - 1
	// readBufferThreshold is the number of pending reads that forces a drain.
	readBufferThreshold = 32
	// readBufferDrainThreshold caps the reads applied per stripe per drain.
	readBufferDrainThreshold = 2 * readBufferThreshold
	// writeBufferDrainThreshold caps the write tasks applied per drain.
	writeBufferDrainThreshold = 16
)

// Drain status values. Only the eviction lock holder moves the status to
// processing; writers move it to required.
const (
	// idle: no drain is taking place and none is pending.
	idle uint32 = iota
	// required: a write is waiting in the write buffer.
	required
	// processing: a drain is in progress.
	processing
)

// shouldDrain reports whether a caller should attempt a drain. delayable is
// true when the caller only has a few pending reads.
func shouldDrain(status uint32, delayable bool) bool {
	switch status {
	case idle:
		return !delayable
	case required:
		return true
	default:
		return false
	}
}

// readBuffer is a lossy ring of recently read nodes. Producers claim slots
// with an atomic counter; a full ring overwrites older slots, which only
// costs recency precision.
type readBuffer[K comparable, V any] struct {
	writeCount        util.PaddedAtomicInt64 // producers only
	drainAtWriteCount atomic.Int64
	readCount         util.PaddedInt64 // guarded by the eviction lock
	slots             [readBufferSize]atomic.Pointer[node[K, V]]
	_                 util.CacheLinePad
}

// record stores n and returns the write count observed before the store.
func (b *readBuffer[K, V]) record(n *node[K, V]) int64 {
	wc := b.writeCount.Add(1) - 1
	b.slots[wc&readBufferMask].Store(n)
	return wc
}

// pending is the number of reads recorded since the last drain.
func (b *readBuffer[K, V]) pending(writeCount int64) int64 {
	return writeCount - b.drainAtWriteCount.Load()
}

// drain applies up to readBufferDrainThreshold recorded reads.
// Requires the eviction lock.
func (b *readBuffer[K, V]) drain(apply func(*node[K, V])) {
	wc := b.writeCount.Load()
	for i := 0; i < readBufferDrainThreshold; i++ {
		slot := &b.slots[b.readCount.V&readBufferMask]
		n := slot.Swap(nil)
		if n == nil {
			break
		}
		apply(n)
		b.readCount.V++
	}
	b.drainAtWriteCount.Store(wc)
}

// reset drops every recorded read. Requires the eviction lock.
func (b *readBuffer[K, V]) reset() {
	for i := range b.slots {
		b.slots[i].Store(nil)
	}
	wc := b.writeCount.Load()
	b.readCount.V = wc
	b.drainAtWriteCount.Store(wc)
}

// stripeToken pins a read-buffer index to the P that last used it.
// sync.Pool keeps per-P caches, so a goroutine running on the same P
// keeps drawing the same token.
type stripeToken struct{ idx int }

// taskKind selects how a write task reorders the deque.
type taskKind uint8

const (
	addTask taskKind = iota
	updateTask
	removalTask
)

// task is a deferred deque update queued by a write. weight is the added
// weight for addTask and the weight difference for updateTask.
type task[K comparable, V any] struct {
	kind   taskKind
	node   *node[K, V]
	weight int
}

// notifier is the eviction-listener strategy chosen at construction.
type notifier[K comparable, V any] interface {
	// enqueue records an evicted node; called under the eviction lock.
	enqueue(n *node[K, V], reason EvictReason)
	// deliver runs pending notifications on the calling goroutine.
	deliver()
}

// discardingNotifier is used when no listener is configured.
type discardingNotifier[K comparable, V any] struct{}

func (discardingNotifier[K, V]) enqueue(*node[K, V], EvictReason) {}
func (discardingNotifier[K, V]) deliver()                         {}

type notification[K comparable, V any] struct {
	node   *node[K, V]
	reason EvictReason
}

// queuedNotifier hands evictions to the listener outside the lock.
type queuedNotifier[K comparable, V any] struct {
	pending  *queue.Queue[notification[K, V]]
	listener func(k K, v V, reason EvictReason)
}

func newQueuedNotifier[K comparable, V any](fn func(K, V, EvictReason)) *queuedNotifier[K, V] {
	return &queuedNotifier[K, V]{pending: queue.New[notification[K, V]](), listener: fn}
}

func (q *queuedNotifier[K, V]) enqueue(n *node[K, V], reason EvictReason) {
	q.pending.Push(notification[K, V]{node: n, reason: reason})
}

func (q *queuedNotifier[K, V]) deliver() {
	for {
		e, ok := q.pending.Pop()
		if !ok {
			return
		}
		q.listener(e.node.key, e.node.Value(), e.reason)
	}
}
