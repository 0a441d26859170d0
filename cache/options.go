package cache

import (
	"context"
	"errors"
	"math"

	"github.com/charmbracelet/log"

	"github.com/IvanBrykalov/beancore/policy"
)

// MaximumCapacity is the largest weighted capacity a map accepts;
// larger values are clamped.
const MaximumCapacity int64 = math.MaxInt64 - math.MaxInt32

var (
	// ErrNoLoader is returned by GetOrLoad when no Loader was configured.
	ErrNoLoader = errors.New("cache: no Loader provided")
	// ErrCapacityNotSet is returned by Builder.Build when no maximum
	// weighted capacity was given.
	ErrCapacityNotSet = errors.New("cache: maximum weighted capacity not set")
	// ErrNegativeCapacity is returned for a capacity below zero.
	ErrNegativeCapacity = errors.New("cache: capacity must not be negative")
	// ErrInvalidConcurrency is returned for a non-positive concurrency level.
	ErrInvalidConcurrency = errors.New("cache: concurrency level must be positive")
	// ErrInvalidInitialCapacity is returned for a negative initial capacity.
	ErrInvalidInitialCapacity = errors.New("cache: initial capacity must not be negative")

	// ErrNilKey is the panic value for a nil key.
	ErrNilKey = errors.New("cache: nil key")
	// ErrNilValue is the panic value for a nil value.
	ErrNilValue = errors.New("cache: nil value")
	// ErrInvalidWeight is the panic value for a weigher returning < 1.
	ErrInvalidWeight = errors.New("cache: weight must be at least 1")
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity means the least recently used entry was removed because the
	// weighted size exceeded the capacity.
	EvictCapacity EvictReason = iota
	// EvictPolicy means the policy picked a victim other than the LRU entry
	// (e.g. a 2Q probation entry) to restore the capacity bound.
	EvictPolicy
)

func (r EvictReason) String() string {
	switch r {
	case EvictPolicy:
		return "policy"
	default:
		return "capacity"
	}
}

// Metrics exposes map-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int, weightedSize int64)
}

// Options configures a Map. Zero values are safe except Capacity;
// defaults are applied in New():
//   - nil Policy   => LRU
//   - nil Weigher  => every entry weighs 1
//   - nil Metrics  => NoopMetrics
//   - nil OnEvict  => notifications are discarded without being queued
//   - nil Logger   => nothing is logged
type Options[K comparable, V any] struct {
	// Capacity is the maximum total weight of resident entries.
	Capacity int64

	// InitialCapacity pre-sizes the hash table.
	InitialCapacity int

	// ConcurrencyLevel is the expected number of concurrently updating
	// goroutines; it sizes the lock-striped table. 0 => auto.
	ConcurrencyLevel int

	// Policy is a pluggable eviction policy (LRU/2Q); nil => LRU.
	Policy policy.Policy[K, V]

	// Weigher measures an entry. It must return at least 1.
	Weigher EntryWeigher[K, V]

	// Loader fetches a value on a miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called for every capacity eviction, on the goroutine whose
	// operation triggered the drain, after the eviction lock is released.
	// A panicking listener propagates to that caller; keep it fast or hand
	// the work to another goroutine.
	OnEvict func(k K, v V, reason EvictReason)

	// Metrics receives hit/miss/evict/size signals.
	Metrics Metrics

	// Logger receives debug records about capacity changes and clears.
	Logger *log.Logger
}

// Builder assembles Options fluently and validates them on Build.
type Builder[K comparable, V any] struct {
	opt         Options[K, V]
	capacitySet bool
	err         error
}

// NewBuilder returns an empty builder.
func NewBuilder[K comparable, V any]() *Builder[K, V] {
	return &Builder[K, V]{}
}

func (b *Builder[K, V]) fail(err error) *Builder[K, V] {
	if b.err == nil {
		b.err = err
	}
	return b
}

// InitialCapacity pre-sizes the hash table.
func (b *Builder[K, V]) InitialCapacity(n int) *Builder[K, V] {
	if n < 0 {
		return b.fail(ErrInvalidInitialCapacity)
	}
	b.opt.InitialCapacity = n
	return b
}

// MaximumWeightedCapacity sets the weighted capacity. Zero is allowed and
// evicts every entry as soon as it is added.
func (b *Builder[K, V]) MaximumWeightedCapacity(capacity int64) *Builder[K, V] {
	if capacity < 0 {
		return b.fail(ErrNegativeCapacity)
	}
	b.opt.Capacity = capacity
	b.capacitySet = true
	return b
}

// ConcurrencyLevel sizes the lock-striped table.
func (b *Builder[K, V]) ConcurrencyLevel(level int) *Builder[K, V] {
	if level <= 0 {
		return b.fail(ErrInvalidConcurrency)
	}
	b.opt.ConcurrencyLevel = level
	return b
}

// Weigher sets a value-only weigher.
func (b *Builder[K, V]) Weigher(w Weigher[V]) *Builder[K, V] {
	b.opt.Weigher = AsEntryWeigher[K](w)
	return b
}

// EntryWeigher sets a weigher that sees both key and value.
func (b *Builder[K, V]) EntryWeigher(w EntryWeigher[K, V]) *Builder[K, V] {
	b.opt.Weigher = w
	return b
}

// Listener sets the eviction listener.
func (b *Builder[K, V]) Listener(fn func(k K, v V, reason EvictReason)) *Builder[K, V] {
	b.opt.OnEvict = fn
	return b
}

// Policy sets the eviction policy.
func (b *Builder[K, V]) Policy(p policy.Policy[K, V]) *Builder[K, V] {
	b.opt.Policy = p
	return b
}

// Metrics sets the metrics sink.
func (b *Builder[K, V]) Metrics(m Metrics) *Builder[K, V] {
	b.opt.Metrics = m
	return b
}

// Loader sets the GetOrLoad loader.
func (b *Builder[K, V]) Loader(fn func(ctx context.Context, k K) (V, error)) *Builder[K, V] {
	b.opt.Loader = fn
	return b
}

// Logger sets the debug logger.
func (b *Builder[K, V]) Logger(l *log.Logger) *Builder[K, V] {
	b.opt.Logger = l
	return b
}

// Build validates the configuration and constructs the map.
func (b *Builder[K, V]) Build() (Map[K, V], error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.capacitySet {
		return nil, ErrCapacityNotSet
	}
	return newMap(b.opt), nil
}
