// Package registry resolves beans for injection points. It holds the
// registered definitions, narrows them with qualifiers and memoizes each
// (bean type, qualifier) resolution in a bounded cache.Map.
package registry

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/IvanBrykalov/beancore/cache"
	"github.com/IvanBrykalov/beancore/collections"
	"github.com/IvanBrykalov/beancore/inject"
	"github.com/IvanBrykalov/beancore/qualifiers"
)

// DefaultCapacity bounds the resolution cache when Options.Capacity is 0.
// Each entry weighs one plus its number of candidates.
const DefaultCapacity = 4_096

// typeIndexSize bounds the bean type index; it is a soft cache.
const typeIndexSize = 256

var (
	// ErrNoSuchBean is returned when no candidate satisfies a lookup.
	ErrNoSuchBean = errors.New("registry: no such bean")
	// ErrNonUniqueBean is returned when several candidates satisfy a lookup
	// and none or several of them are primary.
	ErrNonUniqueBean = errors.New("registry: multiple possible bean candidates")
)

// Options configures a Registry. The zero value is usable.
type Options struct {
	// Capacity is the weighted capacity of the resolution cache.
	Capacity int64
	// Metrics observes the resolution cache.
	Metrics cache.Metrics
	// Logger receives debug records; nil logs nothing.
	Logger *log.Logger
}

// snapshot is one generation of registered definitions. Cache keys carry
// the generation, so a resolution computed against an older snapshot can
// never be served after Register.
type snapshot struct {
	gen   uint64
	defs  []inject.BeanType
	names *collections.StringIntMap // exact bean name -> index of first def
}

type resolutionKey struct {
	inject.Key
	gen uint64
}

// resolution is one memoized lookup. The qualifier is kept so a hit can
// be confirmed with Equal: distinct qualifiers may share a resolutionKey.
type resolution struct {
	q     inject.Qualifier
	beans []inject.BeanType
}

// bucket holds the resolutions stored under one key, usually a single one.
type bucket []resolution

func (b bucket) lookup(q inject.Qualifier) ([]inject.BeanType, bool) {
	for _, r := range b {
		if inject.SameQualifier(r.q, q) {
			return r.beans, true
		}
	}
	return nil, false
}

func (b bucket) weight() int {
	w := 0
	for _, r := range b {
		w += 1 + len(r.beans)
	}
	return w
}

type typeKey struct {
	t   reflect.Type
	gen uint64
}

// Registry is safe for concurrent use. Lookups never block on Register.
type Registry struct {
	mu       sync.Mutex // serializes Register
	current  atomic.Pointer[snapshot]
	resolved cache.Map[resolutionKey, bucket]
	byType   *collections.CopyOnWriteMap[typeKey, []inject.BeanType]
	logger   *log.Logger
}

// New returns an empty registry.
func New(opt Options) *Registry {
	if opt.Capacity <= 0 {
		opt.Capacity = DefaultCapacity
	}
	if opt.Logger == nil {
		opt.Logger = log.New(io.Discard)
	}
	r := &Registry{
		resolved: cache.New(cache.Options[resolutionKey, bucket]{
			Capacity: opt.Capacity,
			Weigher: cache.EntryWeigherFunc[resolutionKey, bucket](func(_ resolutionKey, b bucket) int {
				return b.weight()
			}),
			Metrics: opt.Metrics,
			Logger:  opt.Logger,
		}),
		byType: collections.NewCopyOnWriteMap[typeKey, []inject.BeanType](typeIndexSize),
		logger: opt.Logger,
	}
	r.current.Store(&snapshot{names: collections.NewStringIntMap(0)})
	return r
}

// Register adds definitions and invalidates every memoized resolution.
func (r *Registry) Register(defs ...inject.BeanType) {
	for _, d := range defs {
		inject.RequireNonNil("bean definition", d)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current.Load()
	all := slices.Concat(prev.defs, defs)
	names := collections.NewStringIntMap(len(all))
	for i, d := range all {
		name := qualifiers.CandidateName(d)
		if names.Get(name, -1) < 0 {
			names.Put(name, i)
		}
	}
	r.current.Store(&snapshot{gen: prev.gen + 1, defs: all, names: names})
	r.resolved.Clear()
	r.byType.Clear()
	r.logger.Debug("registered beans", "added", len(defs), "total", len(all))
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int { return len(r.current.Load().defs) }

// Named returns the definition registered under exactly name, the first
// one when several share it.
func (r *Registry) Named(name string) (inject.BeanType, bool) {
	s := r.current.Load()
	if i := s.names.Get(name, -1); i >= 0 {
		return s.defs[i], true
	}
	return nil, false
}

// Candidates returns the definitions injectable as beanType that survive
// q, in registration order. A nil q keeps every injectable definition.
// The result is memoized until the next Register.
func (r *Registry) Candidates(beanType reflect.Type, q inject.Qualifier) []inject.BeanType {
	inject.RequireNonNil("bean type", beanType)
	s := r.current.Load()
	key := resolutionKey{Key: inject.QualifierKey(beanType, q), gen: s.gen}

	b, ok := r.resolved.Get(key)
	if !ok {
		b, _ = r.resolved.ComputeIfAbsent(key, func(resolutionKey) (bucket, bool) {
			return bucket{{q: q, beans: r.resolve(s, beanType, q)}}, true
		})
	}
	if v, hit := b.lookup(q); hit {
		return slices.Clone(v)
	}

	// Another qualifier owns the key; store this one beside it. A racing
	// writer may drop one of the two, which only costs a recomputation.
	v := r.resolve(s, beanType, q)
	r.resolved.Put(key, append(slices.Clone(b), resolution{q: q, beans: v}))
	r.logger.Debug("qualifier key shared", "key", key.String())
	return slices.Clone(v)
}

func (r *Registry) resolve(s *snapshot, beanType reflect.Type, q inject.Qualifier) []inject.BeanType {
	out := inject.Filter(q, beanType, r.assignable(s, beanType))
	if out == nil {
		out = []inject.BeanType{}
	}
	r.logger.Debug("resolved candidates", "lookup", describe(beanType, q), "candidates", len(out))
	return out
}

// assignable narrows the snapshot to definitions injectable as beanType.
func (r *Registry) assignable(s *snapshot, beanType reflect.Type) []inject.BeanType {
	key := typeKey{t: beanType, gen: s.gen}
	if v, ok := r.byType.Get(key); ok {
		return v
	}
	var out []inject.BeanType
	for _, d := range s.defs {
		if beanType == inject.ObjectType || d.IsContainerType() || inject.IsAssignable(beanType, d.Type()) {
			out = append(out, d)
		}
	}
	r.byType.PutIfAbsent(key, out)
	return out
}

// Find resolves exactly one bean. Several candidates are narrowed to the
// primary one; if that does not leave exactly one, ErrNonUniqueBean is
// returned.
func (r *Registry) Find(beanType reflect.Type, q inject.Qualifier) (inject.BeanType, error) {
	cands := r.Candidates(beanType, q)
	switch len(cands) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNoSuchBean, describe(beanType, q))
	case 1:
		return cands[0], nil
	}

	primary := slices.DeleteFunc(slices.Clone(cands), func(c inject.BeanType) bool { return !c.IsPrimary() })
	if len(primary) == 1 {
		return primary[0], nil
	}
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = fmt.Sprint(c)
	}
	return nil, fmt.Errorf("%w for %s: [%s]", ErrNonUniqueBean, describe(beanType, q), strings.Join(names, ", "))
}

// FindAll is Candidates reporting ErrNoSuchBean for an empty result.
func (r *Registry) FindAll(beanType reflect.Type, q inject.Qualifier) ([]inject.BeanType, error) {
	cands := r.Candidates(beanType, q)
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchBean, describe(beanType, q))
	}
	return cands, nil
}

// Close releases the resolution cache. The registry must not be used
// afterwards.
func (r *Registry) Close() error {
	return r.resolved.Close()
}

func describe(beanType reflect.Type, q inject.Qualifier) string {
	if q == nil {
		return inject.TypeName(beanType)
	}
	return inject.TypeName(beanType) + " " + q.String()
}
