package inject

import (
	"iter"
	"reflect"
	"slices"
)

// Qualifier narrows the candidates for a requested bean type. Reduce must
// make a single pass over candidates, never mutate them, and be safe to
// run concurrently on independent sequences. Equality is value-based so
// qualifiers can key resolution caches.
type Qualifier interface {
	Reduce(beanType reflect.Type, candidates iter.Seq[BeanType]) iter.Seq[BeanType]
	// Contains reports whether q is this qualifier or one of its parts.
	Contains(q Qualifier) bool
	Equal(q Qualifier) bool
	String() string
}

// Filter collects q's reduction of candidates. A nil q keeps everything.
func Filter(q Qualifier, beanType reflect.Type, candidates []BeanType) []BeanType {
	RequireNonNil("bean type", beanType)
	if q == nil {
		return slices.Clone(candidates)
	}
	return slices.Collect(q.Reduce(beanType, slices.Values(candidates)))
}

// Key identifies a (bean type, qualifier) lookup. Kind is the dynamic
// type of the qualifier, so qualifiers of different kinds never share a
// key even when they print alike. Distinct qualifiers of one kind may
// still collide; callers caching by Key must confirm Equal on a hit.
type Key struct {
	Type      reflect.Type
	Kind      reflect.Type
	Qualifier string
}

// QualifierKey returns the cache key of a lookup. Equal qualifiers
// produce equal keys.
func QualifierKey(beanType reflect.Type, q Qualifier) Key {
	k := Key{Type: beanType}
	if q != nil {
		k.Kind = reflect.TypeOf(q)
		k.Qualifier = q.String()
	}
	return k
}

func (k Key) String() string {
	if k.Qualifier == "" {
		return TypeName(k.Type)
	}
	return TypeName(k.Type) + " " + k.Qualifier
}

// SameQualifier reports whether a and b select the same candidates: both
// nil, or both non-nil and Equal.
func SameQualifier(a, b Qualifier) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
