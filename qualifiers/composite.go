package qualifiers

import (
	"iter"
	"reflect"
	"slices"
	"strings"

	"github.com/IvanBrykalov/beancore/inject"
)

// parted is implemented by the composite qualifiers.
type parted interface {
	parts() []inject.Qualifier
}

// ByQualifiers ANDs qs: the result is each qualifier's Reduce applied in
// order. Nil entries are skipped and nested composites are flattened.
// When every part is Filtering the composite is too, and reduces in one
// pass. No qualifiers yields Any.
func ByQualifiers(qs ...inject.Qualifier) inject.Qualifier {
	var flat []inject.Qualifier
	for _, q := range qs {
		switch v := q.(type) {
		case nil:
		case parted:
			flat = append(flat, v.parts()...)
		default:
			flat = append(flat, q)
		}
	}
	switch len(flat) {
	case 0:
		return Any()
	case 1:
		return flat[0]
	}

	fs := make([]Filtering, 0, len(flat))
	for _, q := range flat {
		f, ok := q.(Filtering)
		if !ok {
			return composite{qs: flat}
		}
		fs = append(fs, f)
	}
	return filteringComposite{fs: fs}
}

// Plus is ByQualifiers(a, b).
func Plus(a, b inject.Qualifier) inject.Qualifier { return ByQualifiers(a, b) }

type composite struct {
	qs []inject.Qualifier
}

func (c composite) parts() []inject.Qualifier { return c.qs }

func (c composite) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	checkArgs(beanType, candidates)
	for _, q := range c.qs {
		candidates = q.Reduce(beanType, candidates)
	}
	return candidates
}

func (c composite) Contains(o inject.Qualifier) bool { return containsPart(c.qs, o) }

func (c composite) Equal(o inject.Qualifier) bool { return equalParts(c.qs, o) }

func (c composite) String() string { return joinParts(c.qs) }

type filteringComposite struct {
	fs []Filtering
}

func (c filteringComposite) parts() []inject.Qualifier {
	out := make([]inject.Qualifier, len(c.fs))
	for i, f := range c.fs {
		out[i] = f
	}
	return out
}

func (c filteringComposite) DoesQualify(beanType reflect.Type, candidate inject.BeanType) bool {
	for _, f := range c.fs {
		if !f.DoesQualify(beanType, candidate) {
			return false
		}
	}
	return true
}

func (c filteringComposite) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	return filter(c, beanType, candidates)
}

func (c filteringComposite) Contains(o inject.Qualifier) bool { return containsPart(c.parts(), o) }

func (c filteringComposite) Equal(o inject.Qualifier) bool { return equalParts(c.parts(), o) }

func (c filteringComposite) String() string { return joinParts(c.parts()) }

// containsPart: a composite contains every part of another composite it
// contains, and a plain qualifier when some part contains it.
func containsPart(qs []inject.Qualifier, o inject.Qualifier) bool {
	if p, ok := o.(parted); ok {
		for _, q := range p.parts() {
			if !containsPart(qs, q) {
				return false
			}
		}
		return true
	}
	return slices.ContainsFunc(qs, func(q inject.Qualifier) bool { return q.Contains(o) })
}

func equalParts(qs []inject.Qualifier, o inject.Qualifier) bool {
	p, ok := o.(parted)
	if !ok {
		return false
	}
	return slices.EqualFunc(qs, p.parts(), inject.Qualifier.Equal)
}

func joinParts(qs []inject.Qualifier) string {
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = q.String()
	}
	return strings.Join(parts, " && ")
}
