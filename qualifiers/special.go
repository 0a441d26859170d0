package qualifiers

import (
	"iter"
	"reflect"
	"slices"
	"strings"

	"github.com/IvanBrykalov/beancore/annotation"
	"github.com/IvanBrykalov/beancore/inject"
)

type anyQualifier struct{}

// Any accepts every candidate.
func Any() inject.Qualifier { return anyQualifier{} }

func (anyQualifier) DoesQualify(reflect.Type, inject.BeanType) bool { return true }

func (anyQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	checkArgs(beanType, candidates)
	return candidates
}

func (q anyQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (anyQualifier) Equal(o inject.Qualifier) bool {
	_, ok := o.(anyQualifier)
	return ok
}

func (anyQualifier) String() string { return "@Any" }

type noneQualifier struct{}

// None accepts unqualified candidates: those without a declared
// Qualifier stereotype or Named annotation, and those marked Default.
// Candidates declaring Any never match.
func None() inject.Qualifier { return noneQualifier{} }

func (noneQualifier) DoesQualify(_ reflect.Type, c inject.BeanType) bool {
	md := c.AnnotationMetadata()
	if md.HasDeclaredAnnotation(annotation.Any) {
		return false
	}
	if md.HasDeclaredAnnotation(annotation.Default) {
		return true
	}
	return !md.HasDeclaredStereotype(annotation.Qualifier) && !md.HasDeclaredAnnotation(annotation.Named)
}

func (q noneQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	return filter(q, beanType, candidates)
}

func (q noneQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (noneQualifier) Equal(o inject.Qualifier) bool {
	_, ok := o.(noneQualifier)
	return ok
}

func (noneQualifier) String() string { return "None" }

type primaryQualifier struct{}

// Primary accepts primary candidates.
func Primary() inject.Qualifier { return primaryQualifier{} }

func (primaryQualifier) DoesQualify(beanType reflect.Type, c inject.BeanType) bool {
	if !matchType(beanType, c) {
		return false
	}
	return matchAny(c) || c.IsPrimary() || c.AnnotationMetadata().HasDeclaredStereotype(annotation.Primary)
}

func (q primaryQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	return filter(q, beanType, candidates)
}

func (q primaryQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (primaryQualifier) Equal(o inject.Qualifier) bool {
	_, ok := o.(primaryQualifier)
	return ok
}

func (primaryQualifier) String() string { return "@Primary" }

type typeQualifier struct {
	types []reflect.Type
}

// ByType accepts candidates injectable as the bean type whose type is
// assignable to one of types.
func ByType(types ...reflect.Type) inject.Qualifier {
	for _, t := range types {
		inject.RequireNonNil("type", t)
	}
	return typeQualifier{types: slices.Clone(types)}
}

func (q typeQualifier) DoesQualify(beanType reflect.Type, c inject.BeanType) bool {
	if !matchType(beanType, c) {
		return false
	}
	if matchAny(c) {
		return true
	}
	for _, t := range q.types {
		if inject.IsAssignable(t, c.Type()) {
			return true
		}
	}
	return false
}

func (q typeQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	return filter(q, beanType, candidates)
}

func (q typeQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (q typeQualifier) Equal(o inject.Qualifier) bool {
	other, ok := o.(typeQualifier)
	return ok && slices.Equal(other.types, q.types)
}

func (q typeQualifier) String() string {
	return "@Type(" + strings.Join(typeNames(q.types), ", ") + ")"
}
