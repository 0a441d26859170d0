// Package qualifiers narrows bean candidates for an injection point.
//
// Every qualifier is immutable, compares by value and reduces a
// candidate sequence lazily in a single pass (ByTypeArgumentsClosest and
// the variance qualifiers must see every candidate before yielding).
// Absence or ambiguity is not an error here: an empty or multi-element
// result is for the caller to judge.
package qualifiers

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/IvanBrykalov/beancore/annotation"
	"github.com/IvanBrykalov/beancore/inject"
)

// Filtering is a qualifier defined by a per-candidate predicate. Its
// Reduce keeps exactly the candidates DoesQualify accepts.
type Filtering interface {
	inject.Qualifier
	DoesQualify(beanType reflect.Type, candidate inject.BeanType) bool
}

func checkArgs(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) {
	inject.RequireNonNil("bean type", beanType)
	inject.RequireNonNil("candidates", candidates)
}

func requireName(what, name string) {
	if name == "" {
		panic(fmt.Errorf("%w: empty %s", inject.ErrNilArgument, what))
	}
}

// filter is the Reduce of every Filtering qualifier.
func filter(q Filtering, beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	checkArgs(beanType, candidates)
	return func(yield func(inject.BeanType) bool) {
		for c := range candidates {
			if q.DoesQualify(beanType, c) && !yield(c) {
				return
			}
		}
	}
}

// matchType holds when the candidate can be injected as beanType.
func matchType(beanType reflect.Type, c inject.BeanType) bool {
	return beanType == inject.ObjectType || c.IsContainerType() || inject.IsAssignable(beanType, c.Type())
}

// matchAny holds for candidates that declare Any; they satisfy every
// qualifier except None.
func matchAny(c inject.BeanType) bool {
	return c.AnnotationMetadata().HasDeclaredAnnotation(annotation.Any)
}

func typeNames(ts []reflect.Type) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = inject.TypeName(t)
	}
	return out
}
