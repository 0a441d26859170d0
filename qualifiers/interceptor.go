package qualifiers

import (
	"iter"
	"reflect"
	"slices"
	"strings"

	"github.com/IvanBrykalov/beancore/annotation"
	"github.com/IvanBrykalov/beancore/inject"
)

type interceptorBindingQualifier struct {
	bindings []annotation.Value // sorted by String
}

// ByInterceptorBinding accepts interceptors bound to one of the
// InterceptorBinding values in md.
//
// A candidate matches when one of its own bindings names a requested
// annotation and, if the candidate's binding carries BindMembers, the
// requested binding carries structurally equal BindMembers.
func ByInterceptorBinding(md annotation.Metadata) inject.Qualifier {
	inject.RequireNonNil("annotation metadata", md)
	return newInterceptorBinding(md.AnnotationValuesByType(annotation.InterceptorBinding))
}

// ByInterceptorBindingNames is ByInterceptorBinding for bindings without
// members.
func ByInterceptorBindingNames(names ...string) inject.Qualifier {
	vs := make([]annotation.Value, 0, len(names))
	for _, n := range names {
		requireName("binding name", n)
		vs = append(vs, annotation.Of(annotation.InterceptorBinding).With(annotation.ValueMember, n))
	}
	return newInterceptorBinding(vs)
}

func newInterceptorBinding(vs []annotation.Value) interceptorBindingQualifier {
	vs = slices.Clone(vs)
	slices.SortStableFunc(vs, func(a, b annotation.Value) int {
		return strings.Compare(a.String(), b.String())
	})
	return interceptorBindingQualifier{bindings: vs}
}

func (q interceptorBindingQualifier) lookup(name string) []annotation.Value {
	var out []annotation.Value
	for _, b := range q.bindings {
		if n, _ := b.StringValue(annotation.ValueMember); n == name {
			out = append(out, b)
		}
	}
	return out
}

func (q interceptorBindingQualifier) DoesQualify(_ reflect.Type, c inject.BeanType) bool {
	if matchAny(c) {
		return true
	}
	for _, cb := range c.AnnotationMetadata().AnnotationValuesByType(annotation.InterceptorBinding) {
		name, ok := cb.StringValue(annotation.ValueMember)
		if !ok {
			continue
		}
		required, bound := cb.Annotation(annotation.BindMembers)
		for _, rb := range q.lookup(name) {
			if !bound {
				return true
			}
			if got, ok := rb.Annotation(annotation.BindMembers); ok && got.Equal(required) {
				return true
			}
		}
	}
	return false
}

func (q interceptorBindingQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	return filter(q, beanType, candidates)
}

func (q interceptorBindingQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (q interceptorBindingQualifier) Equal(o inject.Qualifier) bool {
	other, ok := o.(interceptorBindingQualifier)
	return ok && slices.EqualFunc(other.bindings, q.bindings, annotation.Value.Equal)
}

func (q interceptorBindingQualifier) String() string {
	parts := make([]string, len(q.bindings))
	for i, b := range q.bindings {
		n, _ := b.StringValue(annotation.ValueMember)
		parts[i] = n
		if m, ok := b.Annotation(annotation.BindMembers); ok {
			parts[i] += m.String()
		}
	}
	return "@InterceptorBinding(" + strings.Join(parts, ", ") + ")"
}
