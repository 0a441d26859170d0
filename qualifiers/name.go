package qualifiers

import (
	"iter"
	"reflect"
	"strings"

	"github.com/IvanBrykalov/beancore/annotation"
	"github.com/IvanBrykalov/beancore/inject"
)

type nameQualifier struct {
	name string
}

// ByName qualifies candidates by bean name, case-insensitively. A
// candidate's name is its declared Named value, else the name it resolves
// itself, else its simple type name. The name also matches when it is
// the qualifier name followed by the bean type's simple name, so "primary"
// finds "PrimaryDataSource" for a DataSource.
func ByName(name string) inject.Qualifier {
	requireName("name", name)
	return nameQualifier{name: name}
}

// CandidateName resolves the bean name ByName matches against.
func CandidateName(c inject.BeanType) string {
	if v, ok := c.AnnotationMetadata().FindDeclaredAnnotation(annotation.Named); ok {
		if s, ok := v.StringValue(annotation.ValueMember); ok && s != "" {
			return s
		}
	}
	if r, ok := c.(inject.NameResolver); ok {
		if s, ok := r.ResolveName(); ok {
			return s
		}
	}
	return inject.SimpleName(c.Type())
}

func (q nameQualifier) DoesQualify(beanType reflect.Type, c inject.BeanType) bool {
	if !matchType(beanType, c) {
		return false
	}
	if matchAny(c) {
		return true
	}
	name := CandidateName(c)
	return strings.EqualFold(name, q.name) || strings.EqualFold(name, q.name+inject.SimpleName(beanType))
}

func (q nameQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	return filter(q, beanType, candidates)
}

func (q nameQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (q nameQualifier) Equal(o inject.Qualifier) bool {
	other, ok := o.(nameQualifier)
	return ok && other.name == q.name
}

func (q nameQualifier) String() string { return "@Named('" + q.name + "')" }

// FindName returns the name a ByName qualifier carries, looking inside
// composites.
func FindName(q inject.Qualifier) (string, bool) {
	switch v := q.(type) {
	case nameQualifier:
		return v.name, true
	case parted:
		for _, p := range v.parts() {
			if name, ok := FindName(p); ok {
				return name, true
			}
		}
	}
	return "", false
}
