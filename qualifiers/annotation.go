package qualifiers

import (
	"iter"
	"maps"
	"reflect"
	"slices"

	"github.com/IvanBrykalov/beancore/annotation"
	"github.com/IvanBrykalov/beancore/inject"
)

// ByAnnotation builds the qualifier an injection point's annotation
// stands for: Named becomes ByName, Type becomes ByType, Any and Primary
// their dedicated qualifiers, anything else ByAnnotationValue with the
// value found in md.
func ByAnnotation(md annotation.Metadata, name string) inject.Qualifier {
	inject.RequireNonNil("annotation metadata", md)
	requireName("annotation name", name)

	v, found := md.FindAnnotation(name)
	switch name {
	case annotation.Named:
		if s, ok := v.StringValue(annotation.ValueMember); ok && s != "" {
			return ByName(s)
		}
	case annotation.Type:
		if ts := v.Types(annotation.ValueMember); len(ts) > 0 {
			return ByType(ts...)
		}
	case annotation.Any:
		return Any()
	case annotation.Primary:
		return Primary()
	}
	if found {
		return ByAnnotationValue(v)
	}
	return ByAnnotationName(name)
}

type annotationValueQualifier struct {
	name       string
	binding    map[string]any
	nonBinding []string
}

// ByAnnotationValue qualifies candidates that declare the annotation (or
// carry it as a declared stereotype) with equal binding members. Members
// in v.NonBinding are ignored on both sides.
func ByAnnotationValue(v annotation.Value) inject.Qualifier {
	requireName("annotation name", v.Name)
	return annotationValueQualifier{
		name:       v.Name,
		binding:    maps.Clone(v.BindingMembers()),
		nonBinding: slices.Clone(v.NonBinding),
	}
}

// ByAnnotationName qualifies candidates that declare the annotation, by
// name only.
func ByAnnotationName(name string) inject.Qualifier {
	return ByAnnotationValue(annotation.Of(name))
}

func (q annotationValueQualifier) DoesQualify(beanType reflect.Type, c inject.BeanType) bool {
	if !matchType(beanType, c) {
		return false
	}
	if matchAny(c) {
		return true
	}
	md := c.AnnotationMetadata()
	if !md.HasDeclaredStereotype(q.name) {
		return false
	}
	if len(q.binding) == 0 {
		return true
	}
	cv, ok := md.FindDeclaredAnnotation(q.name)
	if !ok {
		return false
	}
	cv.NonBinding = append(slices.Clip(cv.NonBinding), q.nonBinding...)
	return annotation.MembersEqual(q.binding, cv.BindingMembers())
}

func (q annotationValueQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	return filter(q, beanType, candidates)
}

func (q annotationValueQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (q annotationValueQualifier) Equal(o inject.Qualifier) bool {
	other, ok := o.(annotationValueQualifier)
	return ok && other.name == q.name && annotation.MembersEqual(other.binding, q.binding)
}

func (q annotationValueQualifier) String() string {
	return annotation.Value{Name: q.name, Members: q.binding}.String()
}

type stereotypeQualifier struct {
	stereotype string
}

// ByStereotype qualifies candidates carrying the stereotype, declared or
// inherited, directly or through meta-annotations. Asking for Primary
// also accepts any primary candidate.
func ByStereotype(stereotype string) inject.Qualifier {
	requireName("stereotype", stereotype)
	return stereotypeQualifier{stereotype: stereotype}
}

func (q stereotypeQualifier) DoesQualify(beanType reflect.Type, c inject.BeanType) bool {
	if !matchType(beanType, c) {
		return false
	}
	if matchAny(c) || c.AnnotationMetadata().HasStereotype(q.stereotype) {
		return true
	}
	return q.stereotype == annotation.Primary && c.IsPrimary()
}

func (q stereotypeQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	return filter(q, beanType, candidates)
}

func (q stereotypeQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (q stereotypeQualifier) Equal(o inject.Qualifier) bool {
	other, ok := o.(stereotypeQualifier)
	return ok && other.stereotype == q.stereotype
}

func (q stereotypeQualifier) String() string { return "stereotype(@" + q.stereotype + ")" }
