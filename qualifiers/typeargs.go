package qualifiers

import (
	"iter"
	"reflect"
	"slices"
	"strings"

	"github.com/IvanBrykalov/beancore/inject"
)

type typeArgumentQualifier struct {
	types []reflect.Type
}

// ByTypeArguments accepts candidates whose type arguments for the bean
// type are compatible with types, position by position. A requested
// ObjectType matches anything; otherwise the candidate argument must be
// assignable from the requested one. Raw candidates (no arguments) match,
// and an argument count mismatch rejects. Candidates not injectable as the
// bean type never match.
func ByTypeArguments(types ...reflect.Type) inject.Qualifier {
	for _, t := range types {
		inject.RequireNonNil("type argument", t)
	}
	return typeArgumentQualifier{types: slices.Clone(types)}
}

func (q typeArgumentQualifier) DoesQualify(beanType reflect.Type, c inject.BeanType) bool {
	if !matchType(beanType, c) {
		return false
	}
	args, _ := inject.TypeArgumentsOf(c, beanType)
	return q.compatible(args)
}

func (q typeArgumentQualifier) compatible(args []inject.Argument) bool {
	if len(args) == 0 {
		return true
	}
	if len(args) != len(q.types) {
		return false
	}
	for i, want := range q.types {
		if want == inject.ObjectType {
			continue
		}
		if !inject.IsAssignable(args[i].Type, want) {
			return false
		}
	}
	return true
}

func (q typeArgumentQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	return filter(q, beanType, candidates)
}

func (q typeArgumentQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (q typeArgumentQualifier) Equal(o inject.Qualifier) bool {
	other, ok := o.(typeArgumentQualifier)
	return ok && slices.Equal(other.types, q.types)
}

func (q typeArgumentQualifier) String() string {
	return "<" + strings.Join(typeNames(q.types), ", ") + ">"
}

type closestTypeArgumentQualifier struct {
	types       []reflect.Type
	hierarchies [][]reflect.Type
}

// ByTypeArgumentsClosest keeps the candidates whose type arguments are
// nearest to types. The distance of one argument is its position in the
// requested type's hierarchy; a candidate's distance is the sum over all
// positions. Candidates whose arguments are outside the hierarchy, or of a
// different count, are dropped; all candidates tied at the minimum are
// kept.
func ByTypeArgumentsClosest(types ...reflect.Type) inject.Qualifier {
	q := closestTypeArgumentQualifier{types: slices.Clone(types)}
	for _, t := range types {
		inject.RequireNonNil("type argument", t)
		q.hierarchies = append(q.hierarchies, inject.ResolveHierarchy(t))
	}
	return q
}

// distance returns -1 for an incompatible candidate.
func (q closestTypeArgumentQualifier) distance(args []inject.Argument) int {
	if len(args) != len(q.types) {
		return -1
	}
	total := 0
	for i, a := range args {
		if q.types[i] == inject.ObjectType {
			continue
		}
		idx := slices.Index(q.hierarchies[i], a.Type)
		if idx < 0 {
			return -1
		}
		total += idx
	}
	return total
}

func (q closestTypeArgumentQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	checkArgs(beanType, candidates)
	return func(yield func(inject.BeanType) bool) {
		best := -1
		var closest []inject.BeanType
		for c := range candidates {
			if !matchType(beanType, c) {
				continue
			}
			args, _ := inject.TypeArgumentsOf(c, beanType)
			d := q.distance(args)
			switch {
			case d < 0:
			case best < 0 || d < best:
				best = d
				closest = append(closest[:0], c)
			case d == best:
				closest = append(closest, c)
			}
		}
		for _, c := range closest {
			if !yield(c) {
				return
			}
		}
	}
}

func (q closestTypeArgumentQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (q closestTypeArgumentQualifier) Equal(o inject.Qualifier) bool {
	other, ok := o.(closestTypeArgumentQualifier)
	return ok && slices.Equal(other.types, q.types)
}

func (q closestTypeArgumentQualifier) String() string {
	return "closest<" + strings.Join(typeNames(q.types), ", ") + ">"
}

type exactTypeArgumentNameQualifier struct {
	name string
}

// ByExactTypeArgumentName accepts candidates whose first type argument
// for the bean type has the given name, either package-qualified or in
// its printed form.
func ByExactTypeArgumentName(name string) inject.Qualifier {
	requireName("type name", name)
	return exactTypeArgumentNameQualifier{name: name}
}

func (q exactTypeArgumentNameQualifier) DoesQualify(beanType reflect.Type, c inject.BeanType) bool {
	if !matchType(beanType, c) {
		return false
	}
	args, _ := inject.TypeArgumentsOf(c, beanType)
	if len(args) == 0 || args[0].Type == nil {
		return false
	}
	t := args[0].Type
	return inject.QualifiedName(t) == q.name || t.String() == q.name
}

func (q exactTypeArgumentNameQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	return filter(q, beanType, candidates)
}

func (q exactTypeArgumentNameQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (q exactTypeArgumentNameQualifier) Equal(o inject.Qualifier) bool {
	other, ok := o.(exactTypeArgumentNameQualifier)
	return ok && other.name == q.name
}

func (q exactTypeArgumentNameQualifier) String() string { return "<" + q.name + ">" }
