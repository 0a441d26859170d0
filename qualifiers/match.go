package qualifiers

import (
	"iter"
	"reflect"
	"slices"

	"github.com/IvanBrykalov/beancore/inject"
)

// Variance selects how a candidate's type argument must relate to the
// requested one.
type Variance int

const (
	// Covariant accepts arguments assignable to the requested type
	// (subtypes); ObjectType matches anything.
	Covariant Variance = iota
	// Contravariant accepts arguments the requested type is assignable to
	// (supertypes); ObjectType matches anything.
	Contravariant
	// Invariant accepts the requested type only.
	Invariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	default:
		return "invariant"
	}
}

type matchArgumentQualifier struct {
	generic  reflect.Type
	arg      inject.Argument
	variance Variance
}

// ByCovariant matches the type parameters of arg against each candidate's
// arguments for generic, accepting subtypes at every nesting level.
func ByCovariant(generic reflect.Type, arg inject.Argument) inject.Qualifier {
	return MatchArgument(generic, arg, Covariant)
}

// ByContravariant is ByCovariant accepting supertypes.
func ByContravariant(generic reflect.Type, arg inject.Argument) inject.Qualifier {
	return MatchArgument(generic, arg, Contravariant)
}

// ByInvariant is ByCovariant accepting exact types only.
func ByInvariant(generic reflect.Type, arg inject.Argument) inject.Qualifier {
	return MatchArgument(generic, arg, Invariant)
}

// MatchArgument matches candidates recursively over nested type
// parameters, then narrows multiple matches to the closest ones: at each
// flattened argument position an exact match wins, otherwise candidates
// farther from the requested type than another candidate are dropped.
// Raw candidates match but lose to any candidate with arguments.
func MatchArgument(generic reflect.Type, arg inject.Argument, v Variance) inject.Qualifier {
	inject.RequireNonNil("generic type", generic)
	return matchArgumentQualifier{generic: generic, arg: arg, variance: v}
}

func (q matchArgumentQualifier) matchParams(want, got []inject.Argument) bool {
	if len(want) == 0 || len(got) == 0 {
		return true
	}
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if !q.matchType(want[i].Type, got[i].Type) || !q.matchParams(want[i].TypeParameters, got[i].TypeParameters) {
			return false
		}
	}
	return true
}

func (q matchArgumentQualifier) matchType(want, got reflect.Type) bool {
	switch q.variance {
	case Covariant:
		return want == inject.ObjectType || inject.IsAssignable(want, got)
	case Contravariant:
		return want == inject.ObjectType || inject.IsAssignable(got, want)
	default:
		return want == got
	}
}

// farther reports whether a is strictly farther from the requested type
// than b: a subtype of b for covariant matching, a supertype otherwise.
func (q matchArgumentQualifier) farther(a, b reflect.Type) bool {
	if a == b {
		return false
	}
	if q.variance == Covariant {
		return inject.IsAssignable(b, a)
	}
	return inject.IsAssignable(a, b)
}

type matched struct {
	c    inject.BeanType
	flat []reflect.Type
}

func flatten(args []inject.Argument) []reflect.Type {
	var out []reflect.Type
	for _, a := range args {
		out = append(out, a.Flatten()...)
	}
	return out
}

func (q matchArgumentQualifier) Reduce(beanType reflect.Type, candidates iter.Seq[inject.BeanType]) iter.Seq[inject.BeanType] {
	checkArgs(beanType, candidates)
	return func(yield func(inject.BeanType) bool) {
		var ms []matched
		for c := range candidates {
			args, ok := inject.TypeArgumentsOf(c, q.generic)
			if !ok || !q.matchParams(q.arg.TypeParameters, args) {
				continue
			}
			ms = append(ms, matched{c: c, flat: flatten(args)})
		}
		if len(ms) > 1 {
			ms = q.narrow(ms)
		}
		for _, m := range ms {
			if !yield(m.c) {
				return
			}
		}
	}
}

func (q matchArgumentQualifier) narrow(ms []matched) []matched {
	if slices.ContainsFunc(ms, func(m matched) bool { return len(m.flat) > 0 }) {
		ms = slices.DeleteFunc(ms, func(m matched) bool { return len(m.flat) == 0 })
	}
	want := flatten(q.arg.TypeParameters)
	for pos, w := range want {
		if len(ms) <= 1 {
			break
		}
		at := func(m matched) (reflect.Type, bool) {
			if pos >= len(m.flat) {
				return nil, false
			}
			return m.flat[pos], true
		}
		exact := slices.DeleteFunc(slices.Clone(ms), func(m matched) bool {
			t, ok := at(m)
			return !ok || t != w
		})
		if len(exact) > 0 {
			ms = exact
			continue
		}
		snapshot := slices.Clone(ms)
		ms = slices.DeleteFunc(ms, func(m matched) bool {
			t, ok := at(m)
			if !ok {
				return false
			}
			for _, o := range snapshot {
				if ot, ok := at(o); ok && q.farther(t, ot) {
					return true
				}
			}
			return false
		})
		if len(ms) == 0 {
			// mutually assignable types: nothing is strictly closer
			ms = snapshot
		}
	}
	return ms
}

func (q matchArgumentQualifier) Contains(o inject.Qualifier) bool { return q.Equal(o) }

func (q matchArgumentQualifier) Equal(o inject.Qualifier) bool {
	other, ok := o.(matchArgumentQualifier)
	return ok && other.generic == q.generic && other.variance == q.variance && other.arg.Equal(q.arg)
}

func (q matchArgumentQualifier) String() string {
	return q.variance.String() + " " + inject.TypeName(q.generic) + " " + q.arg.String()
}
