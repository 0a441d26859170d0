package inject

import (
	"reflect"
	"slices"
	"strings"
)

// Argument is a generic type argument, itself possibly parameterized.
type Argument struct {
	Name           string
	Type           reflect.Type
	TypeParameters []Argument
}

// ArgumentOf returns an unnamed argument of type t.
func ArgumentOf(t reflect.Type, params ...Argument) Argument {
	return Argument{Type: t, TypeParameters: params}
}

// ArgumentFor is ArgumentOf for a static type.
func ArgumentFor[T any](params ...Argument) Argument {
	return ArgumentOf(reflect.TypeFor[T](), params...)
}

// Equal compares types and parameters; names are ignored.
func (a Argument) Equal(b Argument) bool {
	return a.Type == b.Type && slices.EqualFunc(a.TypeParameters, b.TypeParameters, Argument.Equal)
}

// Flatten returns the argument types in pre-order: a's type, then each
// parameter's flattened types.
func (a Argument) Flatten() []reflect.Type {
	out := []reflect.Type{a.Type}
	for _, p := range a.TypeParameters {
		out = append(out, p.Flatten()...)
	}
	return out
}

// String renders the argument as Type[Param, ...].
func (a Argument) String() string {
	var sb strings.Builder
	if a.Type == nil {
		sb.WriteString("<nil>")
	} else {
		sb.WriteString(TypeName(a.Type))
	}
	if len(a.TypeParameters) > 0 {
		sb.WriteByte('[')
		for i, p := range a.TypeParameters {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// ArgumentTypes returns the top-level types of args.
func ArgumentTypes(args []Argument) []reflect.Type {
	out := make([]reflect.Type, len(args))
	for i, a := range args {
		out[i] = a.Type
	}
	return out
}
