package inject

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/muir/reflectutils"
)

// ErrNilArgument is the panic value for a nil argument at an API boundary.
var ErrNilArgument = errors.New("inject: nil argument")

// ObjectType is the top of every hierarchy; a requested type argument of
// ObjectType matches anything.
var ObjectType = reflect.TypeFor[any]()

// RequireNonNil panics with ErrNilArgument when v is nil.
func RequireNonNil(name string, v any) {
	if v == nil {
		panic(fmt.Errorf("%w: %s", ErrNilArgument, name))
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Interface:
		if rv.IsNil() {
			panic(fmt.Errorf("%w: %s", ErrNilArgument, name))
		}
	}
}

// ResolveHierarchy returns t, then the types it embeds breadth-first,
// then ObjectType. Struct embedding is the supertype relation; pointer
// embeddings contribute their element type.
func ResolveHierarchy(t reflect.Type) []reflect.Type {
	if t == nil {
		return nil
	}
	out := []reflect.Type{t}
	seen := map[reflect.Type]bool{t: true}
	for i := 0; i < len(out); i++ {
		s := out[i]
		for s.Kind() == reflect.Pointer {
			s = s.Elem()
		}
		if s.Kind() != reflect.Struct {
			continue
		}
		for j := range s.NumField() {
			f := s.Field(j)
			if !f.Anonymous {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if !seen[ft] {
				seen[ft] = true
				out = append(out, ft)
			}
		}
	}
	if t != ObjectType {
		out = append(out, ObjectType)
	}
	return out
}

// IsAssignable reports whether a value of type from can stand where to is
// requested.
func IsAssignable(to, from reflect.Type) bool {
	switch {
	case to == nil || from == nil:
		return false
	case to == from, to == ObjectType:
		return true
	case from.AssignableTo(to):
		return true
	case to.Kind() == reflect.Interface:
		return from.Kind() != reflect.Pointer && reflect.PointerTo(from).Implements(to)
	}
	for _, s := range ResolveHierarchy(from)[1:] {
		if s == to {
			return true
		}
	}
	return false
}

// SimpleName returns the unqualified type name: pointers are stripped and
// generic instantiation brackets dropped. Unnamed types use their string
// form.
func SimpleName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return t.String()
	}
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

// QualifiedName returns the package-qualified name of a named type, or the
// string form of an unnamed one.
func QualifiedName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// TypeName returns the display name of t.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return reflectutils.TypeName(t)
}
