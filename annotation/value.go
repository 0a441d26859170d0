package annotation

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/IvanBrykalov/beancore/internal/util"
)

// Value is one usage of an annotation: its name and member values.
//
// Member values are plain Go values: strings, numbers, bools,
// reflect.Type, nested Value, or slices of those. NonBinding lists the
// members that do not take part in qualifier matching.
type Value struct {
	Name       string
	Members    map[string]any
	NonBinding []string
}

// Of returns a Value with no members.
func Of(name string) Value {
	return Value{Name: name}
}

// With returns a copy of v with member set to val.
func (v Value) With(member string, val any) Value {
	members := make(map[string]any, len(v.Members)+1)
	maps.Copy(members, v.Members)
	members[member] = val
	v.Members = members
	return v
}

// WithNonBinding returns a copy of v that excludes the given members from
// qualifier matching.
func (v Value) WithNonBinding(members ...string) Value {
	v.NonBinding = append(slices.Clip(v.NonBinding), members...)
	return v
}

// IsZero reports whether v carries no annotation.
func (v Value) IsZero() bool { return v.Name == "" }

// Member returns the raw value of a member.
func (v Value) Member(member string) (any, bool) {
	x, ok := v.Members[member]
	return x, ok
}

// StringValue returns a member as a string. reflect.Type members yield
// their string form.
func (v Value) StringValue(member string) (string, bool) {
	switch x := v.Members[member].(type) {
	case string:
		return x, true
	case []string:
		if len(x) > 0 {
			return x[0], true
		}
	case reflect.Type:
		return x.String(), true
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}

// Strings returns a string or []string member as a slice.
func (v Value) Strings(member string) []string {
	switch x := v.Members[member].(type) {
	case string:
		return []string{x}
	case []string:
		return slices.Clone(x)
	}
	return nil
}

// Types returns a reflect.Type or []reflect.Type member as a slice.
func (v Value) Types(member string) []reflect.Type {
	switch x := v.Members[member].(type) {
	case reflect.Type:
		return []reflect.Type{x}
	case []reflect.Type:
		return slices.Clone(x)
	}
	return nil
}

// Annotation returns a nested annotation member.
func (v Value) Annotation(member string) (Value, bool) {
	switch x := v.Members[member].(type) {
	case Value:
		return x, true
	case []Value:
		if len(x) > 0 {
			return x[0], true
		}
	}
	return Value{}, false
}

// BindingMembers returns the members that take part in matching.
func (v Value) BindingMembers() map[string]any {
	if len(v.NonBinding) == 0 {
		return v.Members
	}
	out := make(map[string]any, len(v.Members))
	for k, x := range v.Members {
		if !slices.Contains(v.NonBinding, k) {
			out[k] = x
		}
	}
	return out
}

// Equal reports structural equality of name and members.
func (v Value) Equal(o Value) bool {
	return v.Name == o.Name && MembersEqual(v.Members, o.Members)
}

// MembersEqual compares two member maps structurally. A missing member and
// an empty map are equivalent.
func MembersEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, x := range a {
		y, ok := b[k]
		if !ok || !memberEqual(x, y) {
			return false
		}
	}
	return true
}

func memberEqual(x, y any) bool {
	switch xv := x.(type) {
	case Value:
		yv, ok := y.(Value)
		return ok && xv.Equal(yv)
	case []Value:
		yv, ok := y.([]Value)
		return ok && slices.EqualFunc(xv, yv, Value.Equal)
	}
	return util.Equal(x, y)
}

// String renders v as @Name(member=value, ...) with members sorted.
func (v Value) String() string {
	var sb strings.Builder
	sb.WriteByte('@')
	sb.WriteString(v.Name)
	if len(v.Members) == 0 {
		return sb.String()
	}
	sb.WriteByte('(')
	for i, k := range slices.Sorted(maps.Keys(v.Members)) {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", k, v.Members[k])
	}
	sb.WriteByte(')')
	return sb.String()
}
