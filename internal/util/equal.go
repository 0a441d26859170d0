package util

import "reflect"

// Equal reports whether a and b hold the same value. Comparable dynamic
// types use ==; slices, maps and funcs fall back to reflect.DeepEqual so
// that comparing them never panics.
func Equal[V any](a, b V) bool {
	x, y := any(a), any(b)
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	t := reflect.TypeOf(x)
	if t != reflect.TypeOf(y) {
		return false
	}
	if t.Comparable() {
		return x == y
	}
	return reflect.DeepEqual(x, y)
}

// IsNil reports whether v is nil or a typed nil (pointer, map, slice,
// channel, func or interface).
func IsNil[V any](v V) bool {
	x := any(v)
	if x == nil {
		return true
	}
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
