package collections

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

// SortedStringMap is an immutable map over a sorted key array, looked up by
// binary search. It suits small annotation-member style maps that are
// built once and compared or printed in key order.
type SortedStringMap[V any] struct {
	keys   []string
	values []V
}

// NewSortedStringMap copies src into a sorted map.
func NewSortedStringMap[V any](src map[string]V) SortedStringMap[V] {
	keys := slices.Sorted(maps.Keys(src))
	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = src[k]
	}
	return SortedStringMap[V]{keys: keys, values: values}
}

// Get returns the value for key.
func (m SortedStringMap[V]) Get(key string) (V, bool) {
	i, ok := slices.BinarySearchFunc(m.keys, key, cmp.Compare[string])
	if !ok {
		var zero V
		return zero, false
	}
	return m.values[i], true
}

// Len returns the number of keys.
func (m SortedStringMap[V]) Len() int { return len(m.keys) }

// Keys returns the keys in ascending order.
func (m SortedStringMap[V]) Keys() []string { return slices.Clone(m.keys) }

// All iterates in key order.
func (m SortedStringMap[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for i, k := range m.keys {
			if !yield(k, m.values[i]) {
				return
			}
		}
	}
}
