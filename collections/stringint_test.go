package collections

import (
	"errors"
	"slices"
	"strconv"
	"testing"
)

func TestStringIntMap_PutGet(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{1, 2, 3, 7, 64, 1_000} {
		m := NewStringIntMap(capacity)
		for i := range capacity {
			m.Put("key-"+strconv.Itoa(i), i)
		}
		for i := range capacity {
			if got := m.Get("key-"+strconv.Itoa(i), -1); got != i {
				t.Fatalf("cap %d: Get(key-%d) = %d", capacity, i, got)
			}
		}
		if got := m.Get("absent", -7); got != -7 {
			t.Fatalf("cap %d: Get(absent) = %d; want default", capacity, got)
		}
		if m.Len() != capacity {
			t.Fatalf("Len = %d; want %d", m.Len(), capacity)
		}
	}
}

func TestStringIntMap_OverwriteAndEmptyKey(t *testing.T) {
	t.Parallel()

	m := NewStringIntMap(2)
	m.Put("", 1)
	m.Put("x", 2)
	m.Put("", 3) // overwriting at capacity is fine
	if got := m.Get("", 0); got != 3 {
		t.Fatalf("Get(\"\") = %d; want 3", got)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d; want 2", m.Len())
	}
}

func TestStringIntMap_CapacityExceeded(t *testing.T) {
	t.Parallel()

	mustPanic := func(fn func()) {
		t.Helper()
		defer func() {
			err, _ := recover().(error)
			if !errors.Is(err, ErrCapacityExceeded) {
				t.Fatalf("panic = %v; want ErrCapacityExceeded", err)
			}
		}()
		fn()
	}

	m := NewStringIntMap(2)
	m.Put("a", 1)
	m.Put("b", 2)
	mustPanic(func() { m.Put("c", 3) })
	mustPanic(func() { NewStringIntMap(0).Put("a", 1) })
}

func TestSortedStringMap(t *testing.T) {
	t.Parallel()

	m := NewSortedStringMap(map[string]int{"b": 2, "c": 3, "a": 1})
	if m.Len() != 3 {
		t.Fatalf("Len = %d", m.Len())
	}
	if v, ok := m.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) = %d,%v", v, ok)
	}
	if _, ok := m.Get("bb"); ok {
		t.Fatal("Get(bb) found a value")
	}
	if got := m.Keys(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("Keys = %v", got)
	}
	var order []string
	for k, v := range m.All() {
		order = append(order, k+strconv.Itoa(v))
	}
	if !slices.Equal(order, []string{"a1", "b2", "c3"}) {
		t.Fatalf("All = %v", order)
	}

	var empty SortedStringMap[int]
	if _, ok := empty.Get("a"); ok || empty.Len() != 0 {
		t.Fatal("zero SortedStringMap is not empty")
	}
}

func BenchmarkStringIntMap_Get(b *testing.B) {
	const n = 256
	m := NewStringIntMap(n)
	keys := make([]string, n)
	for i := range keys {
		keys[i] = "bean-" + strconv.Itoa(i)
		m.Put(keys[i], i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Get(keys[i&(n-1)], -1)
	}
}
