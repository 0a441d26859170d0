package cache

import (
	"strings"
	"testing"
)

// Fuzz basic Put/Get/Remove semantics under arbitrary string inputs.
// NOTE: key/value lengths are capped to keep fuzzing memory bounded.
func FuzzMap_PutGetRemove(f *testing.F) {
	f.Add("", "")
	f.Add("a", "1")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		m := New[string, string](Options[string, string]{Capacity: 16})
		t.Cleanup(func() { _ = m.Close() })

		m.Put(k, v)
		got, ok := m.Get(k)
		if !ok || got != v {
			t.Fatalf("after Put/Get: want %q, got %q ok=%v", v, got, ok)
		}

		if prior, ok := m.PutIfAbsent(k, "other"); !ok || prior != v {
			t.Fatalf("PutIfAbsent duplicate must return the prior value, got %q ok=%v", prior, ok)
		}

		if prior, ok := m.Remove(k); !ok || prior != v {
			t.Fatalf("Remove must return %q, got %q ok=%v", v, prior, ok)
		}
		if _, ok := m.Get(k); ok {
			t.Fatalf("key must be absent after Remove")
		}
		if m.WeightedSize() != 0 {
			t.Fatalf("weighted size must return to 0, got %d", m.WeightedSize())
		}
	})
}
