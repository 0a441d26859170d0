package cache

import "testing"

func TestWeighers(t *testing.T) {
	t.Parallel()

	if w := Singleton[string]().WeightOf("anything"); w != 1 {
		t.Fatalf("Singleton weight = %d", w)
	}
	if w := EntrySingleton[int, int]().WeightOf(1, 2); w != 1 {
		t.Fatalf("EntrySingleton weight = %d", w)
	}
	if w := ByteSlice().WeightOf([]byte("hello")); w != 5 {
		t.Fatalf("ByteSlice weight = %d", w)
	}
	if w := StringBytes().WeightOf("héllo"); w != 6 {
		t.Fatalf("StringBytes weight = %d", w)
	}
	if w := Slice[int]().WeightOf([]int{1, 2, 3}); w != 3 {
		t.Fatalf("Slice weight = %d", w)
	}
	if w := MapWeigher[string, int]().WeightOf(map[string]int{"a": 1, "b": 2}); w != 2 {
		t.Fatalf("MapWeigher weight = %d", w)
	}
}

func TestAsEntryWeigher(t *testing.T) {
	t.Parallel()

	if _, ok := AsEntryWeigher[string](Singleton[int]()).(entrySingleton[string, int]); !ok {
		t.Fatal("Singleton must adapt to the entry singleton")
	}
	w := AsEntryWeigher[string](Slice[byte]())
	if got := w.WeightOf("ignored", []byte{1, 2}); got != 2 {
		t.Fatalf("adapted weigher must ignore the key, got %d", got)
	}

	kw := EntryWeigherFunc[string, string](func(k, v string) int { return len(k) + len(v) })
	if got := kw.WeightOf("ab", "cde"); got != 5 {
		t.Fatalf("entry weigher func = %d", got)
	}
}
