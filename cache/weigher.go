package cache

// Weigher measures a value in the units used for the weighted capacity.
// Implementations must return at least 1.
type Weigher[V any] interface {
	WeightOf(value V) int
}

// EntryWeigher measures an entry from both its key and value.
// Implementations must return at least 1.
type EntryWeigher[K comparable, V any] interface {
	WeightOf(key K, value V) int
}

// WeigherFunc adapts a function to Weigher.
type WeigherFunc[V any] func(value V) int

// WeightOf implements Weigher.
func (f WeigherFunc[V]) WeightOf(value V) int { return f(value) }

// EntryWeigherFunc adapts a function to EntryWeigher.
type EntryWeigherFunc[K comparable, V any] func(key K, value V) int

// WeightOf implements EntryWeigher.
func (f EntryWeigherFunc[K, V]) WeightOf(key K, value V) int { return f(key, value) }

type singleton[V any] struct{}

func (singleton[V]) WeightOf(V) int { return 1 }

type entrySingleton[K comparable, V any] struct{}

func (entrySingleton[K, V]) WeightOf(K, V) int { return 1 }

type entryAdapter[K comparable, V any] struct{ w Weigher[V] }

func (a entryAdapter[K, V]) WeightOf(_ K, v V) int { return a.w.WeightOf(v) }

// Singleton weighs every value as 1, bounding the map by entry count.
func Singleton[V any]() Weigher[V] { return singleton[V]{} }

// EntrySingleton is the entry form of Singleton; it is the default.
func EntrySingleton[K comparable, V any]() EntryWeigher[K, V] { return entrySingleton[K, V]{} }

// AsEntryWeigher lets a value weigher serve as an entry weigher.
// Singleton is mapped to EntrySingleton.
func AsEntryWeigher[K comparable, V any](w Weigher[V]) EntryWeigher[K, V] {
	if _, ok := w.(singleton[V]); ok {
		return entrySingleton[K, V]{}
	}
	return entryAdapter[K, V]{w: w}
}

// ByteSlice weighs a byte slice by its length, bounding the map by the
// aggregate number of bytes held.
func ByteSlice() Weigher[[]byte] {
	return WeigherFunc[[]byte](func(b []byte) int { return len(b) })
}

// StringBytes weighs a string by its length in bytes.
func StringBytes() Weigher[string] {
	return WeigherFunc[string](func(s string) int { return len(s) })
}

// Slice weighs a slice by its number of elements.
func Slice[E any]() Weigher[[]E] {
	return WeigherFunc[[]E](func(s []E) int { return len(s) })
}

// MapWeigher weighs a map by its number of entries.
func MapWeigher[K comparable, V any]() Weigher[map[K]V] {
	return WeigherFunc[map[K]V](func(m map[K]V) int { return len(m) })
}
