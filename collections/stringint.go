package collections

import (
	"errors"
	"fmt"

	"github.com/IvanBrykalov/beancore/internal/util"
)

// ErrCapacityExceeded is the panic value of a StringIntMap Put that would
// hold more keys than the map was created for.
var ErrCapacityExceeded = errors.New("collections: capacity exceeded")

type stringIntSlot struct {
	key  string
	val  int
	used bool
}

// StringIntMap is an open-addressing string to int map for small, fixed
// key sets built once and read often. The table is a power of two kept at
// or below half full.
//
// It is not safe for concurrent writes. Concurrent reads after the last
// Put are fine.
type StringIntMap struct {
	slots    []stringIntSlot
	mask     uint64
	capacity int
	n        int
}

// NewStringIntMap returns a map for at most capacity keys. It panics if
// capacity is negative.
func NewStringIntMap(capacity int) *StringIntMap {
	if capacity < 0 {
		panic(fmt.Errorf("collections: negative capacity %d", capacity))
	}
	size := util.TableSizeFor(capacity)
	return &StringIntMap{
		slots:    make([]stringIntSlot, size),
		mask:     uint64(size - 1),
		capacity: capacity,
	}
}

// probe returns the slot holding key, or the free slot where it belongs.
func (m *StringIntMap) probe(key string) int {
	i := util.HashString(key) & m.mask
	for {
		s := &m.slots[i]
		if !s.used || s.key == key {
			return int(i)
		}
		i = (i + 1) & m.mask
	}
}

// Put maps key to value. Adding a key beyond the declared capacity panics
// with ErrCapacityExceeded; overwriting an existing key never does.
func (m *StringIntMap) Put(key string, value int) {
	s := &m.slots[m.probe(key)]
	if !s.used {
		if m.n == m.capacity {
			panic(fmt.Errorf("%w: %d keys", ErrCapacityExceeded, m.capacity))
		}
		s.used, s.key = true, key
		m.n++
	}
	s.val = value
}

// Get returns the value for key, or def when key is absent.
func (m *StringIntMap) Get(key string, def int) int {
	if s := &m.slots[m.probe(key)]; s.used {
		return s.val
	}
	return def
}

// Len returns the number of keys.
func (m *StringIntMap) Len() int { return m.n }
