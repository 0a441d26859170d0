package util

import "testing"

func TestNextPow2(t *testing.T) {
	t.Parallel()

	cases := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 64: 64, 65: 128}
	for in, want := range cases {
		if got := NextPow2(in); got != want {
			t.Fatalf("NextPow2(%d) = %d, want %d", in, got, want)
		}
	}
	if got := NextPow2(1<<63 + 1); got != 1<<63 {
		t.Fatalf("overflow must clamp, got %d", got)
	}
}

func TestTableSizeFor(t *testing.T) {
	t.Parallel()

	if got := TableSizeFor(0); got != 4 {
		t.Fatalf("TableSizeFor(0) = %d, want 4", got)
	}
	if got := TableSizeFor(5); got != 16 {
		t.Fatalf("TableSizeFor(5) = %d, want 16", got)
	}
}

func TestReasonableShardCount(t *testing.T) {
	t.Parallel()

	if got := ReasonableShardCount(3); got != 4 {
		t.Fatalf("ReasonableShardCount(3) = %d, want 4", got)
	}
	if got := ReasonableShardCount(10_000); got != maxShards {
		t.Fatalf("must clamp to %d, got %d", maxShards, got)
	}
	if got := ReasonableShardCount(0); !IsPowerOfTwo(uint64(got)) {
		t.Fatalf("auto shard count must be a power of two, got %d", got)
	}
}

type point struct{ x, y int }

func TestHash_Stable(t *testing.T) {
	t.Parallel()

	if Hash("abc") != Hash("abc") || Hash("abc") == Hash("abd") {
		t.Fatal("string hash must be deterministic and discriminating")
	}
	if Hash(42) != Hash(42) {
		t.Fatal("int hash must be deterministic")
	}
	if Hash(point{1, 2}) != Hash(point{1, 2}) {
		t.Fatal("struct hash must be deterministic")
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	if !Equal("a", "a") || Equal("a", "b") {
		t.Fatal("string equality")
	}
	if !Equal([]byte("x"), []byte("x")) {
		t.Fatal("slices must compare structurally")
	}
	var p *point
	if !IsNil(p) || IsNil(point{}) || !IsNil[any](nil) {
		t.Fatal("IsNil mismatch")
	}
}
