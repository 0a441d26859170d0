package twoq

import (
	"testing"

	"github.com/IvanBrykalov/beancore/policy"
)

// --- test doubles (same shape as in LRU tests) ---

type testNode[K comparable, V any] struct {
	k K
	v V
}

func (n *testNode[K, V]) Key() K   { return n.k }
func (n *testNode[K, V]) Value() V { return n.v }

type mockHooks[K comparable, V any] struct {
	pushFrontCnt   int
	moveToFrontCnt int

	backVal policy.Node[K, V]
}

func (h *mockHooks[K, V]) MoveToFront(policy.Node[K, V])   { h.moveToFrontCnt++ }
func (h *mockHooks[K, V]) PushFront(policy.Node[K, V])     { h.pushFrontCnt++ }
func (h *mockHooks[K, V]) Remove(policy.Node[K, V])        {}
func (h *mockHooks[K, V]) Back() policy.Node[K, V]         { return h.backVal }
func (h *mockHooks[K, V]) Contains(policy.Node[K, V]) bool { return true }
func (h *mockHooks[K, V]) Len() int                        { return 0 }

// --- tests ---

// OnAdd of a first-time key should admit into A1in.
func TestTwoQ_AddGoesToA1in(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string, int]{}
	p := New[string, int](2, 4).New(h).(*twoQ[string, int])

	n1 := &testNode[string, int]{k: "a", v: 1}
	p.OnAdd(n1)

	if p.inList.Len() != 1 {
		t.Fatalf("A1in must have 1 element, got %d", p.inList.Len())
	}
	if _, ok := p.inIdx[n1]; !ok {
		t.Fatalf("n1 must be present in A1in index")
	}
	if h.pushFrontCnt != 1 {
		t.Fatalf("OnAdd must link the node into the deque")
	}
}

// Once A1in overflows, Victim prefers its LRU over the deque's tail.
func TestTwoQ_VictimPrefersA1inOverflow(t *testing.T) {
	t.Parallel()

	tail := &testNode[string, int]{k: "tail", v: 0}
	h := &mockHooks[string, int]{backVal: tail}
	p := New[string, int](2, 4).New(h).(*twoQ[string, int])

	n1 := &testNode[string, int]{k: "a", v: 1}
	n2 := &testNode[string, int]{k: "b", v: 2}
	n3 := &testNode[string, int]{k: "c", v: 3}

	p.OnAdd(n1)
	p.OnAdd(n2)
	if got := p.Victim(); got != tail {
		t.Fatalf("within A1in share, victim must be deque tail, got %v", got)
	}
	p.OnAdd(n3) // A1in: [n3, n2, n1] -> LRU is n1
	if got := p.Victim(); got != n1 {
		t.Fatalf("expected victim n1 (LRU of A1in), got %v", got)
	}
}

// Removing a node from A1in should place its key into ghosts (A1out).
func TestTwoQ_OnRemoveFromA1inGoesToGhost(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string, int]{}
	p := New[string, int](2, 2).New(h).(*twoQ[string, int])

	n1 := &testNode[string, int]{k: "a", v: 1}
	p.OnAdd(n1)
	p.OnRemove(n1)
	if _, ok := p.inIdx[n1]; ok {
		t.Fatal("n1 must be removed from A1in")
	}
	if _, ok := p.ghostIdx["a"]; !ok {
		t.Fatal("key 'a' must be in ghost (A1out)")
	}
}

// Ghost capacity is enforced by dropping the oldest ghost keys.
func TestTwoQ_GhostCapacity(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string, int]{}
	p := New[string, int](4, 1).New(h).(*twoQ[string, int])

	a := &testNode[string, int]{k: "a"}
	b := &testNode[string, int]{k: "b"}
	p.OnAdd(a)
	p.OnAdd(b)
	p.OnRemove(a)
	p.OnRemove(b)

	if _, ok := p.ghostIdx["a"]; ok {
		t.Fatal("oldest ghost must be dropped")
	}
	if _, ok := p.ghostIdx["b"]; !ok {
		t.Fatal("newest ghost must be kept")
	}
}

// Re-admitting a key that is in ghosts should bypass A1in and go to Am.
func TestTwoQ_AddFromGhostGoesToAm(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string, int]{}
	p := New[string, int](1, 2).New(h).(*twoQ[string, int])

	n1 := &testNode[string, int]{k: "a", v: 1}
	p.OnAdd(n1)
	p.OnRemove(n1)

	n2 := &testNode[string, int]{k: "a", v: 2}
	p.OnAdd(n2)
	if _, ok := p.inIdx[n2]; ok {
		t.Fatalf("n2 must NOT be in A1in (should go to Am)")
	}
	if _, ok := p.ghostIdx["a"]; ok {
		t.Fatalf("ghost must be consumed on re-admission")
	}
}

// A Get on an A1in node should promote it to Am and MoveToFront.
func TestTwoQ_GetPromotesFromA1inToAm(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string, int]{}
	p := New[string, int](2, 2).New(h).(*twoQ[string, int])

	n1 := &testNode[string, int]{k: "a", v: 1}
	p.OnAdd(n1)
	p.OnGet(n1)
	if _, ok := p.inIdx[n1]; ok {
		t.Fatal("n1 must be promoted out of A1in after Get")
	}
	if h.moveToFrontCnt != 1 {
		t.Fatalf("OnGet must call MoveToFront once")
	}
}
