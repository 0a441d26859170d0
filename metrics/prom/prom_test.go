package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/IvanBrykalov/beancore/cache"
)

func TestAdapter_ExportsMapSignals(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	a := New(reg, "beancore", "map", prometheus.Labels{"map": "test"})

	m := cache.New[string, int](cache.Options[string, int]{Capacity: 2, Metrics: a})
	m.Put("a", 1)
	m.Put("b", 2)
	m.Get("a")
	m.Get("missing")
	m.Put("c", 3)

	if got := testutil.ToFloat64(a.hits); got != 1 {
		t.Fatalf("hits = %v", got)
	}
	if got := testutil.ToFloat64(a.misses); got != 1 {
		t.Fatalf("misses = %v", got)
	}
	if got := testutil.ToFloat64(a.evicts.WithLabelValues("capacity")); got != 1 {
		t.Fatalf("capacity evictions = %v", got)
	}
	if got := testutil.ToFloat64(a.sizeEnt); got != 2 {
		t.Fatalf("size_entries = %v", got)
	}
	if got := testutil.ToFloat64(a.sizeWeight); got != 2 {
		t.Fatalf("size_weight = %v", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Fatalf("gather: n=%d err=%v", n, err)
	}
}

func TestAdapter_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg, "beancore", "map", nil)
	defer func() {
		if recover() == nil {
			t.Fatal("registering the same metrics twice must panic")
		}
	}()
	New(reg, "beancore", "map", nil)
}
