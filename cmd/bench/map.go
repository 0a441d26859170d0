package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/beancore/cache"
	pmet "github.com/IvanBrykalov/beancore/metrics/prom"
	"github.com/IvanBrykalov/beancore/policy/twoq"
)

func newMapCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Zipf read/write mix against the bounded map",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMap(cmd.Context(), e)
		},
	}
	f := cmd.Flags()
	f.Int64("capacity", 100_000, "maximum weighted capacity")
	f.String("policy", "lru", "eviction policy: lru | 2q")
	f.String("weigher", "singleton", "entry weigher: singleton | bytes")
	f.Int("concurrency", 0, "expected concurrent writers (0 = auto)")
	f.Int("reads", 80, "read percentage [0..100]")
	f.Uint64("keys", 1_000_000, "keyspace size")
	f.Float64("zipf-s", 1.1, "Zipf s > 1 (skew)")
	f.Float64("zipf-v", 1.0, "Zipf v >= 1")
	f.Int("preload", 0, "entries loaded before the run (0 = capacity/2)")
	return cmd
}

type mapStats struct {
	reads, writes, hits, misses, evictions atomic.Uint64
}

func runMap(ctx context.Context, e *env) error {
	v := e.v
	capacity := v.GetInt64("capacity")
	keys := v.GetUint64("keys")
	if keys == 0 {
		return fmt.Errorf("keys must be positive")
	}
	readPct := v.GetInt("reads")
	if readPct < 0 || readPct > 100 {
		return fmt.Errorf("reads must be within [0..100], got %d", readPct)
	}

	var stats mapStats
	b := cache.NewBuilder[string, []byte]().
		MaximumWeightedCapacity(capacity).
		ConcurrencyLevel(max(1, workerCount(e))).
		Metrics(pmet.New(e.reg, "beancore", "map", nil)).
		Listener(func(string, []byte, cache.EvictReason) { stats.evictions.Add(1) }).
		Logger(e.logger)
	if c := v.GetInt("concurrency"); c > 0 {
		b.ConcurrencyLevel(c)
	}
	switch p := v.GetString("policy"); p {
	case "lru":
	case "2q":
		b.Policy(twoq.New[string, []byte](int(capacity/4), int(capacity/2)))
	default:
		return fmt.Errorf("unknown policy %q (use lru or 2q)", p)
	}
	switch w := v.GetString("weigher"); w {
	case "singleton":
	case "bytes":
		b.Weigher(cache.ByteSlice())
	default:
		return fmt.Errorf("unknown weigher %q (use singleton or bytes)", w)
	}
	m, err := b.Build()
	if err != nil {
		return fmt.Errorf("building map: %w", err)
	}
	defer func() { _ = m.Close() }()

	preload := v.GetInt("preload")
	if preload == 0 {
		preload = int(capacity / 2)
	}
	for i := range preload {
		m.Put("k:"+strconv.Itoa(i), value(i))
	}
	e.logger.Debug("preloaded", "entries", m.Len(), "weighted", m.WeightedSize())

	ctx, cancel := context.WithTimeout(ctx, v.GetDuration("duration"))
	defer cancel()

	seed := e.seed()
	zipfS, zipfV := v.GetFloat64("zipf-s"), v.GetFloat64("zipf-v")
	workers := workerCount(e)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(seed, uint64(w)))
			zipf := rand.NewZipf(r, zipfS, zipfV, keys-1)
			key := func() string { return "k:" + strconv.FormatUint(zipf.Uint64(), 10) }

			for ctx.Err() == nil {
				if r.IntN(100) < readPct {
					stats.reads.Add(1)
					if _, ok := m.Get(key()); ok {
						stats.hits.Add(1)
					} else {
						stats.misses.Add(1)
					}
					continue
				}
				stats.writes.Add(1)
				m.Put(key(), value(r.IntN(1<<20)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	reads, hits := stats.reads.Load(), stats.hits.Load()
	ops := reads + stats.writes.Load()
	hitRate := 0.0
	if reads > 0 {
		hitRate = float64(hits) / float64(reads) * 100
	}
	e.logger.Info("map workload finished",
		"policy", v.GetString("policy"),
		"weigher", v.GetString("weigher"),
		"capacity", capacity,
		"workers", workers,
		"elapsed", elapsed.Round(time.Millisecond),
		"seed", seed,
	)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), reads, stats.writes.Load())
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  evictions=%d\n",
		hits, stats.misses.Load(), hitRate, stats.evictions.Load())
	fmt.Printf("len=%d  weighted=%d/%d\n", m.Len(), m.WeightedSize(), m.Capacity())
	return nil
}

// value returns a payload whose length varies with i, so the bytes weigher
// has something to weigh.
func value(i int) []byte {
	return []byte("v" + strconv.Itoa(i))
}

func workerCount(e *env) int {
	if n := e.v.GetInt("workers"); n > 0 {
		return n
	}
	return 2 * runtime.GOMAXPROCS(0)
}
