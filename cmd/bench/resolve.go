package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/beancore/annotation"
	"github.com/IvanBrykalov/beancore/collections"
	"github.com/IvanBrykalov/beancore/inject"
	pmet "github.com/IvanBrykalov/beancore/metrics/prom"
	"github.com/IvanBrykalov/beancore/qualifiers"
	"github.com/IvanBrykalov/beancore/registry"
)

// Synthetic bean model for the resolve workload.
type (
	Repository interface{ Find(id int) any }
	Entity     struct{}
	User       struct{ Entity }
	Admin      struct{ User }
	Order      struct{ Entity }

	userRepo  struct{}
	adminRepo struct{}
	orderRepo struct{}
)

func (userRepo) Find(int) any  { return User{} }
func (adminRepo) Find(int) any { return Admin{} }
func (orderRepo) Find(int) any { return Order{} }

var (
	repositoryType = reflect.TypeFor[Repository]()
	implTypes      = []reflect.Type{reflect.TypeFor[userRepo](), reflect.TypeFor[adminRepo](), reflect.TypeFor[orderRepo]()}
	entityArgs     = []inject.Argument{inject.ArgumentFor[User](), inject.ArgumentFor[Admin](), inject.ArgumentFor[Order]()}
)

func newResolveCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Qualified bean lookups against the registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd.Context(), e)
		},
	}
	f := cmd.Flags()
	f.Int("beans", 300, "registered bean definitions")
	f.Int64("cache-capacity", registry.DefaultCapacity, "weighted capacity of the resolution cache")
	f.Duration("register-every", 0, "register one more bean at this interval during the run (0 = never)")
	return cmd
}

func definition(i int) inject.BeanType {
	opts := []inject.Option{
		inject.WithName("bean-" + strconv.Itoa(i)),
		inject.WithTypeArguments(repositoryType, entityArgs[i%len(entityArgs)]),
	}
	if i%10 == 0 {
		opts = append(opts, inject.WithPrimary())
	}
	if i%7 == 0 {
		opts = append(opts, inject.WithAnnotations(annotation.NewBuilder().
			Annotate(annotation.Of("Replica").With("zone", "z"+strconv.Itoa(i%3)), annotation.Of(annotation.Qualifier)).
			Build()))
	}
	return inject.NewDefinition(implTypes[i%len(implTypes)], opts...)
}

type lookup struct {
	kind string
	q    func(r *rand.Rand, beans int) inject.Qualifier
}

var lookups = []lookup{
	{"name", func(r *rand.Rand, beans int) inject.Qualifier {
		return qualifiers.ByName("bean-" + strconv.Itoa(r.IntN(beans)))
	}},
	{"primary", func(*rand.Rand, int) inject.Qualifier { return qualifiers.Primary() }},
	{"replica", func(r *rand.Rand, _ int) inject.Qualifier {
		return qualifiers.ByAnnotationValue(annotation.Of("Replica").With("zone", "z"+strconv.Itoa(r.IntN(3))))
	}},
	{"type-args", func(r *rand.Rand, _ int) inject.Qualifier {
		return qualifiers.ByTypeArguments(entityArgs[r.IntN(len(entityArgs))].Type)
	}},
	{"closest", func(*rand.Rand, int) inject.Qualifier {
		return qualifiers.ByTypeArgumentsClosest(reflect.TypeFor[Admin]())
	}},
	{"composite", func(r *rand.Rand, _ int) inject.Qualifier {
		return qualifiers.ByQualifiers(qualifiers.None(), qualifiers.ByTypeArguments(entityArgs[r.IntN(len(entityArgs))].Type))
	}},
}

func runResolve(ctx context.Context, e *env) error {
	v := e.v
	beans := v.GetInt("beans")
	if beans <= 0 {
		return fmt.Errorf("beans must be positive, got %d", beans)
	}

	reg := registry.New(registry.Options{
		Capacity: v.GetInt64("cache-capacity"),
		Metrics:  pmet.New(e.reg, "beancore", "resolve", nil),
		Logger:   e.logger,
	})
	defer func() { _ = reg.Close() }()
	defs := make([]inject.BeanType, beans)
	for i := range defs {
		defs[i] = definition(i)
	}
	reg.Register(defs...)

	ctx, cancel := context.WithTimeout(ctx, v.GetDuration("duration"))
	defer cancel()

	seed := e.seed()
	workers := workerCount(e)
	found := make([]atomic.Uint64, len(lookups))
	missing := make([]atomic.Uint64, len(lookups))
	ambiguous := make([]atomic.Uint64, len(lookups))
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	if every := v.GetDuration("register-every"); every > 0 {
		g.Go(func() error {
			t := time.NewTicker(every)
			defer t.Stop()
			for n := beans; ; n++ {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					reg.Register(definition(n))
				}
			}
		})
	}
	for w := range workers {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(seed, uint64(w)))
			for ctx.Err() == nil {
				i := r.IntN(len(lookups))
				_, err := reg.Find(repositoryType, lookups[i].q(r, beans))
				switch {
				case err == nil:
					found[i].Add(1)
				case errors.Is(err, registry.ErrNoSuchBean):
					missing[i].Add(1)
				case errors.Is(err, registry.ErrNonUniqueBean):
					ambiguous[i].Add(1)
				default:
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	type tally struct{ found, missing, ambiguous uint64 }
	byKind := make(map[string]tally, len(lookups))
	var total uint64
	for i, l := range lookups {
		t := tally{found[i].Load(), missing[i].Load(), ambiguous[i].Load()}
		byKind[l.kind] = t
		total += t.found + t.missing + t.ambiguous
	}
	e.logger.Info("resolve workload finished",
		"beans", reg.Len(), "workers", workers, "elapsed", elapsed.Round(time.Millisecond), "seed", seed)
	fmt.Printf("lookups=%d (%.0f lookups/s)\n", total, float64(total)/elapsed.Seconds())
	for kind, t := range collections.NewSortedStringMap(byKind).All() {
		fmt.Printf("  %-10s found=%d  missing=%d  ambiguous=%d\n", kind, t.found, t.missing, t.ambiguous)
	}
	return nil
}
