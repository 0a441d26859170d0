package registry_test

import (
	"reflect"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/beancore/annotation"
	"github.com/IvanBrykalov/beancore/cache"
	"github.com/IvanBrykalov/beancore/inject"
	"github.com/IvanBrykalov/beancore/qualifiers"
	"github.com/IvanBrykalov/beancore/registry"
)

type (
	DataSource interface{ Conn() string }

	PgDataSource    struct{}
	MysqlDataSource struct{}
	H2DataSource    struct{}
	Clock           struct{}
)

func (PgDataSource) Conn() string    { return "pg" }
func (MysqlDataSource) Conn() string { return "mysql" }
func (H2DataSource) Conn() string    { return "h2" }

var dataSource = reflect.TypeFor[DataSource]()

type countingMetrics struct {
	hits, misses atomic.Int64
}

func (m *countingMetrics) Hit()                    { m.hits.Add(1) }
func (m *countingMetrics) Miss()                   { m.misses.Add(1) }
func (m *countingMetrics) Evict(cache.EvictReason) {}
func (m *countingMetrics) Size(int, int64)         {}

func newRegistry(t *testing.T, opt registry.Options) *registry.Registry {
	t.Helper()
	r := registry.New(opt)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestFind_Unique(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, registry.Options{})
	pg := inject.NewBean(reflect.TypeFor[PgDataSource]())
	clock := inject.NewBean(reflect.TypeFor[Clock]())
	r.Register(pg, clock)

	got, err := r.Find(dataSource, nil)
	require.NoError(t, err)
	assert.Same(t, pg, got)

	got, err = r.Find(reflect.TypeFor[Clock](), nil)
	require.NoError(t, err)
	assert.Same(t, clock, got)
}

func TestFind_PrimaryFallback(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, registry.Options{})
	pg := inject.NewBean(reflect.TypeFor[PgDataSource]())
	mysql := inject.NewBean(reflect.TypeFor[MysqlDataSource](), inject.WithPrimary())
	r.Register(pg, mysql)

	got, err := r.Find(dataSource, nil)
	require.NoError(t, err)
	assert.Same(t, mysql, got)
}

func TestFind_Errors(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, registry.Options{})
	r.Register(
		inject.NewBean(reflect.TypeFor[PgDataSource]()),
		inject.NewBean(reflect.TypeFor[MysqlDataSource]()),
	)

	_, err := r.Find(dataSource, nil)
	require.ErrorIs(t, err, registry.ErrNonUniqueBean)
	assert.Contains(t, err.Error(), "PgDataSource")
	assert.Contains(t, err.Error(), "MysqlDataSource")

	_, err = r.Find(dataSource, qualifiers.ByName("h2"))
	require.ErrorIs(t, err, registry.ErrNoSuchBean)
	assert.Contains(t, err.Error(), "@Named('h2')")

	_, err = r.FindAll(reflect.TypeFor[Clock](), nil)
	require.ErrorIs(t, err, registry.ErrNoSuchBean)
}

func TestFind_WithQualifiers(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, registry.Options{})
	pg := inject.NewBean(reflect.TypeFor[PgDataSource]())
	mysql := inject.NewBean(reflect.TypeFor[MysqlDataSource](), inject.WithAnnotations(
		annotation.NewBuilder().Annotate(annotation.Of("Replica"), annotation.Of(annotation.Qualifier)).Build()))
	h2 := inject.NewBean(reflect.TypeFor[H2DataSource](), inject.WithName("test"))
	r.Register(pg, mysql, h2)

	got, err := r.Find(dataSource, qualifiers.ByName("pg"))
	require.NoError(t, err)
	assert.Same(t, pg, got)

	got, err = r.Find(dataSource, qualifiers.ByAnnotationName("Replica"))
	require.NoError(t, err)
	assert.Same(t, mysql, got)

	got, err = r.Find(dataSource, qualifiers.ByName("test"))
	require.NoError(t, err)
	assert.Same(t, h2, got)

	all, err := r.FindAll(dataSource, qualifiers.None())
	require.NoError(t, err)
	assert.Equal(t, []inject.BeanType{pg, h2}, all)
}

func TestCandidates_Memoized(t *testing.T) {
	t.Parallel()

	m := &countingMetrics{}
	r := newRegistry(t, registry.Options{Metrics: m})
	r.Register(inject.NewBean(reflect.TypeFor[PgDataSource]()))

	first := r.Candidates(dataSource, qualifiers.ByName("pg"))
	second := r.Candidates(dataSource, qualifiers.ByName("pg"))
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, m.misses.Load())
	assert.EqualValues(t, 1, m.hits.Load())

	// the returned slice is the caller's
	first[0] = nil
	assert.NotNil(t, r.Candidates(dataSource, qualifiers.ByName("pg"))[0])

	// empty results are memoized too
	assert.Empty(t, r.Candidates(dataSource, qualifiers.ByName("nope")))
	assert.Empty(t, r.Candidates(dataSource, qualifiers.ByName("nope")))
	assert.EqualValues(t, 3, m.hits.Load())
}

func TestCandidates_QualifiersPrintingAlike(t *testing.T) {
	t.Parallel()

	qualified := func(v annotation.Value) inject.Option {
		return inject.WithAnnotations(annotation.NewBuilder().Annotate(v, annotation.Of(annotation.Qualifier)).Build())
	}
	primary := inject.NewBean(reflect.TypeFor[PgDataSource](), inject.WithPrimary())
	anyBean := inject.NewBean(reflect.TypeFor[MysqlDataSource](),
		inject.WithAnnotations(annotation.NewBuilder().Annotate(annotation.Of(annotation.Any)).Build()))
	plain := inject.NewBean(reflect.TypeFor[H2DataSource]())
	raw := inject.NewDefinition(reflect.TypeFor[PgDataSource]())
	ofInt := inject.NewDefinition(reflect.TypeFor[H2DataSource](), inject.WithTypeArguments(dataSource, inject.ArgumentFor[int]()))
	zoneInt := inject.NewBean(reflect.TypeFor[PgDataSource](), qualified(annotation.Of("Zone").With("value", 1)))
	zoneString := inject.NewBean(reflect.TypeFor[MysqlDataSource](), qualified(annotation.Of("Zone").With("value", "1")))

	cases := []struct {
		name  string
		beans []inject.BeanType
		a, b  inject.Qualifier
	}{
		{"annotation name vs primary", []inject.BeanType{primary, plain},
			qualifiers.ByAnnotationName(annotation.Primary), qualifiers.Primary()},
		{"annotation name vs any", []inject.BeanType{anyBean, plain},
			qualifiers.ByAnnotationName(annotation.Any), qualifiers.Any()},
		{"type arguments vs exact name", []inject.BeanType{raw, ofInt},
			qualifiers.ByTypeArguments(reflect.TypeFor[int]()), qualifiers.ByExactTypeArgumentName("int")},
		{"int vs string member", []inject.BeanType{zoneInt, zoneString},
			qualifiers.ByAnnotationValue(annotation.Of("Zone").With("value", 1)),
			qualifiers.ByAnnotationValue(annotation.Of("Zone").With("value", "1"))},
	}
	for _, tc := range cases {
		for _, order := range [][2]inject.Qualifier{{tc.a, tc.b}, {tc.b, tc.a}} {
			r := newRegistry(t, registry.Options{})
			r.Register(tc.beans...)
			for range 2 {
				for _, q := range order {
					want := inject.Filter(q, dataSource, tc.beans)
					if want == nil {
						want = []inject.BeanType{}
					}
					assert.Equal(t, want, r.Candidates(dataSource, q), "%s: %s after %s", tc.name, q, order[0])
				}
			}
		}
		require.False(t, tc.a.Equal(tc.b), tc.name)
		require.NotEqual(t, inject.Filter(tc.a, dataSource, tc.beans), inject.Filter(tc.b, dataSource, tc.beans), tc.name)
	}
}

func TestRegister_InvalidatesResolutions(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, registry.Options{})
	pg := inject.NewBean(reflect.TypeFor[PgDataSource]())
	r.Register(pg)
	require.Len(t, r.Candidates(dataSource, nil), 1)

	h2 := inject.NewBean(reflect.TypeFor[H2DataSource]())
	r.Register(h2)
	assert.Equal(t, []inject.BeanType{pg, h2}, r.Candidates(dataSource, nil))
	assert.Equal(t, 2, r.Len())
}

func TestNamed(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, registry.Options{})
	first := inject.NewBean(reflect.TypeFor[PgDataSource](), inject.WithName("main"))
	second := inject.NewBean(reflect.TypeFor[MysqlDataSource](), inject.WithName("main"))
	r.Register(first, second, inject.NewBean(reflect.TypeFor[Clock]()))

	got, ok := r.Named("main")
	require.True(t, ok)
	assert.Same(t, first, got)

	got, ok = r.Named("Clock")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[Clock](), got.Type())

	_, ok = r.Named("MAIN")
	assert.False(t, ok)
}

func TestRegister_NilPanics(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, registry.Options{})
	assert.PanicsWithError(t, "inject: nil argument: bean definition", func() { r.Register(nil) })
}

// Lookups racing with Register must always see a consistent generation:
// never a candidate that the qualifier rejects, and never more beans than
// were registered.
func TestConcurrentLookupsAndRegister(t *testing.T) {
	t.Parallel()

	r := newRegistry(t, registry.Options{Capacity: 64})
	r.Register(inject.NewBean(reflect.TypeFor[PgDataSource](), inject.WithName("bean-0")))

	const registrations = 50
	var g errgroup.Group
	g.Go(func() error {
		for i := 1; i <= registrations; i++ {
			r.Register(inject.NewBean(reflect.TypeFor[H2DataSource](), inject.WithName("bean-"+strconv.Itoa(i))))
		}
		return nil
	})
	for w := range 4 {
		g.Go(func() error {
			for i := range 2_000 {
				name := "bean-" + strconv.Itoa((i+w)%(registrations+1))
				for _, c := range r.Candidates(dataSource, qualifiers.ByName(name)) {
					if got := qualifiers.CandidateName(c); got != name {
						t.Errorf("candidate %q returned for %q", got, name)
						return nil
					}
				}
				if n := len(r.Candidates(dataSource, nil)); n > registrations+1 {
					t.Errorf("saw %d candidates", n)
					return nil
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	all := r.Candidates(dataSource, nil)
	assert.Len(t, all, registrations+1)
	got, err := r.Find(dataSource, qualifiers.ByName("bean-"+strconv.Itoa(registrations)))
	require.NoError(t, err)
	assert.Equal(t, "bean-50", qualifiers.CandidateName(got))
}
