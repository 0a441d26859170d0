package annotation

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Members(t *testing.T) {
	t.Parallel()

	typ := reflect.TypeFor[int]()
	v := Of("Cache").
		With(ValueMember, "users").
		With("types", []reflect.Type{typ}).
		With("nested", Of("Inner").With(ValueMember, "x"))

	s, ok := v.StringValue(ValueMember)
	require.True(t, ok)
	assert.Equal(t, "users", s)
	assert.Equal(t, []string{"users"}, v.Strings(ValueMember))
	assert.Equal(t, []reflect.Type{typ}, v.Types("types"))

	nested, ok := v.Annotation("nested")
	require.True(t, ok)
	assert.Equal(t, "Inner", nested.Name)

	_, ok = v.StringValue("missing")
	assert.False(t, ok)
	assert.False(t, v.IsZero())
	assert.True(t, Value{}.IsZero())
}

func TestValue_WithDoesNotAlias(t *testing.T) {
	t.Parallel()

	base := Of("A").With("x", 1)
	changed := base.With("x", 2)

	x, _ := base.Member("x")
	assert.Equal(t, 1, x)
	y, _ := changed.Member("x")
	assert.Equal(t, 2, y)
}

func TestValue_Equal(t *testing.T) {
	t.Parallel()

	a := Of("A").With("n", 1).With("tags", []string{"a", "b"}).With("inner", Of("B").With("v", "x"))
	b := Of("A").With("n", 1).With("tags", []string{"a", "b"}).With("inner", Of("B").With("v", "x"))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(b.With("n", 2)))
	assert.False(t, a.Equal(b.With("inner", Of("B").With("v", "y"))))
	assert.False(t, Of("A").Equal(Of("B")))
	assert.True(t, Of("A").Equal(Value{Name: "A", Members: map[string]any{}}))
}

func TestValue_BindingMembers(t *testing.T) {
	t.Parallel()

	v := Of("Q").With("region", "eu").With("description", "ignored").WithNonBinding("description")
	assert.Equal(t, map[string]any{"region": "eu"}, v.BindingMembers())
	assert.Len(t, v.Members, 2)
}

func TestValue_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "@Primary", Of(Primary).String())
	assert.Equal(t, "@Named(b=2, value=x)", Of(Named).With("value", "x").With("b", 2).String())
}

func TestMetadata_DeclaredAndInherited(t *testing.T) {
	t.Parallel()

	md := NewBuilder().
		Annotate(Of(Named).With(ValueMember, "primaryDb")).
		Inherit(Of("Singleton")).
		Build()

	assert.True(t, md.HasAnnotation(Named))
	assert.True(t, md.HasDeclaredAnnotation(Named))
	assert.True(t, md.HasAnnotation("Singleton"))
	assert.False(t, md.HasDeclaredAnnotation("Singleton"))
	assert.False(t, md.HasAnnotation(Primary))
	assert.Equal(t, []string{Named, "Singleton"}, md.AnnotationNames())

	v, ok := md.FindAnnotation(Named)
	require.True(t, ok)
	name, _ := v.StringValue(ValueMember)
	assert.Equal(t, "primaryDb", name)

	_, ok = md.FindDeclaredAnnotation("Singleton")
	assert.False(t, ok)
	assert.False(t, md.IsEmpty())
	assert.True(t, Empty.IsEmpty())
}

func TestMetadata_TransitiveStereotypes(t *testing.T) {
	t.Parallel()

	// @Fast is annotated with @Cached, which is annotated with @Qualifier.
	md := NewBuilder().
		Annotate(Of("Fast"), Of("Cached").With("ttl", 30)).
		Stereotype("Cached", Of(Qualifier)).
		Inherit(Of("Legacy"), Of(Qualifier)).
		Build()

	assert.True(t, md.HasStereotype("Fast"))
	assert.True(t, md.HasStereotype("Cached"))
	assert.True(t, md.HasStereotype(Qualifier))
	assert.True(t, md.HasDeclaredStereotype(Qualifier))
	assert.False(t, md.HasAnnotation("Cached"), "a stereotype is not a present annotation")

	assert.Equal(t, []string{"Fast", "Legacy"}, md.AnnotationNamesByStereotype(Qualifier))
	assert.Equal(t, []string{"Fast"}, md.AnnotationNamesByStereotype("Cached"))

	cached, ok := md.FindAnnotation("Cached")
	require.True(t, ok)
	ttl, _ := cached.Member("ttl")
	assert.Equal(t, 30, ttl)
}

func TestMetadata_InheritedStereotypeIsNotDeclared(t *testing.T) {
	t.Parallel()

	md := NewBuilder().Inherit(Of("Legacy"), Of(Qualifier)).Build()
	assert.True(t, md.HasStereotype(Qualifier))
	assert.False(t, md.HasDeclaredStereotype(Qualifier))
	_, ok := md.FindDeclaredAnnotation(Qualifier)
	assert.False(t, ok)
}

func TestMetadata_StereotypeCycle(t *testing.T) {
	t.Parallel()

	md := NewBuilder().
		Annotate(Of("A"), Of("B")).
		Stereotype("B", Of("A")).
		Build()
	assert.True(t, md.HasStereotype("B"))
	assert.Equal(t, []string{"A"}, md.AnnotationNamesByStereotype("A"))
}

func TestMetadata_Repeatable(t *testing.T) {
	t.Parallel()

	md := NewBuilder().
		Repeat(Of(InterceptorBinding).With(ValueMember, "Logged")).
		Repeat(Of(InterceptorBinding).With(ValueMember, "Timed")).
		Build()

	vs := md.AnnotationValuesByType(InterceptorBinding)
	require.Len(t, vs, 2)
	first, _ := vs[0].StringValue(ValueMember)
	second, _ := vs[1].StringValue(ValueMember)
	assert.Equal(t, "Logged", first)
	assert.Equal(t, "Timed", second)
	assert.True(t, md.HasDeclaredAnnotation(InterceptorBinding))
	assert.Empty(t, md.AnnotationValuesByType("Other"))
}

func TestMetadata_IsImmutableAfterBuild(t *testing.T) {
	t.Parallel()

	b := NewBuilder().Annotate(Of("A"))
	md := b.Build()
	b.Annotate(Of("B"))

	assert.False(t, md.HasAnnotation("B"))
	names := md.AnnotationNames()
	names[0] = "mutated"
	assert.Equal(t, []string{"A"}, md.AnnotationNames())
}

func TestBuilder_EmptyNamePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewBuilder().Annotate(Value{}) })
}
