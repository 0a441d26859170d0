// Package inject defines the candidate model the qualifiers reduce over:
// bean types, the optional definition capabilities, type arguments and
// the Go type hierarchy used for assignability.
package inject

import (
	"maps"
	"reflect"
	"slices"

	"github.com/IvanBrykalov/beancore/annotation"
)

// BeanType describes a bean implementation available for injection.
// Qualifiers never mutate candidates.
type BeanType interface {
	Type() reflect.Type
	AnnotationMetadata() annotation.Metadata
	IsPrimary() bool
	// IsContainerType reports whether the bean is a container (slice,
	// map, provider) whose element type is what is actually injected.
	IsContainerType() bool
}

// BeanDefinition is the capability of a candidate that can resolve its
// generic type arguments for a given generic type it implements.
type BeanDefinition interface {
	BeanType
	// TypeArguments returns the arguments bound for of, or nil when the
	// candidate does not parameterize it (raw).
	TypeArguments(of reflect.Type) []Argument
}

// NameResolver is the capability of a candidate that knows its own bean
// name without a Named annotation.
type NameResolver interface {
	ResolveName() (string, bool)
}

// TypeArgumentsOf returns the candidate's type arguments for of. ok is
// false when the candidate is not a BeanDefinition.
func TypeArgumentsOf(c BeanType, of reflect.Type) (args []Argument, ok bool) {
	d, ok := c.(BeanDefinition)
	if !ok {
		return nil, false
	}
	return d.TypeArguments(of), true
}

// Option configures a Bean or Definition.
type Option func(*config)

type config struct {
	md        annotation.Metadata
	primary   bool
	container bool
	name      string
	typeArgs  map[reflect.Type][]Argument
}

// WithAnnotations attaches annotation metadata.
func WithAnnotations(md annotation.Metadata) Option {
	return func(c *config) { c.md = md }
}

// WithPrimary marks the bean as primary.
func WithPrimary() Option {
	return func(c *config) { c.primary = true }
}

// WithName sets the name reported through NameResolver.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// AsContainer marks the bean as a container type.
func AsContainer() Option {
	return func(c *config) { c.container = true }
}

// WithTypeArguments binds the type arguments for a generic type the bean
// implements. Only a Definition reports them.
func WithTypeArguments(of reflect.Type, args ...Argument) Option {
	return func(c *config) {
		if c.typeArgs == nil {
			c.typeArgs = map[reflect.Type][]Argument{}
		}
		c.typeArgs[of] = args
	}
}

// Bean is a plain candidate: type, annotations and flags.
type Bean struct {
	typ reflect.Type
	cfg config
}

// NewBean returns a candidate of type t.
func NewBean(t reflect.Type, opts ...Option) *Bean {
	RequireNonNil("bean type", t)
	b := &Bean{typ: t, cfg: config{md: annotation.Empty}}
	for _, o := range opts {
		o(&b.cfg)
	}
	if b.cfg.md == nil {
		b.cfg.md = annotation.Empty
	}
	return b
}

func (b *Bean) Type() reflect.Type { return b.typ }

func (b *Bean) AnnotationMetadata() annotation.Metadata { return b.cfg.md }

// IsPrimary is true for WithPrimary beans and beans declaring Primary.
func (b *Bean) IsPrimary() bool {
	return b.cfg.primary || b.cfg.md.HasDeclaredStereotype(annotation.Primary)
}

func (b *Bean) IsContainerType() bool { return b.cfg.container }

// ResolveName returns the WithName name, if any.
func (b *Bean) ResolveName() (string, bool) {
	return b.cfg.name, b.cfg.name != ""
}

func (b *Bean) String() string {
	if b.cfg.name != "" {
		return TypeName(b.typ) + "(" + b.cfg.name + ")"
	}
	return TypeName(b.typ)
}

// Definition is a Bean that also resolves generic type arguments.
type Definition struct {
	Bean
	typeArgs map[reflect.Type][]Argument
}

// NewDefinition returns a definition of type t.
func NewDefinition(t reflect.Type, opts ...Option) *Definition {
	b := NewBean(t, opts...)
	d := &Definition{Bean: *b, typeArgs: maps.Clone(b.cfg.typeArgs)}
	d.Bean.cfg.typeArgs = nil
	return d
}

// TypeArguments returns the arguments bound for of.
func (d *Definition) TypeArguments(of reflect.Type) []Argument {
	return slices.Clone(d.typeArgs[of])
}

var (
	_ BeanDefinition = (*Definition)(nil)
	_ NameResolver   = (*Bean)(nil)
)
