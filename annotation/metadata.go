package annotation

import (
	"maps"
	"slices"
)

// Metadata answers annotation queries about one element. Implementations
// are immutable and safe for concurrent use.
//
// A stereotype of an annotation is any meta-annotation reachable from it,
// transitively; every annotation is also its own stereotype.
type Metadata interface {
	// HasAnnotation reports whether the annotation is declared or inherited.
	HasAnnotation(name string) bool
	// HasDeclaredAnnotation reports whether the annotation is declared.
	HasDeclaredAnnotation(name string) bool
	// HasStereotype reports whether any present annotation has the
	// stereotype.
	HasStereotype(name string) bool
	// HasDeclaredStereotype is HasStereotype restricted to declared
	// annotations.
	HasDeclaredStereotype(name string) bool
	// FindAnnotation returns the value of a present annotation or stereotype.
	FindAnnotation(name string) (Value, bool)
	// FindDeclaredAnnotation is FindAnnotation restricted to declared
	// annotations and their stereotypes.
	FindDeclaredAnnotation(name string) (Value, bool)
	// AnnotationNamesByStereotype returns the present annotations that have
	// the stereotype, in declaration order.
	AnnotationNamesByStereotype(stereotype string) []string
	// AnnotationValuesByType returns every value of a repeatable annotation.
	AnnotationValuesByType(name string) []Value
	// AnnotationNames returns the present annotation names in order.
	AnnotationNames() []string
	// IsEmpty reports whether no annotation is present.
	IsEmpty() bool
}

// Empty is metadata with no annotations.
var Empty Metadata = &metadata{}

type metadata struct {
	names        []string // present, declaration order (declared first)
	declared     map[string]Value
	inherited    map[string]Value
	repeated     map[string][]Value
	stereo       map[string][]string // stereotype -> present annotations carrying it
	declStereo   map[string][]string // same, declared annotations only
	stereoValues map[string]Value    // meta-annotation values
	declValues   map[string]Value    // meta-annotation values reachable from declared annotations
}

func (m *metadata) HasAnnotation(name string) bool {
	_, d := m.declared[name]
	_, i := m.inherited[name]
	return d || i
}

func (m *metadata) HasDeclaredAnnotation(name string) bool {
	_, ok := m.declared[name]
	return ok
}

func (m *metadata) HasStereotype(name string) bool {
	return len(m.stereo[name]) > 0
}

func (m *metadata) HasDeclaredStereotype(name string) bool {
	return len(m.declStereo[name]) > 0
}

func (m *metadata) FindAnnotation(name string) (Value, bool) {
	if v, ok := m.declared[name]; ok {
		return v, true
	}
	if v, ok := m.inherited[name]; ok {
		return v, true
	}
	v, ok := m.stereoValues[name]
	return v, ok
}

func (m *metadata) FindDeclaredAnnotation(name string) (Value, bool) {
	if v, ok := m.declared[name]; ok {
		return v, true
	}
	v, ok := m.declValues[name]
	return v, ok
}

func (m *metadata) AnnotationNamesByStereotype(stereotype string) []string {
	return slices.Clone(m.stereo[stereotype])
}

func (m *metadata) AnnotationValuesByType(name string) []Value {
	return slices.Clone(m.repeated[name])
}

func (m *metadata) AnnotationNames() []string { return slices.Clone(m.names) }

func (m *metadata) IsEmpty() bool { return len(m.names) == 0 }

// Builder assembles Metadata. It is not safe for concurrent use; the
// Metadata it builds is.
type Builder struct {
	order     []string
	declared  map[string]Value
	inherited map[string]Value
	repeated  map[string][]Value
	parents   map[string][]string // annotation -> its meta-annotation names
	metaVals  map[string]Value
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		declared:  map[string]Value{},
		inherited: map[string]Value{},
		repeated:  map[string][]Value{},
		parents:   map[string][]string{},
		metaVals:  map[string]Value{},
	}
}

// Annotate declares v, optionally with the meta-annotations its type
// carries. Re-annotating a name replaces its value.
func (b *Builder) Annotate(v Value, meta ...Value) *Builder {
	b.add(b.declared, v)
	b.Stereotype(v.Name, meta...)
	return b
}

// Inherit records v as inherited rather than declared.
func (b *Builder) Inherit(v Value, meta ...Value) *Builder {
	if _, ok := b.declared[v.Name]; ok {
		return b
	}
	b.add(b.inherited, v)
	b.Stereotype(v.Name, meta...)
	return b
}

// Repeat declares another value of a repeatable annotation. The first
// value also answers FindAnnotation.
func (b *Builder) Repeat(v Value, meta ...Value) *Builder {
	if _, ok := b.declared[v.Name]; !ok {
		b.add(b.declared, v)
	}
	b.repeated[v.Name] = append(b.repeated[v.Name], v)
	b.Stereotype(v.Name, meta...)
	return b
}

// Stereotype records that the annotation type name is itself annotated
// with meta, without making name present. It is how chains of
// meta-annotations are described.
func (b *Builder) Stereotype(name string, meta ...Value) *Builder {
	for _, mv := range meta {
		if !slices.Contains(b.parents[name], mv.Name) {
			b.parents[name] = append(b.parents[name], mv.Name)
		}
		if _, ok := b.metaVals[mv.Name]; !ok {
			b.metaVals[mv.Name] = mv
		}
	}
	return b
}

func (b *Builder) add(into map[string]Value, v Value) {
	if v.Name == "" {
		panic("annotation: empty annotation name")
	}
	if _, seen := into[v.Name]; !seen && !b.present(v.Name) {
		b.order = append(b.order, v.Name)
	}
	into[v.Name] = v
}

func (b *Builder) present(name string) bool {
	_, d := b.declared[name]
	_, i := b.inherited[name]
	return d || i
}

// Build freezes the builder into Metadata, resolving stereotypes
// transitively. The builder can keep being used afterwards.
func (b *Builder) Build() Metadata {
	m := &metadata{
		declared:     maps.Clone(b.declared),
		inherited:    maps.Clone(b.inherited),
		repeated:     make(map[string][]Value, len(b.repeated)),
		stereo:       map[string][]string{},
		declStereo:   map[string][]string{},
		stereoValues: map[string]Value{},
		declValues:   map[string]Value{},
	}
	for k, vs := range b.repeated {
		m.repeated[k] = slices.Clone(vs)
	}

	// declared annotations first, then inherited ones
	for _, name := range b.order {
		if _, ok := b.declared[name]; ok {
			m.names = append(m.names, name)
		}
	}
	for _, name := range b.order {
		if _, ok := b.declared[name]; !ok {
			m.names = append(m.names, name)
		}
	}

	for _, name := range m.names {
		_, isDeclared := b.declared[name]
		for _, s := range b.closure(name) {
			m.stereo[s] = append(m.stereo[s], name)
			if isDeclared {
				m.declStereo[s] = append(m.declStereo[s], name)
			}
			if s == name {
				continue
			}
			if mv, ok := b.metaVals[s]; ok {
				if _, set := m.stereoValues[s]; !set {
					m.stereoValues[s] = mv
				}
				if _, set := m.declValues[s]; isDeclared && !set {
					m.declValues[s] = mv
				}
			}
		}
	}
	return m
}

// closure returns name followed by its meta-annotations, breadth-first,
// each once. Cycles are tolerated.
func (b *Builder) closure(name string) []string {
	out := []string{name}
	for i := 0; i < len(out); i++ {
		for _, p := range b.parents[out[i]] {
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
	}
	return out
}
