package schema

import (
	"fmt"
	"sort"

	"github.com/rohankatakam/pagegraph/internal/models"
)

// Cardinality fixes how many targets an edge holds
type Cardinality int

const (
	// One - exactly one target
	One Cardinality = iota
	// Optional - zero or one target
	Optional
	// Many - ordered sequence of targets
	Many
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Optional:
		return "optional"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// Policy is the default depth policy of an edge
type Policy int

const (
	// Shallow edges resolve to the target's identity unless a nested selection is given
	Shallow Policy = iota
	// Deep edges resolve to the fully expanded target
	Deep
)

func (p Policy) String() string {
	if p == Deep {
		return "deep"
	}
	return "shallow"
}

// FieldDecl declares a scalar or value-type field
type FieldDecl struct {
	Name     string `json:"name" yaml:"name"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
	// Derived fields are computed from the entity and cannot be supplied on creation
	Derived bool `json:"derived,omitempty" yaml:"derived,omitempty"`
}

// EdgeDecl declares a directional, typed edge
type EdgeDecl struct {
	Name        string
	Target      models.Kind // concrete kind or union
	Cardinality Cardinality
	Policy      Policy
	Required    bool
	// Maintained edges are written by the store, never supplied on creation
	Maintained bool
}

// IDField is the name of the derived identity-only scalar of the edge
func (e EdgeDecl) IDField() string {
	if e.Cardinality == Many {
		return e.Name + "_ids"
	}
	return e.Name + "_id"
}

// EntityDecl declares a concrete entity kind
type EntityDecl struct {
	Kind   models.Kind
	Fields []FieldDecl
	Edges  []EdgeDecl
}

// Field looks up a scalar field declaration
func (d *EntityDecl) Field(name string) (FieldDecl, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDecl{}, false
}

// Edge looks up an edge declaration
func (d *EntityDecl) Edge(name string) (EdgeDecl, bool) {
	for _, e := range d.Edges {
		if e.Name == name {
			return e, true
		}
	}
	return EdgeDecl{}, false
}

// EdgeByIDField looks up the edge whose identity-only scalar is name
func (d *EntityDecl) EdgeByIDField(name string) (EdgeDecl, bool) {
	for _, e := range d.Edges {
		if e.IDField() == name {
			return e, true
		}
	}
	return EdgeDecl{}, false
}

// Variant is one case of a union
type Variant struct {
	Tag  string      `json:"tag" yaml:"tag"`
	Kind models.Kind `json:"kind" yaml:"kind"`
}

// UnionDecl declares a closed union over kinds
type UnionDecl struct {
	Kind     models.Kind
	Variants []Variant
	// Flatten exposes the wrapped variant's fields directly
	Flatten bool
}

// Schema holds every entity and union declaration
type Schema struct {
	entities map[models.Kind]*EntityDecl
	unions   map[models.Kind]*UnionDecl
}

// New creates a schema from declarations
func New(entities []EntityDecl, unions []UnionDecl) (*Schema, error) {
	s := &Schema{
		entities: make(map[models.Kind]*EntityDecl, len(entities)),
		unions:   make(map[models.Kind]*UnionDecl, len(unions)),
	}
	for i := range entities {
		d := entities[i]
		if _, dup := s.entities[d.Kind]; dup {
			return nil, fmt.Errorf("duplicate entity kind %s", d.Kind)
		}
		s.entities[d.Kind] = &d
	}
	for i := range unions {
		u := unions[i]
		if _, dup := s.unions[u.Kind]; dup {
			return nil, fmt.Errorf("duplicate union kind %s", u.Kind)
		}
		if _, clash := s.entities[u.Kind]; clash {
			return nil, fmt.Errorf("union %s clashes with an entity kind", u.Kind)
		}
		s.unions[u.Kind] = &u
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Default returns the document schema: pages of block elements
func Default() *Schema {
	s, err := New(
		[]EntityDecl{
			{
				Kind:   models.KindPage,
				Fields: []FieldDecl{{Name: "id", Derived: true}},
				Edges: []EdgeDecl{
					{Name: "contents", Target: models.KindBlockElement, Cardinality: Many, Policy: Deep, Maintained: true},
				},
			},
			{
				Kind: models.KindBlockquote,
				Fields: []FieldDecl{
					{Name: "id", Derived: true},
					{Name: "region", Required: true},
					{Name: "lines", Required: true},
				},
				Edges: []EdgeDecl{
					{Name: "page", Target: models.KindPage, Cardinality: One, Policy: Shallow, Required: true},
					{Name: "parent", Target: models.KindElement, Cardinality: Optional, Policy: Shallow},
				},
			},
		},
		[]UnionDecl{
			{Kind: models.KindBlockElement, Variants: []Variant{{Tag: "Blockquote", Kind: models.KindBlockquote}}},
			{Kind: models.KindElement, Variants: []Variant{{Tag: "Block", Kind: models.KindBlockElement}}, Flatten: true},
		},
	)
	if err != nil {
		panic(fmt.Sprintf("default schema is invalid: %v", err))
	}
	return s
}

// Validate checks that every edge target and union variant is declared and
// that unions do not nest cyclically
func (s *Schema) Validate() error {
	for _, d := range s.entities {
		seen := make(map[string]bool)
		for _, f := range d.Fields {
			if seen[f.Name] {
				return fmt.Errorf("%s: duplicate field %s", d.Kind, f.Name)
			}
			seen[f.Name] = true
		}
		for _, e := range d.Edges {
			if seen[e.Name] || seen[e.IDField()] {
				return fmt.Errorf("%s: edge %s clashes with another field", d.Kind, e.Name)
			}
			seen[e.Name] = true
			seen[e.IDField()] = true
			if !s.Has(e.Target) {
				return fmt.Errorf("%s.%s: unknown target kind %s", d.Kind, e.Name, e.Target)
			}
			if e.Required && e.Cardinality != One {
				return fmt.Errorf("%s.%s: only exactly-one edges can be required", d.Kind, e.Name)
			}
		}
	}
	for _, u := range s.unions {
		if len(u.Variants) == 0 {
			return fmt.Errorf("union %s has no variants", u.Kind)
		}
		for _, v := range u.Variants {
			if !s.Has(v.Kind) {
				return fmt.Errorf("union %s: unknown variant kind %s", u.Kind, v.Kind)
			}
		}
		if _, err := s.concrete(u.Kind, map[models.Kind]bool{}); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether kind is declared as an entity or union
func (s *Schema) Has(kind models.Kind) bool {
	_, e := s.entities[kind]
	_, u := s.unions[kind]
	return e || u
}

// Entity returns the declaration of a concrete kind
func (s *Schema) Entity(kind models.Kind) (*EntityDecl, bool) {
	d, ok := s.entities[kind]
	return d, ok
}

// Union returns the declaration of a union kind
func (s *Schema) Union(kind models.Kind) (*UnionDecl, bool) {
	u, ok := s.unions[kind]
	return u, ok
}

// Edge returns the declaration of an edge on a concrete kind
func (s *Schema) Edge(kind models.Kind, name string) (EdgeDecl, bool) {
	d, ok := s.entities[kind]
	if !ok {
		return EdgeDecl{}, false
	}
	return d.Edge(name)
}

// ConcreteKinds flattens kind (entity or union) to the concrete kinds it may hold,
// in declaration order
func (s *Schema) ConcreteKinds(kind models.Kind) []models.Kind {
	kinds, _ := s.concrete(kind, map[models.Kind]bool{})
	return kinds
}

// Accepts reports whether a concrete kind may appear where target is expected
func (s *Schema) Accepts(target, concrete models.Kind) bool {
	for _, k := range s.ConcreteKinds(target) {
		if k == concrete {
			return true
		}
	}
	return false
}

// EntityKinds returns every concrete kind, sorted by name
func (s *Schema) EntityKinds() []models.Kind {
	kinds := make([]models.Kind, 0, len(s.entities))
	for k := range s.entities {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// UnionKinds returns every union kind, sorted by name
func (s *Schema) UnionKinds() []models.Kind {
	kinds := make([]models.Kind, 0, len(s.unions))
	for k := range s.unions {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (s *Schema) concrete(kind models.Kind, visiting map[models.Kind]bool) ([]models.Kind, error) {
	if _, ok := s.entities[kind]; ok {
		return []models.Kind{kind}, nil
	}
	u, ok := s.unions[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %s", kind)
	}
	if visiting[kind] {
		return nil, fmt.Errorf("union %s is part of a cycle", kind)
	}
	visiting[kind] = true
	defer delete(visiting, kind)

	var out []models.Kind
	for _, v := range u.Variants {
		kinds, err := s.concrete(v.Kind, visiting)
		if err != nil {
			return nil, err
		}
		out = append(out, kinds...)
	}
	return out, nil
}
