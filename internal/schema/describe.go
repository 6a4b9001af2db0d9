package schema

import "github.com/rohankatakam/pagegraph/internal/models"

// Description is the serializable form of a schema
type Description struct {
	Entities []EntityDescription `json:"entities" yaml:"entities"`
	Unions   []UnionDescription  `json:"unions" yaml:"unions"`
}

type EntityDescription struct {
	Kind   models.Kind       `json:"kind" yaml:"kind"`
	Fields []FieldDecl       `json:"fields" yaml:"fields"`
	Edges  []EdgeDescription `json:"edges" yaml:"edges"`
}

type EdgeDescription struct {
	Name        string      `json:"name" yaml:"name"`
	IDField     string      `json:"id_field" yaml:"id_field"`
	Target      models.Kind `json:"target" yaml:"target"`
	Cardinality string      `json:"cardinality" yaml:"cardinality"`
	Policy      string      `json:"policy" yaml:"policy"`
	Required    bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Maintained  bool        `json:"maintained,omitempty" yaml:"maintained,omitempty"`
}

type UnionDescription struct {
	Kind     models.Kind   `json:"kind" yaml:"kind"`
	Variants []Variant     `json:"variants" yaml:"variants"`
	Flatten  bool          `json:"flatten,omitempty" yaml:"flatten,omitempty"`
	Concrete []models.Kind `json:"concrete" yaml:"concrete"`
}

// Describe lists every declaration, sorted by kind name
func (s *Schema) Describe() Description {
	var d Description
	for _, k := range s.EntityKinds() {
		decl := s.entities[k]
		ed := EntityDescription{Kind: k, Fields: decl.Fields, Edges: []EdgeDescription{}}
		for _, e := range decl.Edges {
			ed.Edges = append(ed.Edges, EdgeDescription{
				Name:        e.Name,
				IDField:     e.IDField(),
				Target:      e.Target,
				Cardinality: e.Cardinality.String(),
				Policy:      e.Policy.String(),
				Required:    e.Required,
				Maintained:  e.Maintained,
			})
		}
		d.Entities = append(d.Entities, ed)
	}
	for _, k := range s.UnionKinds() {
		u := s.unions[k]
		d.Unions = append(d.Unions, UnionDescription{
			Kind:     k,
			Variants: u.Variants,
			Flatten:  u.Flatten,
			Concrete: s.ConcreteKinds(k),
		})
	}
	return d
}
