package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ID is a store-wide unique entity identity
type ID uint64

// Kind names an entity kind or a union of kinds
type Kind string

const (
	KindPage         Kind = "Page"
	KindBlockquote   Kind = "Blockquote"
	KindElement      Kind = "Element"
	KindBlockElement Kind = "BlockElement"
)

// refKinds maps the lower snake case prefix used in textual refs to a concrete kind.
// Unions are deliberately absent: they have no identity of their own.
var refKinds = map[string]Kind{
	"page":       KindPage,
	"blockquote": KindBlockquote,
}

// Prefix returns the textual ref prefix for a kind ("page", "block_element")
func (k Kind) Prefix() string {
	var sb strings.Builder
	for i, r := range string(k) {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Ref is a logical edge value: the identity of an entity plus its concrete kind.
// Edges hold refs, never entity instances.
type Ref struct {
	Kind Kind `json:"kind" yaml:"kind"`
	ID   ID   `json:"id" yaml:"id"`
}

// NewRef creates a ref
func NewRef(kind Kind, id ID) Ref {
	return Ref{Kind: kind, ID: id}
}

// String returns the "kind:id" form, e.g. "blockquote:3"
func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Kind.Prefix(), r.ID)
}

// ParseRef parses "kind:id" into a Ref.
// Examples: "page:1", "Blockquote:42"
func ParseRef(s string) (Ref, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return Ref{}, fmt.Errorf("invalid ref %q: expected format 'kind:id'", s)
	}

	kind, ok := refKinds[strings.ToLower(parts[0])]
	if !ok {
		return Ref{}, fmt.Errorf("invalid ref %q: unknown entity kind %q", s, parts[0])
	}

	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid ref %q: %w", s, err)
	}

	return Ref{Kind: kind, ID: ID(id)}, nil
}

// Entity is implemented by every concrete entity kind
type Entity interface {
	EntityID() ID
	EntityKind() Kind
}

// Page is a document page. Contents is maintained by the store: every
// blockquote created with this page as its owner is appended in creation order.
type Page struct {
	ID       ID    `json:"id" mapstructure:"-"`
	Contents []Ref `json:"contents" mapstructure:"contents"`
}

func (p *Page) EntityID() ID     { return p.ID }
func (p *Page) EntityKind() Kind { return KindPage }

// Ref returns the ref pointing at this page
func (p *Page) Ref() Ref { return NewRef(KindPage, p.ID) }

// Blockquote is a quoted block of source lines
type Blockquote struct {
	ID     ID       `json:"id" mapstructure:"-"`
	Region Region   `json:"region" mapstructure:"region"`
	Lines  []string `json:"lines" mapstructure:"lines"`

	// Page containing the blockquote
	Page Ref `json:"page" mapstructure:"-"`

	// Parent element to this blockquote
	Parent *Ref `json:"parent,omitempty" mapstructure:"-"`
}

func (b *Blockquote) EntityID() ID     { return b.ID }
func (b *Blockquote) EntityKind() Kind { return KindBlockquote }

// Ref returns the ref pointing at this blockquote
func (b *Blockquote) Ref() Ref { return NewRef(KindBlockquote, b.ID) }

// Region is a span of source text
type Region struct {
	Offset   uint64    `json:"offset" yaml:"offset" mapstructure:"offset"`
	Len      uint64    `json:"len" yaml:"len" mapstructure:"len"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty" mapstructure:"position" validate:"omitempty"`
}

// Position is the line/column span of a region
type Position struct {
	Start LineColumn `json:"start" yaml:"start" mapstructure:"start"`
	End   LineColumn `json:"end" yaml:"end" mapstructure:"end"`
}

// LineColumn is a 1-based line and column pair
type LineColumn struct {
	Line   uint64 `json:"line" yaml:"line" mapstructure:"line" validate:"min=1"`
	Column uint64 `json:"column" yaml:"column" mapstructure:"column" validate:"min=1"`
}

// Before reports whether lc strictly precedes other (line-major)
func (lc LineColumn) Before(other LineColumn) bool {
	if lc.Line != other.Line {
		return lc.Line < other.Line
	}
	return lc.Column < other.Column
}

// Equal compares two regions by value
func (r Region) Equal(other Region) bool {
	if r.Offset != other.Offset || r.Len != other.Len {
		return false
	}
	if r.Position == nil || other.Position == nil {
		return r.Position == nil && other.Position == nil
	}
	return *r.Position == *other.Position
}

// Clone returns a deep copy
func (r Region) Clone() Region {
	out := r
	if r.Position != nil {
		p := *r.Position
		out.Position = &p
	}
	return out
}
