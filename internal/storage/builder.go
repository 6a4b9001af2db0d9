package storage

import (
	"context"

	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/schema"
)

// PageBuilder accumulates the fields of a new page
type PageBuilder struct {
	fields schema.Fields
}

// NewPage starts building a page
func NewPage() *PageBuilder {
	return &PageBuilder{fields: schema.Fields{}}
}

// Create stores the page
func (b *PageBuilder) Create(ctx context.Context, s Store) (models.ID, error) {
	return s.Create(ctx, models.KindPage, b.fields)
}

// BlockquoteBuilder accumulates the fields of a new blockquote.
// Fields never set are reported missing on Create.
type BlockquoteBuilder struct {
	fields schema.Fields
}

// NewBlockquote starts building a blockquote
func NewBlockquote() *BlockquoteBuilder {
	return &BlockquoteBuilder{fields: schema.Fields{}}
}

func (b *BlockquoteBuilder) Region(r models.Region) *BlockquoteBuilder {
	b.fields["region"] = r
	return b
}

func (b *BlockquoteBuilder) Lines(lines []string) *BlockquoteBuilder {
	if lines == nil {
		lines = []string{}
	}
	b.fields["lines"] = lines
	return b
}

func (b *BlockquoteBuilder) Page(id models.ID) *BlockquoteBuilder {
	b.fields["page"] = models.NewRef(models.KindPage, id)
	return b
}

// Parent sets the parent element; nil means no parent
func (b *BlockquoteBuilder) Parent(parent *models.Ref) *BlockquoteBuilder {
	b.fields["parent"] = parent
	return b
}

// Fields returns a copy of the accumulated fields
func (b *BlockquoteBuilder) Fields() schema.Fields {
	out := make(schema.Fields, len(b.fields))
	for k, v := range b.fields {
		out[k] = v
	}
	return out
}

// Create stores the blockquote
func (b *BlockquoteBuilder) Create(ctx context.Context, s Store) (models.ID, error) {
	return s.Create(ctx, models.KindBlockquote, b.Fields())
}
