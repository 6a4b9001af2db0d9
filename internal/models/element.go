package models

import "fmt"

// BlockElementTag identifies the concrete variant held by a BlockElement
type BlockElementTag string

const (
	BlockElementBlockquote BlockElementTag = "Blockquote"
)

// BlockElement is a closed union over block-level entity kinds.
// It has no identity of its own; ID and equality delegate to the wrapped variant.
type BlockElement struct {
	Tag        BlockElementTag
	Blockquote *Blockquote
}

// WrapBlockElement wraps a concrete entity that may appear as a block element
func WrapBlockElement(e Entity) (BlockElement, error) {
	switch v := e.(type) {
	case *Blockquote:
		return BlockElement{Tag: BlockElementBlockquote, Blockquote: v}, nil
	default:
		return BlockElement{}, fmt.Errorf("%s is not a BlockElement variant", kindOf(e))
	}
}

// Kind returns the concrete kind of the wrapped variant
func (b BlockElement) Kind() Kind {
	switch b.Tag {
	case BlockElementBlockquote:
		return KindBlockquote
	}
	return ""
}

// AsConcrete returns the wrapped entity
func (b BlockElement) AsConcrete() Entity {
	switch b.Tag {
	case BlockElementBlockquote:
		return b.Blockquote
	}
	return nil
}

// ID returns the identity of the wrapped variant
func (b BlockElement) ID() ID {
	if e := b.AsConcrete(); e != nil {
		return e.EntityID()
	}
	return 0
}

// Ref returns the ref of the wrapped variant
func (b BlockElement) Ref() Ref {
	return NewRef(b.Kind(), b.ID())
}

// Equal compares by the identity of the wrapped variant
func (b BlockElement) Equal(other BlockElement) bool {
	return b.Tag == other.Tag && b.ID() == other.ID()
}

// ElementTag identifies the category held by an Element
type ElementTag string

const (
	ElementBlock ElementTag = "Block"
)

// Element is a closed union over element categories. Its Block variant is
// flattened: an Element resolves to the fields of the wrapped block's variant.
type Element struct {
	Tag   ElementTag
	Block *BlockElement
}

// WrapElement wraps a concrete entity that may appear as an element
func WrapElement(e Entity) (Element, error) {
	block, err := WrapBlockElement(e)
	if err != nil {
		return Element{}, fmt.Errorf("%s is not an Element variant", kindOf(e))
	}
	return Element{Tag: ElementBlock, Block: &block}, nil
}

// Kind returns the concrete kind of the innermost wrapped variant
func (el Element) Kind() Kind {
	switch el.Tag {
	case ElementBlock:
		if el.Block != nil {
			return el.Block.Kind()
		}
	}
	return ""
}

// AsConcrete returns the innermost wrapped entity
func (el Element) AsConcrete() Entity {
	switch el.Tag {
	case ElementBlock:
		if el.Block != nil {
			return el.Block.AsConcrete()
		}
	}
	return nil
}

// ID returns the identity of the innermost wrapped variant
func (el Element) ID() ID {
	if e := el.AsConcrete(); e != nil {
		return e.EntityID()
	}
	return 0
}

// Ref returns the ref of the innermost wrapped variant
func (el Element) Ref() Ref {
	return NewRef(el.Kind(), el.ID())
}

// Equal compares by the identity of the innermost wrapped variant
func (el Element) Equal(other Element) bool {
	return el.Tag == other.Tag && el.Kind() == other.Kind() && el.ID() == other.ID()
}

func kindOf(e Entity) Kind {
	if e == nil {
		return "<nil>"
	}
	return e.EntityKind()
}
