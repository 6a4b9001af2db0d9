package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Ref
		wantErr bool
	}{
		{name: "page", input: "page:1", want: Ref{Kind: KindPage, ID: 1}},
		{name: "blockquote", input: "blockquote:42", want: Ref{Kind: KindBlockquote, ID: 42}},
		{name: "case insensitive kind", input: "Blockquote:7", want: Ref{Kind: KindBlockquote, ID: 7}},
		{name: "surrounding space", input: "  page:3 ", want: Ref{Kind: KindPage, ID: 3}},
		{name: "missing separator", input: "page1", wantErr: true},
		{name: "unknown kind", input: "paragraph:1", wantErr: true},
		{name: "union kind has no identity", input: "element:1", wantErr: true},
		{name: "block element union", input: "block_element:1", wantErr: true},
		{name: "negative id", input: "page:-1", wantErr: true},
		{name: "non numeric id", input: "page:abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRef(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRefString(t *testing.T) {
	assert.Equal(t, "page:1", NewRef(KindPage, 1).String())
	assert.Equal(t, "blockquote:12", NewRef(KindBlockquote, 12).String())

	// String and ParseRef are inverses
	for _, ref := range []Ref{NewRef(KindPage, 9), NewRef(KindBlockquote, 10)} {
		parsed, err := ParseRef(ref.String())
		require.NoError(t, err)
		assert.Equal(t, ref, parsed)
	}
}

func TestKindPrefix(t *testing.T) {
	assert.Equal(t, "page", KindPage.Prefix())
	assert.Equal(t, "blockquote", KindBlockquote.Prefix())
	assert.Equal(t, "block_element", KindBlockElement.Prefix())
	assert.Equal(t, "element", KindElement.Prefix())
}

func TestRegionEqualAndClone(t *testing.T) {
	pos := &Position{Start: LineColumn{Line: 1, Column: 1}, End: LineColumn{Line: 2, Column: 5}}
	a := Region{Offset: 3, Len: 10, Position: pos}

	b := a.Clone()
	assert.True(t, a.Equal(b))
	assert.NotSame(t, a.Position, b.Position, "clone must not share the position")

	b.Position.End.Column = 6
	assert.False(t, a.Equal(b))
	assert.Equal(t, uint64(5), a.Position.End.Column)

	assert.True(t, Region{Offset: 1}.Equal(Region{Offset: 1}))
	assert.False(t, Region{Offset: 1}.Equal(Region{Offset: 1, Position: pos}))
	assert.False(t, Region{Offset: 1}.Equal(Region{Offset: 2}))
}

func TestLineColumnBefore(t *testing.T) {
	assert.True(t, LineColumn{Line: 1, Column: 9}.Before(LineColumn{Line: 2, Column: 1}))
	assert.True(t, LineColumn{Line: 2, Column: 1}.Before(LineColumn{Line: 2, Column: 2}))
	assert.False(t, LineColumn{Line: 2, Column: 2}.Before(LineColumn{Line: 2, Column: 2}))
	assert.False(t, LineColumn{Line: 3, Column: 1}.Before(LineColumn{Line: 2, Column: 9}))
}

func TestBlockquoteJSON(t *testing.T) {
	bq := &Blockquote{
		ID:     4,
		Region: Region{Offset: 0, Len: 5},
		Lines:  []string{"> a"},
		Page:   NewRef(KindPage, 1),
	}
	data, err := json.Marshal(bq)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "parent", "absent parent is omitted")

	var back Blockquote
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *bq, back)
}

func TestWrapBlockElement(t *testing.T) {
	bq := &Blockquote{ID: 3, Page: NewRef(KindPage, 1)}

	b, err := WrapBlockElement(bq)
	require.NoError(t, err)
	assert.Equal(t, BlockElementBlockquote, b.Tag)
	assert.Equal(t, KindBlockquote, b.Kind())
	assert.Same(t, bq, b.AsConcrete())
	assert.Equal(t, ID(3), b.ID())
	assert.Equal(t, NewRef(KindBlockquote, 3), b.Ref())

	_, err = WrapBlockElement(&Page{ID: 1})
	assert.Error(t, err)
	_, err = WrapBlockElement(nil)
	assert.Error(t, err)
}

func TestWrapElement(t *testing.T) {
	bq := &Blockquote{ID: 5, Page: NewRef(KindPage, 1)}

	el, err := WrapElement(bq)
	require.NoError(t, err)
	assert.Equal(t, ElementBlock, el.Tag)
	require.NotNil(t, el.Block)
	assert.Equal(t, BlockElementBlockquote, el.Block.Tag)
	assert.Equal(t, KindBlockquote, el.Kind())
	assert.Same(t, bq, el.AsConcrete())
	assert.Equal(t, NewRef(KindBlockquote, 5), el.Ref())

	_, err = WrapElement(&Page{ID: 1})
	assert.Error(t, err)
}

func TestWrapperEqualityDelegatesToIdentity(t *testing.T) {
	a, _ := WrapElement(&Blockquote{ID: 5, Lines: []string{"x"}})
	b, _ := WrapElement(&Blockquote{ID: 5, Lines: []string{"y"}})
	c, _ := WrapElement(&Blockquote{ID: 6})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, a.Block.Equal(*b.Block))
	assert.False(t, a.Block.Equal(*c.Block))
}
