package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
)

func TestDefaultSchema(t *testing.T) {
	s := Default()

	assert.Equal(t, []models.Kind{models.KindBlockquote, models.KindPage}, s.EntityKinds())
	assert.Equal(t, []models.Kind{models.KindBlockElement, models.KindElement}, s.UnionKinds())

	contents, ok := s.Edge(models.KindPage, "contents")
	require.True(t, ok)
	assert.Equal(t, Many, contents.Cardinality)
	assert.Equal(t, Deep, contents.Policy)
	assert.True(t, contents.Maintained)
	assert.Equal(t, "contents_ids", contents.IDField())

	page, ok := s.Edge(models.KindBlockquote, "page")
	require.True(t, ok)
	assert.Equal(t, One, page.Cardinality)
	assert.Equal(t, Shallow, page.Policy)
	assert.True(t, page.Required)
	assert.Equal(t, "page_id", page.IDField())

	parent, ok := s.Edge(models.KindBlockquote, "parent")
	require.True(t, ok)
	assert.Equal(t, Optional, parent.Cardinality)
	assert.Equal(t, Shallow, parent.Policy)
	assert.Equal(t, models.KindElement, parent.Target)

	_, ok = s.Edge(models.KindBlockquote, "children")
	assert.False(t, ok)

	decl, ok := s.Entity(models.KindBlockquote)
	require.True(t, ok)
	byID, ok := decl.EdgeByIDField("parent_id")
	require.True(t, ok)
	assert.Equal(t, "parent", byID.Name)

	u, ok := s.Union(models.KindElement)
	require.True(t, ok)
	assert.True(t, u.Flatten)
}

func TestConcreteKinds(t *testing.T) {
	s := Default()

	tests := []struct {
		kind models.Kind
		want []models.Kind
	}{
		{models.KindPage, []models.Kind{models.KindPage}},
		{models.KindBlockquote, []models.Kind{models.KindBlockquote}},
		{models.KindBlockElement, []models.Kind{models.KindBlockquote}},
		{models.KindElement, []models.Kind{models.KindBlockquote}},
		{"Paragraph", nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, s.ConcreteKinds(tt.kind))
		})
	}

	assert.True(t, s.Accepts(models.KindElement, models.KindBlockquote))
	assert.False(t, s.Accepts(models.KindElement, models.KindPage))
	assert.True(t, s.Accepts(models.KindPage, models.KindPage))
}

func TestValidateRejectsBadDeclarations(t *testing.T) {
	page := EntityDecl{Kind: "A", Fields: []FieldDecl{{Name: "id", Derived: true}}}

	tests := []struct {
		name     string
		entities []EntityDecl
		unions   []UnionDecl
	}{
		{
			name:     "unknown edge target",
			entities: []EntityDecl{{Kind: "A", Edges: []EdgeDecl{{Name: "b", Target: "B"}}}},
		},
		{
			name: "edge clashes with field",
			entities: []EntityDecl{{
				Kind:   "A",
				Fields: []FieldDecl{{Name: "b"}},
				Edges:  []EdgeDecl{{Name: "b", Target: "A"}},
			}},
		},
		{
			name: "edge id field clashes with field",
			entities: []EntityDecl{{
				Kind:   "A",
				Fields: []FieldDecl{{Name: "b_id"}},
				Edges:  []EdgeDecl{{Name: "b", Target: "A"}},
			}},
		},
		{
			name:     "required many edge",
			entities: []EntityDecl{{Kind: "A", Edges: []EdgeDecl{{Name: "b", Target: "A", Cardinality: Many, Required: true}}}},
		},
		{
			name:     "duplicate entity",
			entities: []EntityDecl{page, page},
		},
		{
			name:     "empty union",
			entities: []EntityDecl{page},
			unions:   []UnionDecl{{Kind: "U"}},
		},
		{
			name:     "union with unknown variant",
			entities: []EntityDecl{page},
			unions:   []UnionDecl{{Kind: "U", Variants: []Variant{{Tag: "X", Kind: "X"}}}},
		},
		{
			name:     "cyclic unions",
			entities: []EntityDecl{page},
			unions: []UnionDecl{
				{Kind: "U", Variants: []Variant{{Tag: "V", Kind: "V"}}},
				{Kind: "V", Variants: []Variant{{Tag: "U", Kind: "U"}}},
			},
		},
		{
			name:     "union clashes with entity",
			entities: []EntityDecl{page},
			unions:   []UnionDecl{{Kind: "A", Variants: []Variant{{Tag: "A", Kind: "A"}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entities, tt.unions)
			assert.Error(t, err)
		})
	}
}

func TestCheck(t *testing.T) {
	s := Default()
	region := models.Region{Offset: 0, Len: 4}

	tests := []struct {
		name    string
		kind    models.Kind
		fields  Fields
		wantErr bool
	}{
		{name: "empty page", kind: models.KindPage, fields: Fields{}},
		{name: "page with empty contents", kind: models.KindPage, fields: Fields{"contents": []interface{}{}}},
		{name: "page with null contents", kind: models.KindPage, fields: Fields{"contents": nil}},
		{name: "page with contents", kind: models.KindPage, fields: Fields{"contents": []interface{}{"blockquote:2"}}, wantErr: true},
		{name: "page with scalar contents", kind: models.KindPage, fields: Fields{"contents": "blockquote:2"}, wantErr: true},
		{name: "page with id", kind: models.KindPage, fields: Fields{"id": 3}, wantErr: true},
		{
			name:   "blockquote",
			kind:   models.KindBlockquote,
			fields: Fields{"region": region, "lines": []string{"> a"}, "page": 1},
		},
		{
			name:   "blockquote with parent ref",
			kind:   models.KindBlockquote,
			fields: Fields{"region": region, "lines": []string{}, "page": "page:1", "parent": "blockquote:2"},
		},
		{
			name:   "blockquote with null parent",
			kind:   models.KindBlockquote,
			fields: Fields{"region": region, "lines": []string{}, "page": 1, "parent": nil},
		},
		{
			name:    "missing lines",
			kind:    models.KindBlockquote,
			fields:  Fields{"region": region, "page": 1},
			wantErr: true,
		},
		{
			name:    "missing region",
			kind:    models.KindBlockquote,
			fields:  Fields{"lines": []string{}, "page": 1},
			wantErr: true,
		},
		{
			name:    "missing page",
			kind:    models.KindBlockquote,
			fields:  Fields{"region": region, "lines": []string{}},
			wantErr: true,
		},
		{
			name:    "null page",
			kind:    models.KindBlockquote,
			fields:  Fields{"region": region, "lines": []string{}, "page": nil},
			wantErr: true,
		},
		{
			name:    "list for exactly-one edge",
			kind:    models.KindBlockquote,
			fields:  Fields{"region": region, "lines": []string{}, "page": []int{1, 2}},
			wantErr: true,
		},
		{
			name:    "list for optional edge",
			kind:    models.KindBlockquote,
			fields:  Fields{"region": region, "lines": []string{}, "page": 1, "parent": []int{2}},
			wantErr: true,
		},
		{
			name:    "unknown field",
			kind:    models.KindBlockquote,
			fields:  Fields{"region": region, "lines": []string{}, "page": 1, "title": "x"},
			wantErr: true,
		},
		{
			name:    "malformed ref",
			kind:    models.KindBlockquote,
			fields:  Fields{"region": region, "lines": []string{}, "page": "page-1"},
			wantErr: true,
		},
		{
			name:    "negative id",
			kind:    models.KindBlockquote,
			fields:  Fields{"region": region, "lines": []string{}, "page": -1},
			wantErr: true,
		},
		{name: "union kind", kind: models.KindElement, fields: Fields{}, wantErr: true},
		{name: "unknown kind", kind: "Paragraph", fields: Fields{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checked, err := s.Check(tt.kind, tt.fields)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, checked.Kind)
		})
	}
}

func TestCheckCollectsEdgeInputs(t *testing.T) {
	s := Default()
	checked, err := s.Check(models.KindBlockquote, Fields{
		"region": models.Region{},
		"lines":  []string{},
		"page":   float64(1),
		"parent": models.NewRef(models.KindBlockquote, 2),
	})
	require.NoError(t, err)

	require.Len(t, checked.Edges["page"], 1)
	assert.Nil(t, checked.Edges["page"][0].Ref)
	assert.Equal(t, models.ID(1), checked.Edges["page"][0].ID)

	require.Len(t, checked.Edges["parent"], 1)
	require.NotNil(t, checked.Edges["parent"][0].Ref)
	assert.Equal(t, "blockquote:2", checked.Edges["parent"][0].String())
}

func TestParseEdgeInput(t *testing.T) {
	ref := models.NewRef(models.KindPage, 4)

	tests := []struct {
		name    string
		value   interface{}
		wantRef *models.Ref
		wantID  models.ID
		wantErr bool
	}{
		{name: "ref", value: ref, wantRef: &ref},
		{name: "ref pointer", value: &ref, wantRef: &ref},
		{name: "string", value: "page:4", wantRef: &ref},
		{name: "id", value: models.ID(4), wantID: 4},
		{name: "int", value: 4, wantID: 4},
		{name: "uint32", value: uint32(4), wantID: 4},
		{name: "integral float", value: 4.0, wantID: 4},
		{name: "fractional float", value: 4.5, wantErr: true},
		{name: "negative float", value: -1.0, wantErr: true},
		{name: "negative int", value: -4, wantErr: true},
		{name: "nil ref pointer", value: (*models.Ref)(nil), wantErr: true},
		{name: "bool", value: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseEdgeInput(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantRef != nil {
				require.NotNil(t, in.Ref)
				assert.Equal(t, *tt.wantRef, *in.Ref)
				return
			}
			assert.Nil(t, in.Ref)
			assert.Equal(t, tt.wantID, in.ID)
		})
	}
}

func TestDecodeRegion(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    models.Region
		wantErr bool
	}{
		{
			name:  "struct",
			value: models.Region{Offset: 2, Len: 3},
			want:  models.Region{Offset: 2, Len: 3},
		},
		{
			name: "json map",
			value: map[string]interface{}{
				"offset": float64(5),
				"len":    float64(7),
				"position": map[string]interface{}{
					"start": map[string]interface{}{"line": float64(1), "column": float64(1)},
					"end":   map[string]interface{}{"line": float64(1), "column": float64(8)},
				},
			},
			want: models.Region{Offset: 5, Len: 7, Position: &models.Position{
				Start: models.LineColumn{Line: 1, Column: 1},
				End:   models.LineColumn{Line: 1, Column: 8},
			}},
		},
		{
			name:    "unknown key",
			value:   map[string]interface{}{"offset": 1, "length": 2},
			wantErr: true,
		},
		{
			name:  "integral floats",
			value: map[string]interface{}{"offset": float64(2), "len": float64(3)},
			want:  models.Region{Offset: 2, Len: 3},
		},
		{
			name:    "fractional offset",
			value:   map[string]interface{}{"offset": 1.5, "len": float64(3)},
			wantErr: true,
		},
		{
			name:    "negative len",
			value:   map[string]interface{}{"offset": float64(0), "len": float64(-1)},
			wantErr: true,
		},
		{
			name: "fractional column",
			value: map[string]interface{}{
				"offset": float64(0),
				"len":    float64(1),
				"position": map[string]interface{}{
					"start": map[string]interface{}{"line": float64(1), "column": 1.25},
					"end":   map[string]interface{}{"line": float64(1), "column": float64(2)},
				},
			},
			wantErr: true,
		},
		{
			name: "end before start",
			value: models.Region{Position: &models.Position{
				Start: models.LineColumn{Line: 2, Column: 1},
				End:   models.LineColumn{Line: 1, Column: 4},
			}},
			wantErr: true,
		},
		{
			name: "zero line",
			value: models.Region{Position: &models.Position{
				Start: models.LineColumn{Line: 0, Column: 1},
				End:   models.LineColumn{Line: 1, Column: 1},
			}},
			wantErr: true,
		},
		{
			name:    "nil pointer",
			value:   (*models.Region)(nil),
			wantErr: true,
		},
		{
			name:    "scalar",
			value:   "0..4",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRegion(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %+v", got)
		})
	}
}

func TestDecodeLines(t *testing.T) {
	lines, err := DecodeLines([]interface{}{"> a", "> b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"> a", "> b"}, lines)

	lines, err = DecodeLines([]string{})
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, err = DecodeLines("> a")
	assert.Error(t, err)
	_, err = DecodeLines([]interface{}{1, 2})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	d := Default().Describe()

	require.Len(t, d.Entities, 2)
	assert.Equal(t, models.KindBlockquote, d.Entities[0].Kind)
	require.Len(t, d.Entities[0].Edges, 2)
	assert.Equal(t, "parent_id", d.Entities[0].Edges[1].IDField)
	assert.Equal(t, "shallow", d.Entities[0].Edges[1].Policy)

	require.Len(t, d.Unions, 2)
	assert.Equal(t, models.KindElement, d.Unions[1].Kind)
	assert.Equal(t, []models.Kind{models.KindBlockquote}, d.Unions[1].Concrete)
}
