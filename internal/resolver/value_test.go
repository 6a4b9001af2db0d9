package resolver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
)

func sampleTree() Value {
	return Object(
		FieldValue{Name: "id", Value: Scalar(models.ID(2))},
		FieldValue{Name: "lines", Value: List([]Value{Scalar("> a"), Scalar("> b")})},
		FieldValue{Name: "empty", Value: List(nil)},
		FieldValue{Name: "page", Value: Identity(models.NewRef(models.KindPage, 1))},
		FieldValue{Name: "parent", Value: Absent()},
		FieldValue{Name: "title", Value: Failed(errors.ResolutionErrorf(`Blockquote has no field "title"`))},
		FieldValue{Name: "numbers", Value: List([]Value{Scalar(-3), Scalar(1.5), Scalar(true)})},
	)
}

func TestValueMarshalJSON(t *testing.T) {
	data, err := json.Marshal(sampleTree())
	require.NoError(t, err)

	want := `{"id":2,"lines":["> a","> b"],"empty":[],"page":{"$ref":"page:1"},"parent":null,` +
		`"title":{"$error":{"type":"RESOLUTION","message":"Blockquote has no field \"title\""}},` +
		`"numbers":[-3,1.5,true]}`
	assert.Equal(t, want, string(data), "fields keep their order")
}

func TestValueRoundTrip(t *testing.T) {
	tree := sampleTree()
	data, err := json.Marshal(tree)
	require.NoError(t, err)

	parsed, err := ParseValue(data)
	require.NoError(t, err)
	assert.True(t, tree.Equal(parsed), "got %s", data)
	assert.Equal(t, []string{"id", "lines", "empty", "page", "parent", "title", "numbers"}, parsed.Names())

	id, ok := parsed.Get("id")
	require.True(t, ok)
	assert.Equal(t, uint64(2), id.Scalar)

	numbers, _ := parsed.Get("numbers")
	assert.Equal(t, int64(-3), numbers.Items[0].Scalar)
	assert.Equal(t, 1.5, numbers.Items[1].Scalar)

	page, _ := parsed.Get("page")
	assert.Equal(t, RefValue, page.Type)
	assert.Equal(t, models.NewRef(models.KindPage, 1), page.Ref)

	parent, _ := parsed.Get("parent")
	assert.Equal(t, AbsentValue, parent.Type)

	// Re-encoding is byte-identical
	again, err := json.Marshal(parsed)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestValueUnmarshalJSON(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`[{"$ref":"blockquote:3"},{"$ref":"blockquote:4"}]`), &v))
	require.Equal(t, ListValue, v.Type)
	require.Len(t, v.Items, 2)
	assert.Equal(t, models.NewRef(models.KindBlockquote, 4), v.Items[1].Ref)
}

func TestParseValueErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"trailing data", `{} {}`},
		{"bad ref", `{"$ref":"element:1"}`},
		{"ref not a string", `{"$ref":1}`},
		{"error without message", `{"$error":{"type":"RESOLUTION"}}`},
		{"truncated", `[1,`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseValue([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Scalar(uint64(3)).Equal(Scalar(3)))
	assert.True(t, Scalar(3).Equal(Scalar(3.0)))
	assert.False(t, Scalar("3").Equal(Scalar(3)))
	assert.False(t, Absent().Equal(List(nil)))
	assert.False(t, Object(FieldValue{Name: "a", Value: Scalar(1)}).Equal(Object(FieldValue{Name: "b", Value: Scalar(1)})))
	assert.False(t, List([]Value{Scalar(1)}).Equal(List([]Value{Scalar(1), Scalar(2)})))
}

func TestValueErrors(t *testing.T) {
	tree := Object(
		FieldValue{Name: "id", Value: Scalar(1)},
		FieldValue{Name: "contents", Value: List([]Value{
			Object(FieldValue{Name: "x", Value: Failed(errors.ResolutionErrorf("no x"))}),
		})},
	)
	errs := tree.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "RESOLUTION", errs["contents.0.x"].Type)

	errs = sampleTree().Errors()
	assert.Equal(t, []string{"title"}, mapKeys(errs))
	assert.Empty(t, Object(FieldValue{Name: "id", Value: Scalar(1)}).Errors())
}

func mapKeys(m map[string]errors.Marker) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
