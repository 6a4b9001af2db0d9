package schema

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/go-playground/validator"
	"github.com/mitchellh/mapstructure"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
)

// Fields is the untyped input of an entity creation: field or edge name to value
type Fields map[string]interface{}

// EdgeInput is one target supplied for an edge: either a full ref or a bare id
// whose kind is resolved against the edge's target kinds
type EdgeInput struct {
	Ref *models.Ref
	ID  models.ID
}

func (in EdgeInput) String() string {
	if in.Ref != nil {
		return in.Ref.String()
	}
	return fmt.Sprintf("%d", in.ID)
}

// Checked is a creation input whose shape matches its declaration
type Checked struct {
	Kind   models.Kind
	Decl   *EntityDecl
	Fields Fields
	Edges  map[string][]EdgeInput
}

var validate = validator.New()

// Check validates the shape of a creation input: known kind, known field
// names, required fields present, edge values matching their cardinality.
// It does not check that edge targets exist.
func (s *Schema) Check(kind models.Kind, fields Fields) (*Checked, error) {
	decl, ok := s.entities[kind]
	if !ok {
		if _, isUnion := s.unions[kind]; isUnion {
			return nil, errors.ValidationErrorf("cannot create %s: unions have no identity of their own", kind)
		}
		return nil, errors.ValidationErrorf("unknown entity kind %q", kind)
	}

	checked := &Checked{
		Kind:   kind,
		Decl:   decl,
		Fields: make(Fields, len(fields)),
		Edges:  make(map[string][]EdgeInput),
	}

	for _, name := range sortedKeys(fields) {
		value := fields[name]
		if f, ok := decl.Field(name); ok {
			if f.Derived {
				return nil, errors.ValidationErrorf("%s.%s is derived and cannot be set", kind, name)
			}
			if value == nil {
				continue
			}
			checked.Fields[name] = value
			continue
		}

		e, ok := decl.Edge(name)
		if !ok {
			return nil, errors.ValidationErrorf("%s has no field or edge %q", kind, name)
		}
		inputs, err := checkEdgeValue(kind, e, value)
		if err != nil {
			return nil, err
		}
		if e.Maintained && len(inputs) > 0 {
			return nil, errors.ValidationErrorf("%s.%s is maintained by the store and must be empty on creation", kind, name)
		}
		if inputs != nil {
			checked.Edges[name] = inputs
		}
	}

	for _, f := range decl.Fields {
		if _, ok := checked.Fields[f.Name]; f.Required && !ok {
			return nil, errors.ValidationErrorf("%s: missing required field %q", kind, f.Name)
		}
	}
	for _, e := range decl.Edges {
		if _, ok := checked.Edges[e.Name]; e.Required && !ok {
			return nil, errors.ValidationErrorf("%s: missing required edge %q", kind, e.Name)
		}
	}

	return checked, nil
}

func checkEdgeValue(kind models.Kind, e EdgeDecl, value interface{}) ([]EdgeInput, error) {
	isList := value != nil && isSlice(value)

	switch e.Cardinality {
	case One, Optional:
		if isList {
			return nil, errors.ValidationErrorf("%s.%s holds %s target, got a list", kind, e.Name, articleFor(e.Cardinality))
		}
		if isNil(value) {
			if e.Cardinality == One {
				return nil, errors.ValidationErrorf("%s.%s requires exactly one target, got null", kind, e.Name)
			}
			return nil, nil
		}
		in, err := ParseEdgeInput(value)
		if err != nil {
			return nil, errors.ValidationErrorf("%s.%s: %v", kind, e.Name, err)
		}
		return []EdgeInput{in}, nil

	case Many:
		if isNil(value) {
			return []EdgeInput{}, nil
		}
		if !isList {
			return nil, errors.ValidationErrorf("%s.%s holds many targets, got a single value", kind, e.Name)
		}
		rv := reflect.ValueOf(value)
		inputs := make([]EdgeInput, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			in, err := ParseEdgeInput(rv.Index(i).Interface())
			if err != nil {
				return nil, errors.ValidationErrorf("%s.%s[%d]: %v", kind, e.Name, i, err)
			}
			inputs = append(inputs, in)
		}
		return inputs, nil
	}

	return nil, errors.InternalErrorf("%s.%s: unknown cardinality %d", kind, e.Name, e.Cardinality)
}

// ParseEdgeInput accepts a models.Ref, *models.Ref, "kind:id" string or a
// non-negative integral number
func ParseEdgeInput(value interface{}) (EdgeInput, error) {
	switch v := value.(type) {
	case models.Ref:
		return EdgeInput{Ref: &v}, nil
	case *models.Ref:
		if v == nil {
			return EdgeInput{}, fmt.Errorf("nil ref")
		}
		r := *v
		return EdgeInput{Ref: &r}, nil
	case string:
		r, err := models.ParseRef(v)
		if err != nil {
			return EdgeInput{}, err
		}
		return EdgeInput{Ref: &r}, nil
	case models.ID:
		return EdgeInput{ID: v}, nil
	case float64:
		if v < 0 || v != math.Trunc(v) || v > math.MaxUint64 {
			return EdgeInput{}, fmt.Errorf("invalid id %v", v)
		}
		return EdgeInput{ID: models.ID(v)}, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return EdgeInput{}, fmt.Errorf("invalid id %d", rv.Int())
		}
		return EdgeInput{ID: models.ID(rv.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return EdgeInput{ID: models.ID(rv.Uint())}, nil
	}

	return EdgeInput{}, fmt.Errorf("unsupported edge value of type %T", value)
}

// DecodeRegion decodes a region from a models.Region, *models.Region or a
// generic map (as produced by JSON or YAML decoding) and validates it
func DecodeRegion(value interface{}) (models.Region, error) {
	var region models.Region
	switch v := value.(type) {
	case models.Region:
		region = v.Clone()
	case *models.Region:
		if v == nil {
			return models.Region{}, errors.ValidationError("region is null")
		}
		region = v.Clone()
	default:
		if err := decodeStrict(value, &region); err != nil {
			return models.Region{}, errors.ValidationErrorf("invalid region: %v", err)
		}
	}

	if err := validate.Struct(region); err != nil {
		return models.Region{}, errors.ValidationErrorf("invalid region: %v", err)
	}
	if p := region.Position; p != nil && p.End.Before(p.Start) {
		return models.Region{}, errors.ValidationErrorf("invalid region: position end %d:%d precedes start %d:%d",
			p.End.Line, p.End.Column, p.Start.Line, p.Start.Column)
	}
	return region, nil
}

// DecodeLines decodes an ordered sequence of strings
func DecodeLines(value interface{}) ([]string, error) {
	if v, ok := value.([]string); ok {
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	}
	if !isSlice(value) {
		return nil, errors.ValidationErrorf("lines must be a list of strings, got %T", value)
	}
	out := []string{}
	if err := decodeStrict(value, &out); err != nil {
		return nil, errors.ValidationErrorf("invalid lines: %v", err)
	}
	return out, nil
}

// DecodeScalars builds the entity for a checked input with its scalar fields
// set. Edges are left for the store to resolve.
func DecodeScalars(c *Checked, id models.ID) (models.Entity, error) {
	switch c.Kind {
	case models.KindPage:
		return &models.Page{ID: id, Contents: []models.Ref{}}, nil

	case models.KindBlockquote:
		region, err := DecodeRegion(c.Fields["region"])
		if err != nil {
			return nil, err
		}
		lines, err := DecodeLines(c.Fields["lines"])
		if err != nil {
			return nil, err
		}
		return &models.Blockquote{ID: id, Region: region, Lines: lines}, nil
	}

	return nil, errors.InternalErrorf("no decoder for kind %s", c.Kind)
}

func decodeStrict(input, output interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		ZeroFields:  true,
		DecodeHook:  integralFloats,
		Result:      output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// integralFloats rejects floats that would be truncated on their way into an
// integer field. JSON numbers always arrive as float64.
func integralFloats(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	switch to.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f < 0 || f != math.Trunc(f) || f > math.MaxUint64 {
			return nil, fmt.Errorf("%v is not a non-negative integer", data)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not an integer", data)
		}
	}
	return data, nil
}

func isSlice(v interface{}) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func articleFor(c Cardinality) string {
	if c == One {
		return "exactly one"
	}
	return "at most one"
}

func sortedKeys(fields Fields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
