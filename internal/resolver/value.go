package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
)

// ValueType tags the variants of a result Value
type ValueType int

const (
	ScalarValue ValueType = iota
	ObjectValue
	ListValue
	RefValue
	AbsentValue
	ErrorValue
)

func (t ValueType) String() string {
	switch t {
	case ScalarValue:
		return "scalar"
	case ObjectValue:
		return "object"
	case ListValue:
		return "list"
	case RefValue:
		return "ref"
	case AbsentValue:
		return "absent"
	case ErrorValue:
		return "error"
	default:
		return "unknown"
	}
}

// Value is a node of a resolved result tree. Objects keep their fields in
// selection order.
type Value struct {
	Type   ValueType
	Scalar interface{} // string, bool, uint64, int64 or float64
	Fields []FieldValue
	Items  []Value
	Ref    models.Ref
	Err    *errors.Marker
}

// FieldValue is one named member of an object value
type FieldValue struct {
	Name  string
	Value Value
}

// Scalar wraps a scalar, normalizing integer types to uint64 (or int64 when negative)
func Scalar(v interface{}) Value {
	return Value{Type: ScalarValue, Scalar: normalizeScalar(v)}
}

// Object creates an object value
func Object(fields ...FieldValue) Value {
	if fields == nil {
		fields = []FieldValue{}
	}
	return Value{Type: ObjectValue, Fields: fields}
}

// List creates a list value; a nil slice is an empty list
func List(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Type: ListValue, Items: items}
}

// Identity creates an identity-only value
func Identity(ref models.Ref) Value {
	return Value{Type: RefValue, Ref: ref}
}

// Absent is the marker for an optional edge with no target
func Absent() Value {
	return Value{Type: AbsentValue}
}

// Failed is the per-subtree marker for an error that did not abort the request
func Failed(err *errors.Error) Value {
	m := err.Marker()
	return Value{Type: ErrorValue, Err: &m}
}

// Get returns the named field of an object value
func (v Value) Get(name string) (Value, bool) {
	if v.Type != ObjectValue {
		return Value{}, false
	}
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Names returns the field names of an object value in order
func (v Value) Names() []string {
	names := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		names[i] = f.Name
	}
	return names
}

// Equal compares two values structurally. Numeric scalars compare by value.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ScalarValue:
		return scalarEqual(v.Scalar, other.Scalar)
	case ObjectValue:
		if len(v.Fields) != len(other.Fields) {
			return false
		}
		for i := range v.Fields {
			if v.Fields[i].Name != other.Fields[i].Name || !v.Fields[i].Value.Equal(other.Fields[i].Value) {
				return false
			}
		}
		return true
	case ListValue:
		if len(v.Items) != len(other.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(other.Items[i]) {
				return false
			}
		}
		return true
	case RefValue:
		return v.Ref == other.Ref
	case AbsentValue:
		return true
	case ErrorValue:
		if v.Err == nil || other.Err == nil {
			return v.Err == other.Err
		}
		return *v.Err == *other.Err
	}
	return false
}

// Errors collects the per-subtree error markers in the tree, keyed by the
// dotted path of the failed field (list items appear as their index)
func (v Value) Errors() map[string]errors.Marker {
	out := make(map[string]errors.Marker)
	v.collectErrors("", out)
	return out
}

func (v Value) collectErrors(path string, out map[string]errors.Marker) {
	switch v.Type {
	case ErrorValue:
		if v.Err != nil {
			out[path] = *v.Err
		}
	case ObjectValue:
		for _, f := range v.Fields {
			f.Value.collectErrors(joinPath(path, f.Name), out)
		}
	case ListValue:
		for i, item := range v.Items {
			item.collectErrors(joinPath(path, strconv.Itoa(i)), out)
		}
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// MarshalJSON writes the value with object fields in order. Identity values
// are {"$ref":"kind:id"}, absent is null and error markers are
// {"$error":{"type":...,"message":...}}.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.Type {
	case ScalarValue:
		if err := writeJSON(buf, v.Scalar); err != nil {
			return err
		}
	case ObjectValue:
		buf.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, f.Name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case ListValue:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case RefValue:
		buf.WriteString(`{"$ref":`)
		if err := writeJSON(buf, v.Ref.String()); err != nil {
			return err
		}
		buf.WriteByte('}')
	case AbsentValue:
		buf.WriteString("null")
	case ErrorValue:
		if v.Err == nil {
			return fmt.Errorf("error value without marker")
		}
		buf.WriteString(`{"$error":`)
		if err := writeJSON(buf, v.Err); err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode value of type %s", v.Type)
	}
	return nil
}

// writeJSON appends v without HTML escaping; blockquote lines start with '>'
func writeJSON(buf *bytes.Buffer, v interface{}) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// UnmarshalJSON parses the encoding produced by MarshalJSON
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValue re-parses an encoded result tree. Integral non-negative numbers
// decode as uint64, negative integers as int64, anything else as float64.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("trailing data after value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Absent(), nil
	case bool:
		return Scalar(t), nil
	case string:
		return Scalar(t), nil
	case json.Number:
		return Scalar(parseNumber(t)), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return List(items), nil
		case '{':
			fields := []FieldValue{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, _ := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, FieldValue{Name: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return fromObject(fields)
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// fromObject recognizes the $ref and $error envelopes
func fromObject(fields []FieldValue) (Value, error) {
	if len(fields) != 1 {
		return Object(fields...), nil
	}
	f := fields[0]
	switch f.Name {
	case "$ref":
		s, ok := f.Value.Scalar.(string)
		if f.Value.Type != ScalarValue || !ok {
			return Value{}, fmt.Errorf("$ref must be a string")
		}
		ref, err := models.ParseRef(s)
		if err != nil {
			return Value{}, err
		}
		return Identity(ref), nil
	case "$error":
		typ, _ := f.Value.Get("type")
		msg, _ := f.Value.Get("message")
		ts, ok1 := typ.Scalar.(string)
		ms, ok2 := msg.Scalar.(string)
		if !ok1 || !ok2 {
			return Value{}, fmt.Errorf("$error must carry a type and a message")
		}
		return Value{Type: ErrorValue, Err: &errors.Marker{Type: ts, Message: ms}}, nil
	}
	return Object(fields...), nil
}

func parseNumber(n json.Number) interface{} {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	f, _ := n.Float64()
	return f
}

func normalizeScalar(v interface{}) interface{} {
	switch n := v.(type) {
	case models.ID:
		return uint64(n)
	case uint:
		return uint64(n)
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case int:
		return signed(int64(n))
	case int8:
		return signed(int64(n))
	case int16:
		return signed(int64(n))
	case int32:
		return signed(int64(n))
	case int64:
		return signed(n)
	case float32:
		return float64(n)
	case models.Kind:
		return string(n)
	}
	return v
}

func signed(n int64) interface{} {
	if n >= 0 {
		return uint64(n)
	}
	return n
}

func scalarEqual(a, b interface{}) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case uint64:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
