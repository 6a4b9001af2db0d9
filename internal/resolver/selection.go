package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/rohankatakam/pagegraph/internal/errors"
)

// Selection is an ordered list of requested fields. An empty selection on an
// edge means "no further selection": the edge's depth policy decides.
type Selection []Field

// Field is one selected field, with an optional nested selection
type Field struct {
	Name     string
	Children Selection
}

// HasChildren reports whether the field carries a nested selection
func (f Field) HasChildren() bool {
	return len(f.Children) > 0
}

// Names returns the selected field names in order
func (s Selection) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Depth is the nesting depth of the selection; a flat selection has depth 1
func (s Selection) Depth() int {
	max := 0
	for _, f := range s {
		if d := f.Children.Depth(); d > max {
			max = d
		}
	}
	if len(s) == 0 {
		return 0
	}
	return max + 1
}

// String renders the compact text form accepted by ParseSelection
func (s Selection) String() string {
	var sb strings.Builder
	s.write(&sb)
	return sb.String()
}

func (s Selection) write(sb *strings.Builder) {
	for i, f := range s {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(f.Name)
		if f.HasChildren() {
			sb.WriteString(" { ")
			f.Children.write(sb)
			sb.WriteString(" }")
		}
	}
}

// MarshalJSON encodes the selection as an ordered mapping; fields without a
// nested selection map to true
func (s Selection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if !f.HasChildren() {
			buf.WriteString("true")
			continue
		}
		child, err := f.Children.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(child)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the ordered mapping form or a string in the compact form
func (s *Selection) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		sel, err := ParseSelection(text)
		if err != nil {
			return err
		}
		*s = sel
		return nil
	}
	sel, err := ParseSelectionJSON(trimmed)
	if err != nil {
		return err
	}
	*s = sel
	return nil
}

// ParseSelectionJSON parses an ordered JSON mapping from field name to either
// true, null, {} (no further selection) or a nested mapping.
// Example: {"id": true, "page": {"id": true}}
func ParseSelectionJSON(data []byte) (Selection, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.ValidationErrorf("invalid selection: %v", err)
	}
	if tok == nil {
		return Selection{}, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.ValidationErrorf("invalid selection: expected an object, got %v", tok)
	}
	sel, err := decodeSelection(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.ValidationError("invalid selection: trailing data after object")
	}
	return sel, nil
}

// decodeSelection reads the members of an object whose opening brace has
// already been consumed, through its closing brace
func decodeSelection(dec *json.Decoder) (Selection, error) {
	sel := Selection{}
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.ValidationErrorf("invalid selection: %v", err)
		}
		name, _ := tok.(string)
		if err := checkName(name); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, errors.ValidationErrorf("invalid selection: field %q selected twice", name)
		}
		seen[name] = true

		tok, err = dec.Token()
		if err != nil {
			return nil, errors.ValidationErrorf("invalid selection: %v", err)
		}
		field := Field{Name: name}
		switch v := tok.(type) {
		case nil:
		case bool:
			if !v {
				return nil, errors.ValidationErrorf("invalid selection: field %q is false", name)
			}
		case json.Delim:
			if v != '{' {
				return nil, errors.ValidationErrorf("invalid selection: field %q must map to true or an object", name)
			}
			children, err := decodeSelection(dec)
			if err != nil {
				return nil, err
			}
			field.Children = children
		default:
			return nil, errors.ValidationErrorf("invalid selection: field %q must map to true or an object", name)
		}
		sel = append(sel, field)
	}
	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, errors.ValidationErrorf("invalid selection: %v", err)
	}
	return sel, nil
}

// ParseSelection parses the compact text form: field names separated by
// whitespace or commas, each optionally followed by a braced nested selection.
// Example: id region { offset } page { contents { lines } }
func ParseSelection(text string) (Selection, error) {
	p := &selectionParser{src: []rune(text)}
	sel, err := p.selection(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos])
	}
	return sel, nil
}

type selectionParser struct {
	src []rune
	pos int
}

func (p *selectionParser) selection(level int) (Selection, error) {
	sel := Selection{}
	seen := make(map[string]bool)
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			if level > 0 {
				return nil, p.errorf("missing '}'")
			}
			return sel, nil
		}
		if p.src[p.pos] == '}' {
			if level == 0 {
				return nil, p.errorf("unexpected '}'")
			}
			p.pos++
			return sel, nil
		}

		name := p.name()
		if name == "" {
			return nil, p.errorf("expected a field name, got %q", p.src[p.pos])
		}
		if seen[name] {
			return nil, p.errorf("field %q selected twice", name)
		}
		seen[name] = true

		field := Field{Name: name}
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '{' {
			p.pos++
			children, err := p.selection(level + 1)
			if err != nil {
				return nil, err
			}
			field.Children = children
		}
		sel = append(sel, field)
	}
}

func (p *selectionParser) name() string {
	start := p.pos
	for p.pos < len(p.src) && isNameRune(p.src[p.pos], p.pos == start) {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *selectionParser) skipSpace() {
	for p.pos < len(p.src) && (unicode.IsSpace(p.src[p.pos]) || p.src[p.pos] == ',') {
		p.pos++
	}
}

func (p *selectionParser) errorf(format string, args ...interface{}) error {
	return errors.ValidationErrorf("invalid selection at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func isNameRune(r rune, first bool) bool {
	if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return true
	}
	return !first && r >= '0' && r <= '9'
}

func checkName(name string) error {
	if name == "" {
		return errors.ValidationError("invalid selection: empty field name")
	}
	for i, r := range name {
		if !isNameRune(r, i == 0) {
			return errors.ValidationErrorf("invalid selection: %q is not a field name", name)
		}
	}
	return nil
}
