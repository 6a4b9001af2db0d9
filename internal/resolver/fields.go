package resolver

import (
	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
)

// scalarField returns the value of a declared scalar or value-type field
func scalarField(e models.Entity, name string) (Value, error) {
	switch v := e.(type) {
	case *models.Page:
		switch name {
		case "id":
			return Scalar(v.ID), nil
		}
	case *models.Blockquote:
		switch name {
		case "id":
			return Scalar(v.ID), nil
		case "region":
			return regionValue(v.Region), nil
		case "lines":
			items := make([]Value, len(v.Lines))
			for i, line := range v.Lines {
				items[i] = Scalar(line)
			}
			return List(items), nil
		}
	}
	return Value{}, errors.InternalErrorf("%s declares field %q but has no accessor for it", e.EntityKind(), name)
}

// edgeRefs returns the targets of a declared edge in order
func edgeRefs(e models.Entity, name string) ([]models.Ref, error) {
	switch v := e.(type) {
	case *models.Page:
		switch name {
		case "contents":
			return v.Contents, nil
		}
	case *models.Blockquote:
		switch name {
		case "page":
			return []models.Ref{v.Page}, nil
		case "parent":
			if v.Parent == nil {
				return nil, nil
			}
			return []models.Ref{*v.Parent}, nil
		}
	}
	return nil, errors.InternalErrorf("%s declares edge %q but has no accessor for it", e.EntityKind(), name)
}

func regionValue(r models.Region) Value {
	position := Absent()
	if r.Position != nil {
		position = Object(
			FieldValue{Name: "start", Value: lineColumnValue(r.Position.Start)},
			FieldValue{Name: "end", Value: lineColumnValue(r.Position.End)},
		)
	}
	return Object(
		FieldValue{Name: "offset", Value: Scalar(r.Offset)},
		FieldValue{Name: "len", Value: Scalar(r.Len)},
		FieldValue{Name: "position", Value: position},
	)
}

func lineColumnValue(lc models.LineColumn) Value {
	return Object(
		FieldValue{Name: "line", Value: Scalar(lc.Line)},
		FieldValue{Name: "column", Value: Scalar(lc.Column)},
	)
}

// project narrows a value-type field to a nested selection. Unknown
// sub-fields fail only their own subtree.
func project(name string, v Value, sel Selection) (Value, error) {
	switch v.Type {
	case AbsentValue:
		return v, nil
	case ObjectValue:
	default:
		return Value{}, errors.ResolutionErrorf("%s has no subfields", name)
	}

	fields := make([]FieldValue, 0, len(sel))
	for _, f := range sel {
		child, ok := v.Get(f.Name)
		if !ok {
			fields = append(fields, FieldValue{
				Name:  f.Name,
				Value: Failed(errors.ResolutionErrorf("%s has no field %q", name, f.Name)),
			})
			continue
		}
		if f.HasChildren() {
			projected, err := project(f.Name, child, f.Children)
			if err != nil {
				e, _ := errors.As(err)
				projected = Failed(e)
			}
			child = projected
		}
		fields = append(fields, FieldValue{Name: f.Name, Value: child})
	}
	return Object(fields...), nil
}
