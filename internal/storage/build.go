package storage

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/schema"
)

// lookupFunc looks up a concrete entity inside the caller's read scope.
// It returns (nil, nil) when the entity does not exist.
type lookupFunc func(kind models.Kind, id models.ID) (models.Entity, error)

// built is an entity ready to be stored, plus the store-maintained edge
// update it implies
type built struct {
	entity   models.Entity
	appendTo *models.Ref
}

// build validates fields and resolves every edge target through lookup.
// The returned entity has no id yet.
func build(sch *schema.Schema, kind models.Kind, fields schema.Fields, lookup lookupFunc) (*built, error) {
	checked, err := sch.Check(kind, fields)
	if err != nil {
		return nil, err
	}

	entity, err := schema.DecodeScalars(checked, 0)
	if err != nil {
		return nil, err
	}

	refs := make(map[string][]models.Ref, len(checked.Edges))
	for name, inputs := range checked.Edges {
		decl, _ := checked.Decl.Edge(name)
		resolved := make([]models.Ref, 0, len(inputs))
		for _, in := range inputs {
			ref, err := resolveEdgeInput(sch, kind, decl, in, lookup)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, ref)
		}
		refs[name] = resolved
	}

	out := &built{entity: entity}
	switch e := entity.(type) {
	case *models.Blockquote:
		page := refs["page"][0]
		e.Page = page
		out.appendTo = &page
		if parent, ok := refs["parent"]; ok && len(parent) == 1 {
			p := parent[0]
			e.Parent = &p
		}
	case *models.Page:
		// contents is maintained, nothing to resolve
	default:
		return nil, errors.InternalErrorf("no edge binding for kind %s", kind)
	}

	return out, nil
}

func resolveEdgeInput(sch *schema.Schema, kind models.Kind, decl schema.EdgeDecl, in schema.EdgeInput, lookup lookupFunc) (models.Ref, error) {
	if in.Ref != nil {
		if !sch.Accepts(decl.Target, in.Ref.Kind) {
			return models.Ref{}, errors.ValidationErrorf("%s.%s: %s is not a %s", kind, decl.Name, in.Ref, decl.Target)
		}
		e, err := lookup(in.Ref.Kind, in.Ref.ID)
		if err != nil {
			return models.Ref{}, err
		}
		if e == nil {
			return models.Ref{}, errors.NotFoundf("%s.%s: %s does not exist", kind, decl.Name, in.Ref).
				WithContext("ref", in.Ref.String())
		}
		return *in.Ref, nil
	}

	for _, k := range sch.ConcreteKinds(decl.Target) {
		e, err := lookup(k, in.ID)
		if err != nil {
			return models.Ref{}, err
		}
		if e != nil {
			return models.NewRef(k, in.ID), nil
		}
	}
	return models.Ref{}, errors.NotFoundf("%s.%s: no %s with id %d", kind, decl.Name, decl.Target, in.ID).
		WithContext("id", in.ID)
}

// withID returns a copy of e carrying id
func withID(e models.Entity, id models.ID) models.Entity {
	switch v := e.(type) {
	case *models.Page:
		c := *v
		c.ID = id
		return &c
	case *models.Blockquote:
		c := *v
		c.ID = id
		return &c
	}
	return e
}

// withAppended returns a copy of page with ref appended to its contents
func withAppended(page *models.Page, ref models.Ref) *models.Page {
	contents := make([]models.Ref, 0, len(page.Contents)+1)
	contents = append(contents, page.Contents...)
	contents = append(contents, ref)
	return &models.Page{ID: page.ID, Contents: contents}
}

func encodeEntity(e models.Entity) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEntity(kind models.Kind, data []byte) (models.Entity, error) {
	var e models.Entity
	switch kind {
	case models.KindPage:
		e = &models.Page{}
	case models.KindBlockquote:
		e = &models.Blockquote{}
	default:
		return nil, errors.InternalErrorf("cannot decode entity of kind %s", kind)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, errors.StorageErrorf(err, "decode %s", kind)
	}
	return e, nil
}

// getAny resolves a possibly-union kind through a concrete getter
func getAny(ctx context.Context, sch *schema.Schema, kind models.Kind, id models.ID,
	get func(ctx context.Context, kind models.Kind, id models.ID) (models.Entity, error)) (models.Entity, error) {
	if !sch.Has(kind) {
		return nil, errors.NotFoundf("unknown kind %s", kind)
	}
	for _, k := range sch.ConcreteKinds(kind) {
		e, err := get(ctx, k, id)
		if err != nil {
			return nil, err
		}
		if e != nil {
			return e, nil
		}
	}
	return nil, errors.NotFoundf("no %s with id %d", kind, id).WithContext("id", id)
}

// listAny merges the id lists of a possibly-union kind
func listAny(ctx context.Context, sch *schema.Schema, kind models.Kind,
	list func(ctx context.Context, kind models.Kind) ([]models.ID, error)) ([]models.ID, error) {
	if !sch.Has(kind) {
		return nil, errors.NotFoundf("unknown kind %s", kind)
	}
	var ids []models.ID
	for _, k := range sch.ConcreteKinds(kind) {
		part, err := list(ctx, k)
		if err != nil {
			return nil, err
		}
		ids = append(ids, part...)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if ids == nil {
		ids = []models.ID{}
	}
	return ids, nil
}

func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Canceled(err)
	}
	return nil
}
