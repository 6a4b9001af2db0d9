package resolver

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/pagegraph/internal/config"
	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/schema"
	"github.com/rohankatakam/pagegraph/internal/storage"
)

// TypenameField is selectable on every entity and union position
const TypenameField = "__typename"

// root describes a query entry point
type root struct {
	kind models.Kind
	list bool
}

var roots = map[string]root{
	"page":          {kind: models.KindPage},
	"element":       {kind: models.KindElement},
	"block_element": {kind: models.KindBlockElement},
	"blockquote":    {kind: models.KindBlockquote},
	"pages":         {kind: models.KindPage, list: true},
	"blockquotes":   {kind: models.KindBlockquote, list: true},
}

// Roots returns the names of every query root, sorted
func Roots() []string {
	names := make([]string, 0, len(roots))
	for name := range roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Request is a single query against the store
type Request struct {
	// RequestID identifies the request in logs; generated when empty
	RequestID string
	Root      string
	// ID selects the root entity. Without it the lowest id of the root kind is used.
	ID        *models.ID
	Selection Selection
}

// Resolver turns selections into result trees. It is safe for concurrent use.
type Resolver struct {
	store       storage.Store
	schema      *schema.Schema
	logger      *logrus.Logger
	maxDepth    int
	parallelism int
}

// New creates a resolver over store
func New(store storage.Store, cfg config.ResolverConfig, logger *logrus.Logger) *Resolver {
	maxDepth := cfg.MaxDepth
	if maxDepth < 1 {
		maxDepth = config.Default().Resolver.MaxDepth
	}
	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	return &Resolver{
		store:       store,
		schema:      store.Schema(),
		logger:      logger,
		maxDepth:    maxDepth,
		parallelism: parallelism,
	}
}

// MaxDepth returns the traversal ceiling
func (r *Resolver) MaxDepth() int {
	return r.maxDepth
}

// Resolve runs a request. Request-fatal failures (unknown root, missing root
// entity, DepthExceeded, cancellation, storage errors) are returned as an
// error with no partial tree. Failures confined to a subtree are embedded in
// the tree as error markers.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Value, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	start := time.Now()
	log := r.logger.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"root":       req.Root,
	})
	log.Debug("Resolving query")

	v, err := r.resolveRoot(ctx, req)
	if err == nil {
		if ctxErr := checkCtx(ctx); ctxErr != nil {
			err = ctxErr
		}
	}

	log = log.WithField("duration", time.Since(start))
	if err != nil {
		log.WithField("error", err).Debug("Query failed")
		return Value{}, err
	}
	log.Debug("Query resolved")
	return v, nil
}

func (r *Resolver) resolveRoot(ctx context.Context, req Request) (Value, error) {
	rt, ok := roots[req.Root]
	if !ok {
		return Value{}, errors.ResolutionErrorf("unknown query root %q", req.Root).
			WithContext("roots", Roots())
	}
	if err := checkCtx(ctx); err != nil {
		return Value{}, err
	}

	if rt.list {
		if req.ID != nil {
			return Value{}, errors.ValidationErrorf("query root %q does not take an id", req.Root)
		}
		ids, err := r.store.List(ctx, rt.kind)
		if err != nil {
			return Value{}, err
		}
		refs := make([]models.Ref, len(ids))
		for i, id := range ids {
			refs[i] = models.NewRef(rt.kind, id)
		}
		return r.list(ctx, rt.kind, refs, req.Selection, 0)
	}

	var id models.ID
	if req.ID != nil {
		id = *req.ID
	} else {
		ids, err := r.store.List(ctx, rt.kind)
		if err != nil {
			return Value{}, err
		}
		if len(ids) == 0 {
			return Value{}, errors.NotFoundf("no %s in the store", rt.kind)
		}
		id = ids[0]
	}

	e, err := r.store.Get(ctx, rt.kind, id)
	if err != nil {
		return Value{}, err
	}
	concrete, err := unwrap(rt.kind, e)
	if err != nil {
		return Value{}, err
	}
	return r.object(ctx, rt.kind, concrete, req.Selection, 0)
}

// node loads ref and resolves it at a position of kind pos
func (r *Resolver) node(ctx context.Context, pos models.Kind, ref models.Ref, sel Selection, depth int) (Value, error) {
	if err := checkCtx(ctx); err != nil {
		return Value{}, err
	}
	e, err := r.store.Get(ctx, ref.Kind, ref.ID)
	if err != nil {
		return Value{}, err
	}
	concrete, err := unwrap(pos, e)
	if err != nil {
		return Value{}, err
	}
	return r.object(ctx, pos, concrete, sel, depth)
}

// list resolves refs concurrently, keeping their order
func (r *Resolver) list(ctx context.Context, pos models.Kind, refs []models.Ref, sel Selection, depth int) (Value, error) {
	items := make([]Value, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, ref := range refs {
		g.Go(func() error {
			v, err := r.node(gctx, pos, ref, sel, depth)
			if err != nil {
				if errors.IsFatal(err) {
					return err
				}
				v = failed(err)
			}
			items[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Value{}, err
	}
	return List(items), nil
}

// object resolves the selection against a concrete entity. An empty
// selection expands every field of the entity.
func (r *Resolver) object(ctx context.Context, pos models.Kind, e models.Entity, sel Selection, depth int) (Value, error) {
	decl, ok := r.schema.Entity(e.EntityKind())
	if !ok {
		return Value{}, errors.InternalErrorf("no declaration for kind %s", e.EntityKind())
	}
	if len(sel) == 0 {
		sel = fullSelection(decl)
	}

	fields := make([]FieldValue, 0, len(sel))
	for _, f := range sel {
		if err := checkCtx(ctx); err != nil {
			return Value{}, err
		}
		v, err := r.field(ctx, pos, decl, e, f, depth)
		if err != nil {
			if errors.IsFatal(err) {
				return Value{}, err
			}
			v = failed(err)
		}
		fields = append(fields, FieldValue{Name: f.Name, Value: v})
	}
	return Object(fields...), nil
}

func (r *Resolver) field(ctx context.Context, pos models.Kind, decl *schema.EntityDecl, e models.Entity, f Field, depth int) (Value, error) {
	if f.Name == TypenameField {
		if f.HasChildren() {
			return Value{}, errors.ResolutionErrorf("%s has no subfields", TypenameField)
		}
		return Scalar(string(e.EntityKind())), nil
	}

	// Variant fragments on a non-flattened union: block_element { Blockquote { id } }
	if u, ok := r.schema.Union(pos); ok && !u.Flatten {
		for _, variant := range u.Variants {
			if variant.Tag != f.Name {
				continue
			}
			if !r.schema.Accepts(variant.Kind, e.EntityKind()) {
				return Absent(), nil
			}
			return r.object(ctx, variant.Kind, e, f.Children, depth)
		}
	}

	if _, ok := decl.Field(f.Name); ok {
		v, err := scalarField(e, f.Name)
		if err != nil {
			return Value{}, err
		}
		if !f.HasChildren() {
			return v, nil
		}
		return project(f.Name, v, f.Children)
	}

	if edge, ok := decl.Edge(f.Name); ok {
		refs, err := edgeRefs(e, edge.Name)
		if err != nil {
			return Value{}, err
		}
		return r.edge(ctx, edge, refs, f, depth)
	}

	if edge, ok := decl.EdgeByIDField(f.Name); ok {
		if f.HasChildren() {
			return Value{}, errors.ResolutionErrorf("%s.%s has no subfields", decl.Kind, f.Name)
		}
		refs, err := edgeRefs(e, edge.Name)
		if err != nil {
			return Value{}, err
		}
		return idsValue(edge, refs), nil
	}

	return Value{}, errors.ResolutionErrorf("%s has no field %q", decl.Kind, f.Name).
		WithContext("kind", string(decl.Kind)).
		WithContext("field", f.Name)
}

// edge applies the edge's depth policy unless the field carries an explicit
// nested selection, which is always followed
func (r *Resolver) edge(ctx context.Context, decl schema.EdgeDecl, refs []models.Ref, f Field, depth int) (Value, error) {
	if !f.HasChildren() && decl.Policy == schema.Shallow {
		return identities(decl, refs), nil
	}

	if len(refs) > 0 && depth+1 > r.maxDepth {
		return Value{}, errors.DepthExceededf("resolving %s at depth %d exceeds the maximum depth %d",
			decl.Name, depth+1, r.maxDepth).
			WithContext("edge", decl.Name).
			WithContext("max_depth", r.maxDepth)
	}

	if decl.Cardinality == schema.Many {
		return r.list(ctx, decl.Target, refs, f.Children, depth+1)
	}
	if len(refs) == 0 {
		return Absent(), nil
	}
	return r.node(ctx, decl.Target, refs[0], f.Children, depth+1)
}

// unwrap returns the concrete entity at a position of kind pos, dispatching
// on the union wrapper's tag
func unwrap(pos models.Kind, e models.Entity) (models.Entity, error) {
	switch pos {
	case models.KindElement:
		el, err := models.WrapElement(e)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeResolution, errors.SeverityMedium, "not an Element")
		}
		switch el.Tag {
		case models.ElementBlock:
			return unwrapBlock(*el.Block)
		}
		return nil, errors.InternalErrorf("unhandled Element variant %q", el.Tag)
	case models.KindBlockElement:
		b, err := models.WrapBlockElement(e)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeResolution, errors.SeverityMedium, "not a BlockElement")
		}
		return unwrapBlock(b)
	}
	return e, nil
}

func unwrapBlock(b models.BlockElement) (models.Entity, error) {
	switch b.Tag {
	case models.BlockElementBlockquote:
		return b.Blockquote, nil
	}
	return nil, errors.InternalErrorf("unhandled BlockElement variant %q", b.Tag)
}

// fullSelection selects every field and edge of decl, each without a nested
// selection so edge policies apply
func fullSelection(decl *schema.EntityDecl) Selection {
	sel := make(Selection, 0, len(decl.Fields)+len(decl.Edges))
	for _, f := range decl.Fields {
		sel = append(sel, Field{Name: f.Name})
	}
	for _, e := range decl.Edges {
		sel = append(sel, Field{Name: e.Name})
	}
	return sel
}

func identities(decl schema.EdgeDecl, refs []models.Ref) Value {
	if decl.Cardinality == schema.Many {
		items := make([]Value, len(refs))
		for i, ref := range refs {
			items[i] = Identity(ref)
		}
		return List(items)
	}
	if len(refs) == 0 {
		return Absent()
	}
	return Identity(refs[0])
}

func idsValue(decl schema.EdgeDecl, refs []models.Ref) Value {
	if decl.Cardinality == schema.Many {
		items := make([]Value, len(refs))
		for i, ref := range refs {
			items[i] = Scalar(ref.ID)
		}
		return List(items)
	}
	if len(refs) == 0 {
		return Absent()
	}
	return Scalar(refs[0].ID)
}

func failed(err error) Value {
	if e, ok := errors.As(err); ok {
		return Failed(e)
	}
	return Failed(errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityCritical, "resolution failed"))
}

func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Canceled(err)
	}
	return nil
}
