package storage

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/schema"
)

// MemoryStore is an in-process arena of entities keyed by identity.
// Reads share a lock; creations are serialized. Stored entities are never
// mutated in place: maintained edges are updated by swapping in a copy, so a
// reader holding an older pointer keeps a consistent view.
type MemoryStore struct {
	mu       sync.RWMutex
	schema   *schema.Schema
	logger   *logrus.Logger
	seq      models.ID
	entities map[models.Kind]map[models.ID]models.Entity
	order    map[models.Kind][]models.ID
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(sch *schema.Schema, logger *logrus.Logger) *MemoryStore {
	s := &MemoryStore{
		schema:   sch,
		logger:   logger,
		entities: make(map[models.Kind]map[models.ID]models.Entity),
		order:    make(map[models.Kind][]models.ID),
	}
	for _, k := range sch.EntityKinds() {
		s.entities[k] = make(map[models.ID]models.Entity)
		s.order[k] = []models.ID{}
	}
	return s
}

// Schema returns the schema the store validates against
func (s *MemoryStore) Schema() *schema.Schema {
	return s.schema
}

// Create validates and stores a new entity
func (s *MemoryStore) Create(ctx context.Context, kind models.Kind, fields schema.Fields) (models.ID, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := build(s.schema, kind, fields, s.lookupLocked)
	if err != nil {
		return 0, err
	}

	var page *models.Page
	if b.appendTo != nil {
		p, ok := s.entities[b.appendTo.Kind][b.appendTo.ID].(*models.Page)
		if !ok {
			return 0, errors.InternalErrorf("%s is not a page", b.appendTo)
		}
		page = p
	}

	s.seq++
	id := s.seq
	entity := withID(b.entity, id)
	s.entities[kind][id] = entity
	s.order[kind] = append(s.order[kind], id)

	if page != nil {
		s.entities[models.KindPage][page.ID] = withAppended(page, models.NewRef(kind, id))
	}

	s.logger.WithFields(logrus.Fields{"kind": kind, "id": id}).Debug("Created entity")
	return id, nil
}

// Get returns the entity with the given id
func (s *MemoryStore) Get(ctx context.Context, kind models.Kind, id models.ID) (models.Entity, error) {
	return getAny(ctx, s.schema, kind, id, s.get)
}

func (s *MemoryStore) get(ctx context.Context, kind models.Kind, id models.ID) (models.Entity, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(kind, id)
}

func (s *MemoryStore) lookupLocked(kind models.Kind, id models.ID) (models.Entity, error) {
	byID, ok := s.entities[kind]
	if !ok {
		return nil, nil
	}
	e, ok := byID[id]
	if !ok {
		return nil, nil
	}
	return e, nil
}

// List returns the ids of every entity of kind in id order
func (s *MemoryStore) List(ctx context.Context, kind models.Kind) ([]models.ID, error) {
	return listAny(ctx, s.schema, kind, func(ctx context.Context, k models.Kind) ([]models.ID, error) {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		ids := make([]models.ID, len(s.order[k]))
		copy(ids, s.order[k])
		return ids, nil
	})
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
