package storage

import (
	"context"

	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/schema"
)

// Store owns every entity instance. Entities are written once and never
// updated or deleted, except for store-maintained edges (Page.contents).
// Entities returned by Get must be treated as read-only.
type Store interface {
	// Create validates fields against the schema, resolves edge targets and
	// stores the entity. Fails with a ValidationError or NotFound error.
	Create(ctx context.Context, kind models.Kind, fields schema.Fields) (models.ID, error)

	// Get returns the entity with the given id. kind may be a union, in which
	// case the concrete entity is returned. Fails with NotFound.
	Get(ctx context.Context, kind models.Kind, id models.ID) (models.Entity, error)

	// List returns the ids of every entity of kind (or of its concrete kinds) in id order
	List(ctx context.Context, kind models.Kind) ([]models.ID, error)

	// Schema returns the schema the store validates against
	Schema() *schema.Schema

	// Close releases the backend
	Close() error
}
