package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/schema"
)

// SQLiteStore implements storage using SQLite. Entities are stored as JSON
// bodies in a single table; the rowid is the entity identity.
type SQLiteStore struct {
	db     *sqlx.DB
	schema *schema.Schema
	logger *logrus.Logger
	writes sync.Mutex
}

type entityRow struct {
	Kind string `db:"kind"`
	Body string `db:"body"`
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, sch *schema.Schema, logger *logrus.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode so readers are not blocked by the single writer. DSN
	// parameters apply to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		schema: sch,
		logger: logger,
	}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger.WithField("path", path).Info("Opened SQLite entity store")
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		body TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind, id);
	`

	_, err := s.db.Exec(ddl)
	return err
}

// Schema returns the schema the store validates against
func (s *SQLiteStore) Schema() *schema.Schema {
	return s.schema
}

// Create validates and stores a new entity in a single transaction
func (s *SQLiteStore) Create(ctx context.Context, kind models.Kind, fields schema.Fields) (models.ID, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}

	s.writes.Lock()
	defer s.writes.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.StorageError(err, "begin transaction")
	}
	defer tx.Rollback()

	lookup := func(k models.Kind, id models.ID) (models.Entity, error) {
		return s.fetch(ctx, tx, k, id)
	}

	b, err := build(s.schema, kind, fields, lookup)
	if err != nil {
		return 0, err
	}

	var page *models.Page
	if b.appendTo != nil {
		e, err := lookup(b.appendTo.Kind, b.appendTo.ID)
		if err != nil {
			return 0, err
		}
		p, ok := e.(*models.Page)
		if !ok {
			return 0, errors.InternalErrorf("%s is not a page", b.appendTo)
		}
		page = p
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO entities (kind, body) VALUES (?, '{}')`, string(kind))
	if err != nil {
		return 0, errors.StorageErrorf(err, "insert %s", kind)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return 0, errors.StorageError(err, "read inserted id")
	}

	id := models.ID(rowID)
	if err := s.writeBody(ctx, tx, withID(b.entity, id)); err != nil {
		return 0, err
	}
	if page != nil {
		if err := s.writeBody(ctx, tx, withAppended(page, models.NewRef(kind, id))); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.StorageError(err, "commit transaction")
	}

	s.logger.WithFields(logrus.Fields{"kind": kind, "id": id}).Debug("Created entity")
	return id, nil
}

func (s *SQLiteStore) writeBody(ctx context.Context, tx *sqlx.Tx, e models.Entity) error {
	body, err := encodeEntity(e)
	if err != nil {
		return errors.StorageErrorf(err, "encode %s", e.EntityKind())
	}
	_, err = tx.ExecContext(ctx, `UPDATE entities SET body = ? WHERE id = ?`, string(body), int64(e.EntityID()))
	if err != nil {
		return errors.StorageErrorf(err, "write %s %d", e.EntityKind(), e.EntityID())
	}
	return nil
}

// fetch reads one concrete entity, returning (nil, nil) when absent or of another kind
func (s *SQLiteStore) fetch(ctx context.Context, q sqlx.QueryerContext, kind models.Kind, id models.ID) (models.Entity, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	var row entityRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT kind, body FROM entities WHERE id = ?`, int64(id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StorageErrorf(err, "get %s %d", kind, id)
	}
	if models.Kind(row.Kind) != kind {
		return nil, nil
	}
	return decodeEntity(kind, []byte(row.Body))
}

// Get returns the entity with the given id
func (s *SQLiteStore) Get(ctx context.Context, kind models.Kind, id models.ID) (models.Entity, error) {
	return getAny(ctx, s.schema, kind, id, func(ctx context.Context, k models.Kind, id models.ID) (models.Entity, error) {
		return s.fetch(ctx, s.db, k, id)
	})
}

// List returns the ids of every entity of kind in id order
func (s *SQLiteStore) List(ctx context.Context, kind models.Kind) ([]models.ID, error) {
	return listAny(ctx, s.schema, kind, func(ctx context.Context, k models.Kind) ([]models.ID, error) {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		var ids []models.ID
		err := s.db.SelectContext(ctx, &ids, `SELECT id FROM entities WHERE kind = ? ORDER BY id`, string(k))
		if err != nil {
			return nil, errors.StorageErrorf(err, "list %s", k)
		}
		return ids, nil
	})
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
