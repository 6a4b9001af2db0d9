package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/schema"
)

const sequenceBucket = "_sequence"

// BoltStore implements storage on a bbolt file: one bucket per concrete
// kind keyed by big-endian id, plus a sequence bucket for identities.
// bbolt serializes writers and gives readers a consistent snapshot.
type BoltStore struct {
	db     *bolt.DB
	schema *schema.Schema
	logger *logrus.Logger
}

// NewBoltStore opens (or creates) a bbolt-backed store
func NewBoltStore(path string, sch *schema.Schema, logger *logrus.Logger) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(sequenceBucket)); err != nil {
			return err
		}
		for _, k := range sch.EntityKinds() {
			if _, err := tx.CreateBucketIfNotExists([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	logger.WithField("path", path).Info("Opened bolt entity store")
	return &BoltStore{db: db, schema: sch, logger: logger}, nil
}

// Schema returns the schema the store validates against
func (s *BoltStore) Schema() *schema.Schema {
	return s.schema
}

// Create validates and stores a new entity in a single write transaction
func (s *BoltStore) Create(ctx context.Context, kind models.Kind, fields schema.Fields) (models.ID, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}

	var id models.ID
	err := s.db.Update(func(tx *bolt.Tx) error {
		lookup := func(k models.Kind, id models.ID) (models.Entity, error) {
			return readEntity(tx, k, id)
		}

		b, err := build(s.schema, kind, fields, lookup)
		if err != nil {
			return err
		}

		var page *models.Page
		if b.appendTo != nil {
			e, err := lookup(b.appendTo.Kind, b.appendTo.ID)
			if err != nil {
				return err
			}
			p, ok := e.(*models.Page)
			if !ok {
				return errors.InternalErrorf("%s is not a page", b.appendTo)
			}
			page = p
		}

		seq, err := tx.Bucket([]byte(sequenceBucket)).NextSequence()
		if err != nil {
			return errors.StorageError(err, "allocate id")
		}
		id = models.ID(seq)

		if err := writeEntity(tx, withID(b.entity, id)); err != nil {
			return err
		}
		if page != nil {
			return writeEntity(tx, withAppended(page, models.NewRef(kind, id)))
		}
		return nil
	})
	if err != nil {
		if _, ok := errors.As(err); ok {
			return 0, err
		}
		return 0, errors.StorageErrorf(err, "create %s", kind)
	}

	s.logger.WithFields(logrus.Fields{"kind": kind, "id": id}).Debug("Created entity")
	return id, nil
}

// Get returns the entity with the given id
func (s *BoltStore) Get(ctx context.Context, kind models.Kind, id models.ID) (models.Entity, error) {
	return getAny(ctx, s.schema, kind, id, func(ctx context.Context, k models.Kind, id models.ID) (models.Entity, error) {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		var e models.Entity
		err := s.db.View(func(tx *bolt.Tx) error {
			var err error
			e, err = readEntity(tx, k, id)
			return err
		})
		return e, err
	})
}

// List returns the ids of every entity of kind in id order
func (s *BoltStore) List(ctx context.Context, kind models.Kind) ([]models.ID, error) {
	return listAny(ctx, s.schema, kind, func(ctx context.Context, k models.Kind) ([]models.ID, error) {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		ids := []models.ID{}
		err := s.db.View(func(tx *bolt.Tx) error {
			bucket := tx.Bucket([]byte(k))
			if bucket == nil {
				return nil
			}
			return bucket.ForEach(func(key, _ []byte) error {
				ids = append(ids, models.ID(binary.BigEndian.Uint64(key)))
				return nil
			})
		})
		if err != nil {
			return nil, errors.StorageErrorf(err, "list %s", k)
		}
		return ids, nil
	})
}

// Close closes the bolt database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func idKey(id models.ID) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func readEntity(tx *bolt.Tx, kind models.Kind, id models.ID) (models.Entity, error) {
	bucket := tx.Bucket([]byte(kind))
	if bucket == nil {
		return nil, nil
	}
	data := bucket.Get(idKey(id))
	if data == nil {
		return nil, nil
	}
	return decodeEntity(kind, data)
}

func writeEntity(tx *bolt.Tx, e models.Entity) error {
	bucket := tx.Bucket([]byte(e.EntityKind()))
	if bucket == nil {
		return errors.InternalErrorf("no bucket for %s", e.EntityKind())
	}
	data, err := encodeEntity(e)
	if err != nil {
		return errors.StorageErrorf(err, "encode %s", e.EntityKind())
	}
	if err := bucket.Put(idKey(e.EntityID()), data); err != nil {
		return errors.StorageErrorf(err, "write %s %d", e.EntityKind(), e.EntityID())
	}
	return nil
}
