package storage

import (
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/pagegraph/internal/config"
	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/schema"
)

// Open creates the store selected by cfg
func Open(cfg config.StorageConfig, sch *schema.Schema, logger *logrus.Logger) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(sch, logger), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path, sch, logger)
	case "bolt":
		return NewBoltStore(cfg.Path, sch, logger)
	default:
		return nil, errors.ConfigErrorf("unknown storage type %q", cfg.Type)
	}
}
