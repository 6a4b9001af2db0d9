package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/rohankatakam/pagegraph/internal/config"
	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/schema"
	"github.com/rohankatakam/pagegraph/internal/storage"
)

// CachedStore is a read-through cache in front of a Store. Entity lookups are
// served from memory for the configured TTL, and concurrent misses for the
// same key share a single backend call.
//
// Store-maintained edges (Page.contents) change when a blockquote is created,
// so a successful Create through this store evicts the affected page.
// Every eviction bumps the key's generation; a lookup that started under an
// older generation returns its result but never caches it.
type CachedStore struct {
	next     storage.Store
	logger   *logrus.Logger
	memCache *cache.Cache
	group    singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

// NewCachedStore wraps next with a lookup cache
func NewCachedStore(next storage.Store, cfg config.CacheConfig, logger *logrus.Logger) *CachedStore {
	return &CachedStore{
		next:     next,
		logger:   logger,
		memCache: cache.New(cfg.TTL, cfg.CleanupInterval),
		gens:     make(map[string]uint64),
	}
}

// Stats reports how many entries are cached
type Stats struct {
	Entries int
}

// Stats returns current cache statistics
func (c *CachedStore) Stats() Stats {
	return Stats{Entries: c.memCache.ItemCount()}
}

// Schema returns the wrapped store's schema
func (c *CachedStore) Schema() *schema.Schema {
	return c.next.Schema()
}

// Create forwards to the wrapped store and evicts entries it invalidates
func (c *CachedStore) Create(ctx context.Context, kind models.Kind, fields schema.Fields) (models.ID, error) {
	id, err := c.next.Create(ctx, kind, fields)
	if err != nil {
		return 0, err
	}

	stale := []string{listKey(kind)}
	if e, err := c.next.Get(ctx, kind, id); err == nil {
		if bq, ok := e.(*models.Blockquote); ok {
			stale = append(stale, entityKey(bq.Page.Kind, bq.Page.ID))
		}
	}
	// Union list keys may include the new kind
	for _, u := range c.next.Schema().UnionKinds() {
		if c.next.Schema().Accepts(u, kind) {
			stale = append(stale, listKey(u))
		}
	}
	c.evict(stale...)
	return id, nil
}

// Get returns the entity from memory or loads it from the wrapped store
func (c *CachedStore) Get(ctx context.Context, kind models.Kind, id models.ID) (models.Entity, error) {
	key := entityKey(kind, id)
	if cached, found := c.memCache.Get(key); found {
		return cached.(models.Entity), nil
	}

	v, shared, err := c.load(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.next.Get(ctx, kind, id)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.WithField("key", key).Debug("Shared in-flight entity lookup")
	}
	return v.(models.Entity), nil
}

// List returns the id list from memory or loads it from the wrapped store
func (c *CachedStore) List(ctx context.Context, kind models.Kind) ([]models.ID, error) {
	key := listKey(kind)
	if cached, found := c.memCache.Get(key); found {
		return copyIDs(cached.([]models.ID)), nil
	}

	v, _, err := c.load(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.next.List(ctx, kind)
	})
	if err != nil {
		return nil, err
	}
	return copyIDs(v.([]models.ID)), nil
}

// load runs fetch once per key and generation, however many callers ask.
// The shared call is detached from any single caller's cancellation; each
// caller stops waiting when its own ctx is done.
func (c *CachedStore) load(ctx context.Context, key string, fetch func(context.Context) (interface{}, error)) (interface{}, bool, error) {
	gen := c.generation(key)
	flight := fmt.Sprintf("%s#%d", key, gen)
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(flight, func() (interface{}, error) {
		v, err := fetch(detached)
		if err != nil {
			return nil, err
		}
		c.setIfCurrent(key, v, gen)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, errors.Canceled(ctx.Err())
	}
}

func (c *CachedStore) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

// setIfCurrent caches v unless key was evicted after gen was read
func (c *CachedStore) setIfCurrent(key string, v interface{}, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return
	}
	c.memCache.Set(key, v, cache.DefaultExpiration)
}

func (c *CachedStore) evict(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.gens[key]++
		c.memCache.Delete(key)
	}
}

// Flush drops every cached entry
func (c *CachedStore) Flush() {
	c.memCache.Flush()
}

// Close closes the wrapped store
func (c *CachedStore) Close() error {
	c.memCache.Flush()
	return c.next.Close()
}

func entityKey(kind models.Kind, id models.ID) string {
	return fmt.Sprintf("entity:%s:%d", kind, id)
}

func listKey(kind models.Kind) string {
	return "list:" + string(kind)
}

func copyIDs(ids []models.ID) []models.ID {
	out := make([]models.ID, len(ids))
	copy(out, ids)
	return out
}

var _ storage.Store = (*CachedStore)(nil)
