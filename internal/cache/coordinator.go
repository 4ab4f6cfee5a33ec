package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/farhanzaki/apotekgo/internal/domain"
	"github.com/farhanzaki/apotekgo/pkg/logger"
	"github.com/farhanzaki/apotekgo/pkg/metrics"
)

// Shape selects the hot layer used for a collection.
type Shape int

const (
	// ShapePerTenant keeps the collection in the compact index. Meant
	// for small per-tenant sets such as a user's orders.
	ShapePerTenant Shape = iota
	// ShapeShared keeps the collection in the LRU. Meant for large
	// collections shared across tenants, such as the pharmacy catalogue.
	ShapeShared
)

const persistPrefix = "cache/"

// Config holds coordinator tuning knobs.
type Config struct {
	LRUCapacity int
	TTL         time.Duration
	// Shapes maps collection name to hot-layer shape. Collections not
	// listed default to ShapePerTenant.
	Shapes map[string]Shape
	// Clock is overridable for TTL boundary tests. Defaults to time.Now.
	Clock func() time.Time
}

// Coordinator orchestrates the three cache layers: the LRU hot cache,
// the compact per-tenant index, and the persistent TTL store. Reads fall
// through the layers in that order; a full miss is reported as
// domain.ErrNotAvailable and the caller fetches from the remote store.
type Coordinator struct {
	mu      sync.Mutex
	kv      domain.KVStore
	lru     *LRUCache[string, []json.RawMessage]
	compact *CompactIndex[string, []json.RawMessage]
	cfg     Config
}

var _ domain.CacheCoordinator = (*Coordinator)(nil)

// NewCoordinator creates a coordinator over the given persistence API.
func NewCoordinator(kv domain.KVStore, cfg Config) *Coordinator {
	if cfg.LRUCapacity < 1 {
		cfg.LRUCapacity = 200
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Coordinator{
		kv:      kv,
		lru:     NewLRU[string, []json.RawMessage](cfg.LRUCapacity),
		compact: NewCompactIndex[string, []json.RawMessage](),
		cfg:     cfg,
	}
}

func (c *Coordinator) shape(collection string) Shape {
	if s, ok := c.cfg.Shapes[collection]; ok {
		return s
	}
	return ShapePerTenant
}

func hotKey(tenantID, collection string) string {
	return tenantID + "/" + collection
}

func persistKey(tenantID, collection string) string {
	return persistPrefix + tenantID + "/" + collection
}

// Read returns a tenant's collection from the fastest layer that has it.
// A stale or missing persistent record yields domain.ErrNotAvailable;
// any storage failure degrades to the same miss rather than surfacing.
func (c *Coordinator) Read(ctx context.Context, tenantID, collection string) ([]json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := hotKey(tenantID, collection)

	switch c.shape(collection) {
	case ShapeShared:
		entities, ok := c.lru.Get(key)
		metrics.RecordCacheLookup("lru", ok)
		if ok {
			return entities, nil
		}
	default:
		entities, ok := c.compact.Get(key)
		metrics.RecordCacheLookup("compact", ok)
		if ok {
			return entities, nil
		}
	}

	blob, err := c.kv.Read(ctx, persistKey(tenantID, collection))
	if err != nil {
		metrics.RecordCacheLookup("persistent", false)
		if err != domain.ErrKeyNotFound {
			logger.Warn("Cache record read failed, treating as miss",
				logger.String("tenant_id", tenantID),
				logger.String("collection", collection),
				logger.ErrorField(err),
			)
		}
		return nil, domain.ErrNotAvailable
	}

	var record domain.CacheRecord
	if err := json.Unmarshal(blob, &record); err != nil {
		// Corrupt record: discard it and fall back to the remote store.
		logger.Warn("Discarding corrupt cache record",
			logger.String("tenant_id", tenantID),
			logger.String("collection", collection),
			logger.ErrorField(err),
		)
		if delErr := c.kv.Delete(ctx, persistKey(tenantID, collection)); delErr != nil {
			logger.Error("Failed to delete corrupt cache record", logger.ErrorField(delErr))
		}
		metrics.RecordCacheLookup("persistent", false)
		return nil, domain.ErrNotAvailable
	}

	if c.cfg.Clock().Sub(record.CachedAt) >= c.cfg.TTL {
		metrics.RecordCacheLookup("persistent", false)
		return nil, domain.ErrNotAvailable
	}

	metrics.RecordCacheLookup("persistent", true)
	c.hydrate(key, collection, record.Entities)

	return record.Entities, nil
}

// Write stores freshly fetched entities, stamped with the current time,
// and hydrates the hot layer. A storage failure is logged and swallowed:
// the hot layer still serves the data for this session.
func (c *Coordinator) Write(ctx context.Context, tenantID, collection string, entities []json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	record := domain.CacheRecord{
		Entities: entities,
		CachedAt: c.cfg.Clock(),
	}
	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal cache record: %w", err)
	}

	if err := c.kv.Write(ctx, persistKey(tenantID, collection), blob); err != nil {
		logger.Error("Failed to persist cache record",
			logger.String("tenant_id", tenantID),
			logger.String("collection", collection),
			logger.ErrorField(err),
		)
	}

	c.hydrate(hotKey(tenantID, collection), collection, entities)

	return nil
}

// hydrate places entities in the hot layer matching the collection shape.
func (c *Coordinator) hydrate(key, collection string, entities []json.RawMessage) {
	before := c.lru.Stats().Evictions
	switch c.shape(collection) {
	case ShapeShared:
		c.lru.Put(key, entities)
		if c.lru.Stats().Evictions > before {
			metrics.RecordCacheEviction("lru")
		}
	default:
		c.compact.Put(key, entities)
	}
}

// Invalidate removes everything cached for one tenant, across all
// layers. Used on account switch.
func (c *Coordinator) Invalidate(ctx context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := tenantID + "/"
	c.lru.RemoveFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
	c.compact.RemoveFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })

	metrics.RecordCacheInvalidation("tenant")

	if err := c.kv.DeletePrefix(ctx, persistPrefix+prefix); err != nil {
		return fmt.Errorf("failed to invalidate tenant cache: %w", err)
	}
	return nil
}

// InvalidateAll wipes every cache layer. Used on logout.
func (c *Coordinator) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Clear()
	c.compact.Clear()

	metrics.RecordCacheInvalidation("global")

	if err := c.kv.DeletePrefix(ctx, persistPrefix); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}
