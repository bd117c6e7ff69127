package doccache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esquery/internal/db"
)

const cacheKeyPrefix = "esquery:doc:"

// DefaultTTL is used when New is given a non-positive ttl.
const DefaultTTL = 5 * time.Minute

// store is the consumer interface for the document cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Compile-time check: CachedGetter implements db.Getter.
var _ db.Getter = (*CachedGetter)(nil)

// CachedGetter is a read-through cache in front of a db.Getter.
// Cache failures are logged and fall through to the backend.
type CachedGetter struct {
	inner      db.Getter
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"error"), passed explicitly.
func New(
	inner db.Getter,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedGetter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedGetter{inner: inner, store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Get returns a cached document or fetches it from the backend.
// Not-found results are never cached.
func (c *CachedGetter) Get(ctx context.Context, index, docType, id string) (*db.Hit, error) {
	key := cacheKey(index, id)

	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if hit, ok := c.decode(key, data); ok {
			c.incCache("hit")
			return hit, nil
		}
	case !errors.Is(err, db.ErrKeyNotFound):
		c.incCache("error")
		c.logger.Warn("Failed to get cached document", zap.String("key", key), zap.Error(err))
	}
	c.incCache("miss")

	hit, err := c.inner.Get(ctx, index, docType, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	c.put(ctx, key, hit)
	return hit, nil
}

// MultiGet serves cached documents and fetches the rest in one backend call.
// Results keep request order and skip documents missing from the backend.
func (c *CachedGetter) MultiGet(ctx context.Context, index, docType string, ids []string) ([]db.Hit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(index, id)
	}

	found := make(map[string]*db.Hit, len(ids))
	cached, err := c.store.MGet(ctx, keys)
	if err != nil {
		c.incCache("error")
		c.logger.Warn("Failed to get cached documents", zap.Int("count", len(keys)), zap.Error(err))
		cached = nil
	}
	var missing []string
	for i, id := range ids {
		if i < len(cached) && cached[i] != nil {
			if hit, ok := c.decode(keys[i], cached[i]); ok {
				c.incCache("hit")
				found[id] = hit
				continue
			}
		}
		c.incCache("miss")
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		hits, err := c.inner.MultiGet(ctx, index, docType, missing)
		if err != nil {
			return nil, fmt.Errorf("multi get documents: %w", err)
		}
		for i := range hits {
			found[hits[i].ID] = &hits[i]
			c.put(ctx, cacheKey(index, hits[i].ID), &hits[i])
		}
	}

	out := make([]db.Hit, 0, len(found))
	for _, id := range ids {
		if hit, ok := found[id]; ok {
			out = append(out, *hit)
		}
	}
	return out, nil
}

// Invalidate drops cached copies of ids after they were written or deleted.
func (c *CachedGetter) Invalidate(ctx context.Context, index string, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(index, id)
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		c.logger.Warn("Failed to invalidate cached documents", zap.Int("count", len(keys)), zap.Error(err))
	}
}

func (c *CachedGetter) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedGetter) decode(key string, data []byte) (*db.Hit, bool) {
	var hit db.Hit
	if err := json.Unmarshal(data, &hit); err != nil || hit.ID == "" {
		c.logger.Warn("Failed to parse cached document", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	// A hit cached without a source round-trips as "null".
	if string(hit.Source) == "null" {
		hit.Source = nil
	}
	return &hit, true
}

func (c *CachedGetter) put(ctx context.Context, key string, hit *db.Hit) {
	data, err := json.Marshal(hit)
	if err != nil {
		c.logger.Warn("Failed to encode document for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache document", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(index, id string) string {
	return cacheKeyPrefix + index + ":" + id
}
