package esquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esquery/internal/db"
	"github.com/kailas-cloud/esquery/internal/db/elastic"
	dbRedis "github.com/kailas-cloud/esquery/internal/db/redis"
	"github.com/kailas-cloud/esquery/internal/domain/search/request"
	"github.com/kailas-cloud/esquery/internal/metrics"
	"github.com/kailas-cloud/esquery/internal/repository/doccache"
)

const defaultReadinessTimeout = 10 * time.Second

// invalidator drops cached documents after writes.
type invalidator interface {
	Invalidate(ctx context.Context, index string, ids ...string)
}

// Client is the esquery entry point. It is safe for concurrent use;
// the collections it creates are not.
type Client struct {
	transport db.Transport
	getter    db.Getter
	cache     invalidator
	cachePing db.Pinger // nil unless the cache store can be pinged
	closers   []func()

	defaultIndex   string
	resultsPerPage int
	bulkChunkSize  int
	dialect        Dialect
	logger         *zap.Logger
}

// New creates a Client and waits for the search backend to answer.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		resultsPerPage:   request.DefaultSize,
		bulkChunkSize:    elastic.DefaultBulkChunkSize,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.resultsPerPage <= 0 {
		return nil, fmt.Errorf("%w: results per page must be positive", ErrInvalidArgument)
	}
	if cfg.bulkChunkSize <= 0 {
		return nil, fmt.Errorf("%w: bulk chunk size must be positive", ErrInvalidArgument)
	}

	c := &Client{
		defaultIndex:   cfg.defaultIndex,
		resultsPerPage: cfg.resultsPerPage,
		bulkChunkSize:  cfg.bulkChunkSize,
		dialect:        cfg.dialect,
		logger:         cfg.logger,
	}

	if cfg.transport != nil {
		c.transport = cfg.transport
	} else {
		store, err := createStore(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.readinessTimeout > 0 {
			if err := store.WaitForReady(context.Background(), cfg.readinessTimeout); err != nil {
				return nil, fmt.Errorf("esquery: search backend not ready: %w", err)
			}
		}
		c.transport = store
	}
	c.getter = c.transport

	if err := c.wireCache(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (*elastic.Store, error) {
	if len(cfg.addrs) == 0 {
		return nil, errors.New("esquery: search backend address required (use WithAddresses)")
	}
	s, err := elastic.NewStore(elastic.Config{
		Addrs:     cfg.addrs,
		Username:  cfg.username,
		Password:  cfg.password,
		Transport: cfg.httpTransport,
	})
	if err != nil {
		return nil, fmt.Errorf("esquery: create elasticsearch store: %w", err)
	}
	return s, nil
}

func (c *Client) wireCache(cfg *clientConfig) error {
	store := cfg.cacheStore
	if store == nil && len(cfg.cacheAddrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			return fmt.Errorf("esquery: create redis cache: %w", err)
		}
		c.closers = append(c.closers, s.Close)
		store = s
	}
	if store == nil {
		return nil
	}

	cached := doccache.New(c.transport, store, cfg.cacheTTL, metrics.DocCacheTotal, c.logger)
	c.getter = cached
	c.cache = cached
	if p, ok := store.(db.Pinger); ok {
		c.cachePing = p
	}
	return nil
}

// Close releases all resources.
func (c *Client) Close() {
	for _, fn := range c.closers {
		fn()
	}
	c.closers = nil
}

// Ping checks search backend connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.transport.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// HasCache reports whether a document cache is configured.
func (c *Client) HasCache() bool { return c.cache != nil }

// PingCache checks document cache connectivity. It is a no-op without a cache.
func (c *Client) PingCache(ctx context.Context) error {
	if c.cachePing == nil {
		return nil
	}
	if err := c.cachePing.Ping(ctx); err != nil {
		return fmt.Errorf("ping cache: %w", err)
	}
	return nil
}

// Dialect returns the DSL dialect collections render with.
func (c *Client) Dialect() Dialect { return c.dialect }

func (c *Client) invalidate(ctx context.Context, index string, ids []string) {
	if c.cache != nil && len(ids) > 0 {
		c.cache.Invalidate(ctx, index, ids...)
	}
}
