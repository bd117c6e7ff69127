package esquery

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esquery/internal/db"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs         []string
	username      string
	password      string
	httpTransport http.RoundTripper
	transport     db.Transport // injected backend, skips store creation

	defaultIndex     string
	resultsPerPage   int
	bulkChunkSize    int
	dialect          Dialect
	readinessTimeout time.Duration

	cacheAddrs    []string
	cachePassword string
	cacheStore    db.KVStore // injected cache store
	cacheTTL      time.Duration

	logger *zap.Logger
}

// WithAddresses sets the Elasticsearch node URLs.
func WithAddresses(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = addrs
	})
}

// WithBasicAuth sets HTTP basic auth credentials for the search backend.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithHTTPTransport overrides the HTTP transport used by the search backend client.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpTransport = rt
	})
}

// WithDefaultIndex sets the index used by collections whose model names none.
func WithDefaultIndex(index string) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultIndex = index
	})
}

// WithResultsPerPage sets the default page size for All. Default: 500.
func WithResultsPerPage(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.resultsPerPage = n
	})
}

// WithBulkChunkSize sets the number of actions per bulk request. Default: 500.
func WithBulkChunkSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.bulkChunkSize = n
	})
}

// WithDialect selects the rendered DSL. Default: DialectModern.
func WithDialect(d Dialect) Option {
	return optionFunc(func(c *clientConfig) {
		c.dialect = d
	})
}

// WithReadinessTimeout bounds how long New waits for the backend. Zero skips the wait.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithRedisCache enables a read-through Redis cache for Get and GetIn.
// A non-positive ttl means five minutes.
func WithRedisCache(addrs []string, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = addrs
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithLogger enables structured logging. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

func withTransport(t db.Transport) Option {
	return optionFunc(func(c *clientConfig) {
		c.transport = t
	})
}

func withCacheStore(s db.KVStore, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheStore = s
		c.cacheTTL = ttl
	})
}
