package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esquery/internal/db"
	"github.com/kailas-cloud/esquery/internal/metrics"
)

// Compile-time check: Store implements db.Transport.
var _ db.Transport = (*Store)(nil)

// DefaultBulkChunkSize is used when Bulk is called with a non-positive chunk size.
const DefaultBulkChunkSize = 500

// Config holds connection parameters for an Elasticsearch store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	// Transport overrides the HTTP transport (tests, custom TLS).
	Transport http.RoundTripper
}

// Store implements db.Transport over the go-elasticsearch v8 client.
// Mapping types do not exist in 8.x, so docType arguments are accepted and ignored.
type Store struct {
	es *elasticsearch.Client
}

// NewStore creates an Elasticsearch store. Requests are never retried.
func NewStore(cfg Config) (*Store, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Store{es: es}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.do(db.OpPing, func() (*esapi.Response, error) {
		return s.es.Ping(s.es.Ping.WithContext(ctx))
	})
	if err != nil {
		return err
	}
	return decode(db.OpPing, res, nil)
}

// WaitForReady polls Ping until the backend responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search backend: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// do runs one esapi call and records its outcome.
func (s *Store) do(op string, call func() (*esapi.Response, error)) (*esapi.Response, error) {
	start := time.Now()
	res, err := call()
	if err != nil {
		metrics.ObserveBackend(op, "error", start)
		return nil, &db.Error{Op: op, Err: err}
	}
	metrics.ObserveBackend(op, strconv.Itoa(res.StatusCode), start)
	return res, nil
}

// decode closes the response body. Non-2xx responses become *db.ResponseError.
func decode(op string, res *esapi.Response, v any) error {
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return &db.Error{Op: op, Err: &db.ResponseError{Status: res.StatusCode, Body: string(body)}}
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// queryOnly keeps the "query" key. Count and delete-by-query reject sort, size and aggs.
func queryOnly(body map[string]any) map[string]any {
	q, ok := body["query"]
	if !ok {
		return nil
	}
	return map[string]any{"query": q}
}
