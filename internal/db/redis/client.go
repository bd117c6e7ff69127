package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/esquery/internal/db"
)

var (
	_ db.KVStore = (*Store)(nil)
	_ db.Pinger  = (*Store)(nil)
)

const defaultConnWriteTimeout = 3 * time.Second

// Config holds connection parameters for the document cache.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// ConnWriteTimeout bounds a single write to the server. Default: 3s.
	ConnWriteTimeout time.Duration
}

// Store is the document cache key-value store, backed by rueidis.
type Store struct {
	client rueidis.Client
}

// NewStore connects to Redis. The connection is checked lazily; use Ping
// to probe it.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("cache addrs is required")
	}
	writeTimeout := cfg.ConnWriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultConnWriteTimeout
	}

	// Client-side caching stays off: values here are already cached copies
	// and must disappear as soon as they are deleted.
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      cfg.Addrs,
		Username:         cfg.Username,
		Password:         cfg.Password,
		SelectDB:         cfg.DB,
		ClientName:       "esquery",
		ConnWriteTimeout: writeTimeout,
		DisableCache:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache client: %w", err)
	}
	return &Store{client: client}, nil
}

// NewStoreForTest wraps an existing rueidis client (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}

// Ping checks cache connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}
