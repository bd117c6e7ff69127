package db

import (
	"context"
	"time"
)

// Transport is the search backend facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Transport interface {
	Pinger
	Searcher
	Counter
	Getter
	Deleter
	Bulker
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs search requests.
type Searcher interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	MoreLikeThis(ctx context.Context, index, docType, id string, size int) (*SearchResult, error)
}

// Counter counts matching documents.
type Counter interface {
	Count(ctx context.Context, req *SearchRequest) (int64, error)
}

// Getter fetches documents by id.
type Getter interface {
	// Get returns ErrDocumentNotFound when the backend reports 404.
	Get(ctx context.Context, index, docType, id string) (*Hit, error)
	// MultiGet returns found documents in request order, skipping missing ones.
	MultiGet(ctx context.Context, index, docType string, ids []string) ([]Hit, error)
}

// Deleter removes documents matching a query.
type Deleter interface {
	DeleteByQuery(ctx context.Context, req *SearchRequest) (int64, error)
}

// Bulker sends index/delete actions in chunks.
type Bulker interface {
	Bulk(ctx context.Context, ops []BulkOp, chunkSize int) ([]BulkResult, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, keys ...string) error
}
