package db

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend operations.
var (
	ErrKeyNotFound      = errors.New("db: key not found")
	ErrDocumentNotFound = errors.New("db: document not found")
)

// Op constants name backend operations for error context.
const (
	OpPing          = "PING"
	OpSearch        = "SEARCH"
	OpCount         = "COUNT"
	OpGet           = "GET"
	OpMultiGet      = "MGET"
	OpMoreLikeThis  = "MLT"
	OpDeleteByQuery = "DELETE_BY_QUERY"
	OpBulk          = "BULK"
	OpKVGet         = "KV.GET"
	OpKVSet         = "KV.SET"
	OpKVDel         = "KV.DEL"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// ResponseError is a non-2xx backend response.
type ResponseError struct {
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Body)
}

// BulkError reports a chunk whose response carried item failures.
type BulkError struct {
	Chunk  int
	Failed int
	First  string
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk chunk %d: %d items failed, first: %s", e.Chunk, e.Failed, e.First)
}
