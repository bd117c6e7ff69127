package db

import "encoding/json"

// SearchRequest is the input for search, count and delete-by-query.
// Exactly one of Body and Q is set.
type SearchRequest struct {
	Index string
	Type  string
	Body  map[string]any
	Q     string
	Sort  []string
	Size  int // 0 leaves the backend default
	From  int
}

// Hit is a single document returned by the backend.
type Hit struct {
	Index  string
	ID     string
	Score  float64
	Source json.RawMessage
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total int64
	Hits  []Hit
}

// BulkAction is the bulk operation kind.
type BulkAction string

// Supported bulk actions.
const (
	BulkIndex  BulkAction = "index"
	BulkDelete BulkAction = "delete"
)

// BulkOp is a single bulk action item.
type BulkOp struct {
	Action BulkAction
	Index  string
	Type   string
	ID     string
	Source map[string]any // nil for deletes
}

// BulkItemResult is the backend outcome of one action.
type BulkItemResult struct {
	Action BulkAction
	ID     string
	Status int
	Error  string
}

// BulkResult is the outcome of one chunk.
type BulkResult struct {
	Items  []BulkItemResult
	Errors bool
}
