package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esquery/internal/db"
)

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id,omitempty"`
}

type bulkItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

type bulkResponse struct {
	Errors bool                         `json:"errors"`
	Items  []map[db.BulkAction]bulkItem `json:"items"`
}

// Bulk sends ops in chunks of chunkSize, in order. The first failing chunk
// (transport error or item errors) stops the batch; results gathered so far,
// including the failing chunk when it was decoded, are returned with the error.
func (s *Store) Bulk(ctx context.Context, ops []db.BulkOp, chunkSize int) ([]db.BulkResult, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultBulkChunkSize
	}

	results := make([]db.BulkResult, 0, (len(ops)+chunkSize-1)/chunkSize)
	for chunk, start := 0, 0; start < len(ops); chunk, start = chunk+1, start+chunkSize {
		end := min(start+chunkSize, len(ops))
		body, err := encodeBulk(ops[start:end])
		if err != nil {
			return results, &db.Error{Op: db.OpBulk, Err: err}
		}

		res, err := s.do(db.OpBulk, func() (*esapi.Response, error) {
			return s.es.Bulk(bytes.NewReader(body), s.es.Bulk.WithContext(ctx))
		})
		if err != nil {
			return results, err
		}
		var br bulkResponse
		if err := decode(db.OpBulk, res, &br); err != nil {
			return results, err
		}

		result, failed, first := toBulkResult(br)
		results = append(results, result)
		if br.Errors {
			return results, &db.Error{Op: db.OpBulk, Err: &db.BulkError{Chunk: chunk, Failed: failed, First: first}}
		}
	}
	return results, nil
}

// encodeBulk renders ops as NDJSON: an action line, then a source line for index ops.
func encodeBulk(ops []db.BulkOp) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, op := range ops {
		switch op.Action {
		case db.BulkIndex:
			if err := enc.Encode(map[db.BulkAction]bulkMeta{op.Action: {Index: op.Index, ID: op.ID}}); err != nil {
				return nil, fmt.Errorf("encode action: %w", err)
			}
			if err := enc.Encode(op.Source); err != nil {
				return nil, fmt.Errorf("encode source for %q: %w", op.ID, err)
			}
		case db.BulkDelete:
			if op.ID == "" {
				return nil, fmt.Errorf("delete action requires an id")
			}
			if err := enc.Encode(map[db.BulkAction]bulkMeta{op.Action: {Index: op.Index, ID: op.ID}}); err != nil {
				return nil, fmt.Errorf("encode action: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported bulk action %q", op.Action)
		}
	}
	return buf.Bytes(), nil
}

func toBulkResult(br bulkResponse) (db.BulkResult, int, string) {
	out := db.BulkResult{Errors: br.Errors, Items: make([]db.BulkItemResult, 0, len(br.Items))}
	failed, first := 0, ""
	for _, entry := range br.Items {
		for action, item := range entry {
			r := db.BulkItemResult{Action: action, ID: item.ID, Status: item.Status}
			if item.Error != nil {
				r.Error = item.Error.Type + ": " + item.Error.Reason
				if failed == 0 {
					first = item.ID + " " + r.Error
				}
				failed++
			}
			out.Items = append(out.Items, r)
		}
	}
	return out, failed, first
}
