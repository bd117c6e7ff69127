package esquery

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esquery/internal/db"
)

// CommitHook transforms each queued item before it is indexed.
type CommitHook func(item any) (any, error)

// Commit indexes the queued items in chunks. Items without an id get a
// generated one; models implementing IDSetter receive it. Every item is
// validated before anything is sent. A failed chunk stops the remaining ones
// and the results of the chunks already sent are returned with the error.
// The queue is emptied only when every chunk succeeds.
func (c *Collection[T]) Commit(ctx context.Context, hook CommitHook) ([]BulkResult, error) {
	if len(c.pending) == 0 {
		return nil, nil
	}

	ops := make([]db.BulkOp, 0, len(c.pending))
	for i, item := range c.pending {
		if hook != nil {
			var err error
			if item, err = hook(item); err != nil {
				return nil, fmt.Errorf("commit hook on item %d: %w", i, err)
			}
		}
		op, err := c.indexOp(item)
		if err != nil {
			return nil, fmt.Errorf("commit item %d: %w", i, err)
		}
		ops = append(ops, op)
	}

	results, err := c.bulk(ctx, ops)
	if err != nil {
		return results, err
	}
	c.pending = nil
	return results, nil
}

func (c *Collection[T]) indexOp(item any) (db.BulkOp, error) {
	op := db.BulkOp{Action: db.BulkIndex, Index: c.index, Type: c.docType}

	switch v := item.(type) {
	case Model:
		op.ID = v.DocID()
		if op.ID == "" {
			op.ID = uuid.NewString()
			if s, ok := v.(IDSetter); ok {
				s.SetDocID(op.ID)
			}
		}
		if t := v.DocType(); t != "" {
			op.Type = t
		}
		if ix, ok := v.(Indexed); ok && ix.DocIndex() != "" {
			op.Index = ix.DocIndex()
		}
		op.Source = v.SourceDocument()
	case map[string]any:
		op.ID = formatID(v[idField])
		if op.ID == "" {
			op.ID = uuid.NewString()
		}
		op.Source = v
	default:
		return db.BulkOp{}, fmt.Errorf("%w: cannot index %T", ErrInvalidArgument, item)
	}
	return op, nil
}

// DeleteIn deletes documents by id. Each item is an id string or a Model;
// a model's own type and index are used.
func (c *Collection[T]) DeleteIn(ctx context.Context, items ...any) ([]BulkResult, error) {
	ops := make([]db.BulkOp, 0, len(items))
	for i, item := range items {
		op := db.BulkOp{Action: db.BulkDelete, Index: c.index, Type: c.docType}
		switch v := item.(type) {
		case string:
			op.ID = v
		case Model:
			op.ID = v.DocID()
			if t := v.DocType(); t != "" {
				op.Type = t
			}
			if ix, ok := v.(Indexed); ok && ix.DocIndex() != "" {
				op.Index = ix.DocIndex()
			}
		default:
			return nil, fmt.Errorf("%w: cannot delete %T (item %d)", ErrInvalidArgument, item, i)
		}
		if op.ID == "" {
			return nil, fmt.Errorf("%w: delete item %d has no id", ErrInvalidArgument, i)
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return nil, nil
	}
	return c.bulk(ctx, ops)
}

// bulk sends ops and drops cached copies of every document it touched,
// including those of a failed batch.
func (c *Collection[T]) bulk(ctx context.Context, ops []db.BulkOp) ([]BulkResult, error) {
	results, err := c.client.transport.Bulk(ctx, ops, c.client.bulkChunkSize)

	byIndex := make(map[string][]string)
	for _, op := range ops {
		byIndex[op.Index] = append(byIndex[op.Index], op.ID)
	}
	for index, ids := range byIndex {
		c.client.invalidate(ctx, index, ids)
	}

	if err != nil {
		c.client.logger.Error("bulk failed",
			zap.String("index", c.index),
			zap.Int("actions", len(ops)),
			zap.Int("chunks_done", len(results)),
			zap.Error(err),
		)
		return results, fmt.Errorf("bulk %s: %w", c.index, err)
	}
	return results, nil
}

// formatID renders an explicit map id as a backend id. Numbers decoded from
// JSON keep their integer form. nil yields "".
func formatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
