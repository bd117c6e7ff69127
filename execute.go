package esquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esquery/internal/db"
	"github.com/kailas-cloud/esquery/internal/domain/search/request"
)

// PageOption tunes one All call.
type PageOption func(*page)

type page struct {
	from    int
	size    int
	hasFrom bool
	hasSize bool
}

// Start sets the offset of the first result.
func Start(n int) PageOption {
	return func(p *page) { p.from, p.hasFrom = n, true }
}

// ResultsPerPage sets the number of results returned.
func ResultsPerPage(n int) PageOption {
	return func(p *page) { p.size, p.hasSize = n, true }
}

// Count returns the number of documents the current search matches.
func (c *Collection[T]) Count(ctx context.Context) (int64, error) {
	r, err := c.request()
	if err != nil {
		return 0, err
	}
	c.logRequest("count", &r)

	n, err := c.client.transport.Count(ctx, toSearchRequest(&r))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.index, err)
	}
	return n, nil
}

// All runs the search and hydrates every returned row.
func (c *Collection[T]) All(ctx context.Context, opts ...PageOption) ([]T, error) {
	r, err := c.request()
	if err != nil {
		return nil, err
	}

	p := page{from: c.from, size: c.size}
	for _, o := range opts {
		o(&p)
	}
	if p.size == 0 {
		p.size = c.client.resultsPerPage
	}
	if err := r.Paginate(p.size, p.from); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if err := r.ApplySort(c.sort); err != nil {
		return nil, err
	}
	c.logRequest("search", &r)

	res, err := c.client.transport.Search(ctx, toSearchRequest(&r))
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.index, err)
	}
	return c.hydrateAll(res.Hits)
}

// One returns the first result, or ErrNoResultsFound.
func (c *Collection[T]) One(ctx context.Context) (T, error) {
	var zero T
	items, err := c.All(ctx, ResultsPerPage(1))
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrNoResultsFound
	}
	return items[0], nil
}

// Delete removes every document the current search matches and returns how
// many were deleted. Cached copies expire with their TTL.
func (c *Collection[T]) Delete(ctx context.Context) (int64, error) {
	r, err := c.request()
	if err != nil {
		return 0, err
	}
	c.logRequest("delete by query", &r)

	n, err := c.client.transport.DeleteByQuery(ctx, toSearchRequest(&r))
	if err != nil {
		return 0, fmt.Errorf("delete by query %s: %w", c.index, err)
	}
	return n, nil
}

// Get fetches one document by id. It returns ErrNotFound only when the
// backend reports the document missing; other failures are returned as is.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	hit, err := c.client.getter.Get(ctx, c.index, c.docType, id)
	if err != nil {
		if errors.Is(err, db.ErrDocumentNotFound) {
			return zero, fmt.Errorf("%w: %s/%s", ErrNotFound, c.index, id)
		}
		return zero, fmt.Errorf("get %s/%s: %w", c.index, id, err)
	}
	return c.hydrate(*hit)
}

// GetIn fetches documents by id, skipping missing ones. No ids means no request.
func (c *Collection[T]) GetIn(ctx context.Context, ids ...string) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	hits, err := c.client.getter.MultiGet(ctx, c.index, c.docType, ids)
	if err != nil {
		return nil, fmt.Errorf("multi get %s: %w", c.index, err)
	}
	return c.hydrateAll(hits)
}

// LikeThis returns documents similar to the document id.
func (c *Collection[T]) LikeThis(ctx context.Context, id string) ([]T, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	res, err := c.client.transport.MoreLikeThis(ctx, c.index, c.docType, id, c.client.resultsPerPage)
	if err != nil {
		return nil, fmt.Errorf("more like this %s/%s: %w", c.index, id, err)
	}
	return c.hydrateAll(res.Hits)
}

// hydrateAll skips rows that carry no source.
func (c *Collection[T]) hydrateAll(hits []db.Hit) ([]T, error) {
	out := make([]T, 0, len(hits))
	for _, h := range hits {
		if !hasSource(h) {
			continue
		}
		item, err := c.hydrate(h)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// hydrate decodes {..._source, "id": _id, "_set_by_query": true} into T.
func (c *Collection[T]) hydrate(h db.Hit) (T, error) {
	var zero T
	row := make(map[string]any)
	if hasSource(h) {
		if err := json.Unmarshal(h.Source, &row); err != nil {
			return zero, fmt.Errorf("decode source of %s: %w", h.ID, err)
		}
	}
	if row == nil {
		row = make(map[string]any)
	}
	row[idField] = h.ID
	row[setByQueryField] = true

	item, err := c.decode(row)
	if err != nil {
		return zero, fmt.Errorf("hydrate %s: %w", h.ID, err)
	}
	return item, nil
}

// hasSource reports whether h carries a non-null _source.
func hasSource(h db.Hit) bool {
	src := bytes.TrimSpace(h.Source)
	return len(src) > 0 && !bytes.Equal(src, []byte("null"))
}

func toSearchRequest(r *request.Request) *db.SearchRequest {
	return &db.SearchRequest{
		Index: r.Index(),
		Type:  r.Type(),
		Body:  r.Body(),
		Q:     r.Q(),
		Sort:  r.Sort(),
		Size:  r.Size(),
		From:  r.From(),
	}
}

func (c *Collection[T]) logRequest(op string, r *request.Request) {
	if ce := c.client.logger.Check(zap.DebugLevel, op); ce != nil {
		ce.Write(
			zap.String("index", r.Index()),
			zap.String("type", r.Type()),
			zap.Stringer("source", r.Source()),
			zap.Any("body", r.Body()),
			zap.String("q", r.Q()),
			zap.Strings("sort", r.Sort()),
			zap.Int("size", r.Size()),
			zap.Int("from", r.From()),
		)
	}
}
