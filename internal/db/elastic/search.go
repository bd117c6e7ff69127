package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/kailas-cloud/esquery/internal/db"
	"github.com/kailas-cloud/esquery/internal/domain/query"
)

type hitJSON struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  *float64        `json:"_score"`
	Found  *bool           `json:"found"`
	Source json.RawMessage `json:"_source"`
}

func (h hitJSON) toHit() db.Hit {
	hit := db.Hit{Index: h.Index, ID: h.ID, Source: h.Source}
	if h.Score != nil {
		hit.Score = *h.Score
	}
	return hit
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []hitJSON `json:"hits"`
	} `json:"hits"`
}

// Search runs a search request. Either Body or Q is sent, never both.
func (s *Store) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResult, error) {
	opts := []func(*esapi.SearchRequest){
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(req.Index),
		s.es.Search.WithTrackTotalHits(true),
	}
	if req.Body != nil {
		opts = append(opts, s.es.Search.WithBody(esutil.NewJSONReader(req.Body)))
	} else if req.Q != "" {
		opts = append(opts, s.es.Search.WithQuery(req.Q))
	}
	if len(req.Sort) > 0 {
		opts = append(opts, s.es.Search.WithSort(req.Sort...))
	}
	if req.Size > 0 {
		opts = append(opts, s.es.Search.WithSize(req.Size))
	}
	if req.From > 0 {
		opts = append(opts, s.es.Search.WithFrom(req.From))
	}

	res, err := s.do(db.OpSearch, func() (*esapi.Response, error) {
		return s.es.Search(opts...)
	})
	if err != nil {
		return nil, err
	}
	return s.decodeSearch(db.OpSearch, res)
}

// MoreLikeThis returns documents similar to id.
func (s *Store) MoreLikeThis(ctx context.Context, index, _, id string, size int) (*db.SearchResult, error) {
	body := map[string]any{"query": map[string]any(query.MoreLikeThis(index, id))}
	opts := []func(*esapi.SearchRequest){
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(index),
		s.es.Search.WithBody(esutil.NewJSONReader(body)),
	}
	if size > 0 {
		opts = append(opts, s.es.Search.WithSize(size))
	}

	res, err := s.do(db.OpMoreLikeThis, func() (*esapi.Response, error) {
		return s.es.Search(opts...)
	})
	if err != nil {
		return nil, err
	}
	return s.decodeSearch(db.OpMoreLikeThis, res)
}

func (s *Store) decodeSearch(op string, res *esapi.Response) (*db.SearchResult, error) {
	var sr searchResponse
	if err := decode(op, res, &sr); err != nil {
		return nil, err
	}
	out := &db.SearchResult{Total: sr.Hits.Total.Value, Hits: make([]db.Hit, 0, len(sr.Hits.Hits))}
	for _, h := range sr.Hits.Hits {
		out.Hits = append(out.Hits, h.toHit())
	}
	return out, nil
}

// Count returns the number of matching documents.
func (s *Store) Count(ctx context.Context, req *db.SearchRequest) (int64, error) {
	opts := []func(*esapi.CountRequest){
		s.es.Count.WithContext(ctx),
		s.es.Count.WithIndex(req.Index),
	}
	if body := queryOnly(req.Body); body != nil {
		opts = append(opts, s.es.Count.WithBody(esutil.NewJSONReader(body)))
	} else if req.Q != "" {
		opts = append(opts, s.es.Count.WithQuery(req.Q))
	}

	res, err := s.do(db.OpCount, func() (*esapi.Response, error) {
		return s.es.Count(opts...)
	})
	if err != nil {
		return 0, err
	}
	var cr struct {
		Count int64 `json:"count"`
	}
	if err := decode(db.OpCount, res, &cr); err != nil {
		return 0, err
	}
	return cr.Count, nil
}

// Get fetches one document. A 404 maps to db.ErrDocumentNotFound.
func (s *Store) Get(ctx context.Context, index, _, id string) (*db.Hit, error) {
	res, err := s.do(db.OpGet, func() (*esapi.Response, error) {
		return s.es.Get(index, id, s.es.Get.WithContext(ctx))
	})
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusNotFound {
		_ = res.Body.Close()
		return nil, &db.Error{Op: db.OpGet, Err: db.ErrDocumentNotFound}
	}

	var h hitJSON
	if err := decode(db.OpGet, res, &h); err != nil {
		return nil, err
	}
	if h.Found != nil && !*h.Found {
		return nil, &db.Error{Op: db.OpGet, Err: db.ErrDocumentNotFound}
	}
	hit := h.toHit()
	return &hit, nil
}

// MultiGet fetches several documents, skipping missing ones.
func (s *Store) MultiGet(ctx context.Context, index, _ string, ids []string) ([]db.Hit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	body := esutil.NewJSONReader(map[string]any{"ids": ids})
	res, err := s.do(db.OpMultiGet, func() (*esapi.Response, error) {
		return s.es.Mget(body, s.es.Mget.WithContext(ctx), s.es.Mget.WithIndex(index))
	})
	if err != nil {
		return nil, err
	}

	var mr struct {
		Docs []hitJSON `json:"docs"`
	}
	if err := decode(db.OpMultiGet, res, &mr); err != nil {
		return nil, err
	}
	hits := make([]db.Hit, 0, len(mr.Docs))
	for _, d := range mr.Docs {
		if d.Found != nil && !*d.Found {
			continue
		}
		hits = append(hits, d.toHit())
	}
	return hits, nil
}

// DeleteByQuery removes matching documents and returns how many were deleted.
func (s *Store) DeleteByQuery(ctx context.Context, req *db.SearchRequest) (int64, error) {
	opts := []func(*esapi.DeleteByQueryRequest){
		s.es.DeleteByQuery.WithContext(ctx),
	}
	var body io.Reader
	switch q := queryOnly(req.Body); {
	case q != nil:
		body = esutil.NewJSONReader(q)
	case req.Q != "":
		opts = append(opts, s.es.DeleteByQuery.WithQuery(req.Q))
	default:
		return 0, &db.Error{Op: db.OpDeleteByQuery, Err: errors.New("query is required")}
	}

	res, err := s.do(db.OpDeleteByQuery, func() (*esapi.Response, error) {
		return s.es.DeleteByQuery([]string{req.Index}, body, opts...)
	})
	if err != nil {
		return 0, err
	}
	var dr struct {
		Deleted int64 `json:"deleted"`
	}
	if err := decode(db.OpDeleteByQuery, res, &dr); err != nil {
		return 0, err
	}
	return dr.Deleted, nil
}
