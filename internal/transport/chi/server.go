package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esquery"
	logpkg "github.com/kailas-cloud/esquery/internal/logger"
	"github.com/kailas-cloud/esquery/internal/usecase/health"
	"github.com/kailas-cloud/esquery/internal/version"
)

// maxCommitDocuments bounds one POST /indexes/{index}/docs body.
const maxCommitDocuments = 10000

// Server exposes search, count and document endpoints over an esquery Client.
type Server struct {
	client *esquery.Client
	health *health.Service
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(client *esquery.Client, health *health.Service, logger *zap.Logger) *Server {
	return &Server{client: client, health: health, logger: logger}
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Use(s.requestLogger)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/indexes/{index}", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Get("/count", s.Count)
		r.Post("/docs", s.CommitDocuments)
		r.Get("/docs/{id}", s.GetDocument)
		r.Delete("/docs/{id}", s.DeleteDocument)
		r.Get("/docs/{id}/like", s.LikeDocument)
	})
}

// requestLogger gives handlers a logger tagged with the request id unless an
// outer middleware already stored one.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := logpkg.Lookup(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		l := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
		next.ServeHTTP(w, r.WithContext(logpkg.ContextWithLogger(r.Context(), l)))
	})
}

type documentResponse struct {
	ID     string         `json:"id"`
	Source map[string]any `json:"source"`
}

type searchResponse struct {
	Items []documentResponse `json:"items"`
	Count int                `json:"count"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

type commitResponse struct {
	Indexed int `json:"indexed"`
	Chunks  int `json:"chunks"`
}

type healthResponse struct {
	Status  health.Status                 `json:"status"`
	Checks  map[string]health.CheckResult `json:"checks"`
	Version version.Info                  `json:"version"`
}

func (s *Server) collection(r *http.Request) (*esquery.Collection[*esquery.Document], error) {
	return esquery.NewCollection(s.client, esquery.DecodeDocument, esquery.WithIndex(chi.URLParam(r, "index")))
}

// composed builds a collection from the search query string.
func (s *Server) composed(r *http.Request) (*esquery.Collection[*esquery.Document], *searchParams, error) {
	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		return nil, nil, err
	}
	col, err := s.collection(r)
	if err != nil {
		return nil, nil, err
	}
	params.apply(col)
	return col, params, nil
}

// Search handles GET /indexes/{index}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	col, params, err := s.composed(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	docs, err := col.All(r.Context(), params.pages()...)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(docs))
}

// Count handles GET /indexes/{index}/count.
func (s *Server) Count(w http.ResponseWriter, r *http.Request) {
	col, _, err := s.composed(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	n, err := col.Count(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// GetDocument handles GET /indexes/{index}/docs/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	col, err := s.collection(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	doc, err := col.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// LikeDocument handles GET /indexes/{index}/docs/{id}/like.
func (s *Server) LikeDocument(w http.ResponseWriter, r *http.Request) {
	col, err := s.collection(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	docs, err := col.LikeThis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(docs))
}

// DeleteDocument handles DELETE /indexes/{index}/docs/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	col, err := s.collection(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if _, err := col.DeleteIn(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CommitDocuments handles POST /indexes/{index}/docs with a JSON array of
// documents. Documents without an "id" get a generated one.
func (s *Server) CommitDocuments(w http.ResponseWriter, r *http.Request) {
	var items []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(items) == 0 || len(items) > maxCommitDocuments {
		writeError(w, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("body must hold between 1 and %d documents", maxCommitDocuments))
		return
	}

	col, err := s.collection(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	for _, item := range items {
		col.Add(item)
	}
	results, err := col.Commit(r.Context(), nil)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{Indexed: len(items), Chunks: len(results)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != health.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{
		Status:  report.Status,
		Checks:  report.Checks,
		Version: version.Get(),
	})
}

func toDocumentResponse(d *esquery.Document) documentResponse {
	src := d.Source
	if src == nil {
		src = map[string]any{}
	}
	return documentResponse{ID: d.ID, Source: src}
}

func toSearchResponse(docs []*esquery.Document) searchResponse {
	items := make([]documentResponse, len(docs))
	for i, d := range docs {
		items[i] = toDocumentResponse(d)
	}
	return searchResponse{Items: items, Count: len(items)}
}
