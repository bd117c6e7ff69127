package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esquery"
	"github.com/kailas-cloud/esquery/internal/db"
	logpkg "github.com/kailas-cloud/esquery/internal/logger"
)

// Error codes returned in errorResponse.Code.
const (
	CodeBadRequest     = "bad_request"
	CodeUnauthorized   = "unauthorized"
	CodeNotFound       = "not_found"
	CodeIndexNotFound  = "index_not_found"
	CodeBackendError   = "search_backend_error"
	CodeInternalError  = "internal_error"
	CodeMalformedQuery = "malformed_query"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Client errors carry the full message since they describe the caller's input.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

// backendErrorHandler maps search backend responses. A missing index is a 404,
// anything else is reported as a bad gateway without the backend body.
// Rejected bulk items are reported with the first item error.
func backendErrorHandler(w http.ResponseWriter, err error) bool {
	var be *db.BulkError
	if errors.As(err, &be) {
		writeError(w, http.StatusBadGateway, CodeBackendError, be.Error())
		return true
	}
	var re *db.ResponseError
	if !errors.As(err, &re) {
		return false
	}
	if re.Status == http.StatusNotFound {
		writeError(w, http.StatusNotFound, CodeIndexNotFound, "index not found")
		return true
	}
	writeError(w, http.StatusBadGateway, CodeBackendError, "search backend error")
	return true
}

var errorHandlers = []errorHandler{
	sentinelHandler(esquery.ErrNotFound, http.StatusNotFound, CodeNotFound),
	sentinelHandler(esquery.ErrNoResultsFound, http.StatusNotFound, CodeNotFound),
	sentinelHandler(esquery.ErrMalformedBody, http.StatusBadRequest, CodeMalformedQuery),
	sentinelHandler(esquery.ErrInvalidClause, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(esquery.ErrInvalidSort, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(esquery.ErrInvalidArgument, http.StatusBadRequest, CodeBadRequest),
	backendErrorHandler,
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context()).With(zap.String("index", chi.URLParam(r, "index")))
	log.Warn("request failed", zap.Error(err))
	for _, h := range errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
