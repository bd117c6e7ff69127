package esquery

import (
	"errors"

	"github.com/kailas-cloud/esquery/internal/domain/query"
	"github.com/kailas-cloud/esquery/internal/domain/search/request"
)

// Sentinel errors. Use errors.Is() to check.
var (
	// ErrMalformedBody signals a composed tree with top-level groups none of which can take a clause.
	ErrMalformedBody = query.ErrMalformedBody
	// ErrInvalidClause is returned for empty clauses and invalid range bounds.
	ErrInvalidClause   = query.ErrInvalidClause
	ErrInvalidSort     = request.ErrInvalidSort
	ErrNoResultsFound  = errors.New("esquery: no results found")
	ErrNotFound        = errors.New("esquery: document not found")
	ErrInvalidArgument = errors.New("esquery: invalid argument")
)
