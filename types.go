package esquery

import (
	"fmt"

	"github.com/kailas-cloud/esquery/internal/db"
	"github.com/kailas-cloud/esquery/internal/domain/query"
)

// Condition selects how a clause combines with what is already composed.
type Condition = query.Condition

// Boolean conditions. Explicit conditions open top-level and/or/not groups.
const (
	Default     = query.Default
	And         = query.And
	Or          = query.Or
	Not         = query.Not
	ExplicitAnd = query.ExplicitAnd
	ExplicitOr  = query.ExplicitOr
	ExplicitNot = query.ExplicitNot
)

// ParseCondition maps and/or/not/must/should/must_not and explicit_* names to a Condition.
func ParseCondition(s string) (Condition, error) {
	c, err := query.ParseCondition(s)
	if err != nil {
		return Default, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return c, nil
}

// Group names a top-level explicit group.
type Group = query.Group

// Top-level groups.
const (
	GroupAnd = query.GroupAnd
	GroupOr  = query.GroupOr
	GroupNot = query.GroupNot
)

// Dialect selects the rendered DSL shape.
type Dialect = query.Dialect

// Dialects.
const (
	// DialectModern renders bool queries understood by Elasticsearch 5 and later.
	DialectModern = query.Modern
	// DialectLegacy renders filtered queries and and/or/not filters.
	DialectLegacy = query.Legacy
)

// RangeBounds holds range boundaries for Range.
type RangeBounds = query.RangeBounds

// BulkResult is the backend outcome of one bulk chunk.
type BulkResult = db.BulkResult

// MatchOption tunes a single Exact or Range call.
type MatchOption = query.MergeOption

// Cond sets the boolean condition of a match.
func Cond(c Condition) MatchOption { return query.WithCondition(c) }

// MinimumShouldMatch sets minimum_should_match on the receiving bool group.
func MinimumShouldMatch(n int) MatchOption { return query.WithMinimumShouldMatch(n) }

// Boost sets boost on the receiving bool group.
func Boost(b float64) MatchOption { return query.WithBoost(b) }

// PreferGroup directs a plain condition into the named top-level group when it has content.
func PreferGroup(g Group) MatchOption { return query.PreferGroup(g) }
