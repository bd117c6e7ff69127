package query

import "fmt"

// Term matches field exactly against value.
func Term(field string, value any) Clause {
	return Clause{"term": map[string]any{field: value}}
}

// Terms matches field against any of values.
func Terms(field string, values []any) Clause {
	return Clause{"terms": map[string]any{field: values}}
}

// IDs matches documents by backend id.
func IDs(ids ...string) Clause {
	return Clause{"ids": map[string]any{"values": ids}}
}

// MatchAll matches every document.
func MatchAll() Clause {
	return Clause{"match_all": map[string]any{}}
}

// QueryString wraps a Lucene query string.
func QueryString(q string) Clause {
	return Clause{"query_string": map[string]any{"query": q}}
}

// GeoDistance matches documents within distance of (lat, lon).
// The point is written lon-first, as GeoJSON arrays require.
func GeoDistance(field, distance string, lat, lon float64) Clause {
	return Clause{"geo_distance": map[string]any{
		"distance": distance,
		field:      []float64{lon, lat},
	}}
}

// MoreLikeThis matches documents similar to the document id in index.
func MoreLikeThis(index, id string) Clause {
	return Clause{"more_like_this": map[string]any{
		"like": []any{map[string]any{"_index": index, "_id": id}},
	}}
}

// RangeBounds holds range boundaries. Values may be numbers, strings or dates.
type RangeBounds struct {
	GT     any
	GTE    any
	LT     any
	LTE    any
	Format string
	Boost  float64
}

// NewRange validates bounds and builds a range clause.
// At least one boundary is required. gt/gte and lt/lte are mutually exclusive.
func NewRange(field string, b RangeBounds) (Clause, error) {
	if field == "" {
		return nil, fmt.Errorf("%w: range field is required", ErrInvalidClause)
	}
	if b.GT == nil && b.GTE == nil && b.LT == nil && b.LTE == nil {
		return nil, fmt.Errorf("%w: at least one range boundary is required", ErrInvalidClause)
	}
	if b.GT != nil && b.GTE != nil {
		return nil, fmt.Errorf("%w: cannot specify both gt and gte", ErrInvalidClause)
	}
	if b.LT != nil && b.LTE != nil {
		return nil, fmt.Errorf("%w: cannot specify both lt and lte", ErrInvalidClause)
	}

	body := make(map[string]any, 4)
	for name, v := range map[string]any{"gt": b.GT, "gte": b.GTE, "lt": b.LT, "lte": b.LTE} {
		if v != nil {
			body[name] = v
		}
	}
	if b.Format != "" {
		body["format"] = b.Format
	}
	if b.Boost != 0 {
		body["boost"] = b.Boost
	}
	return Clause{"range": map[string]any{field: body}}, nil
}
