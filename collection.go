package esquery

import (
	"fmt"
	"reflect"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esquery/internal/domain/query"
	"github.com/kailas-cloud/esquery/internal/domain/search/querystring"
	"github.com/kailas-cloud/esquery/internal/domain/search/request"
)

// Row keys added to every hydrated search row.
const (
	idField         = "id"
	setByQueryField = "_set_by_query"
)

const defaultDocType = "_doc"

// CollectionOption configures a Collection.
type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	index   string
	docType string
}

// WithIndex overrides the index the collection searches.
func WithIndex(index string) CollectionOption {
	return func(c *collectionConfig) {
		c.index = index
	}
}

// WithType overrides the mapping type of the collection.
func WithType(docType string) CollectionOption {
	return func(c *collectionConfig) {
		c.docType = docType
	}
}

// Collection is a fluent search over one index, hydrating rows into T.
// Builder methods return the collection for chaining; the first error they
// hit is kept and returned by the next execution call.
// A Collection is not safe for concurrent use.
type Collection[T Model] struct {
	client  *Client
	decode  Decoder[T]
	schema  *schemaMeta // nil unless T is an es-tagged struct
	index   string
	docType string

	composer *query.Composer
	params   []string
	raw      map[string]any
	sort     []string
	size     int
	from     int
	pending  []any
	err      error
}

// NewCollection creates a collection for T.
// The index comes from WithIndex, then T's DocIndex, then the client default.
// The type comes from WithType, then T's DocType, then "_doc".
func NewCollection[T Model](client *Client, decode Decoder[T], opts ...CollectionOption) (*Collection[T], error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidArgument)
	}
	if decode == nil {
		return nil, fmt.Errorf("%w: decoder is required", ErrInvalidArgument)
	}

	var cfg collectionConfig
	for _, o := range opts {
		o(&cfg)
	}

	zero, schema, err := inspectModel[T]()
	if err != nil {
		return nil, err
	}

	index := cfg.index
	if index == "" {
		if ix, ok := any(zero).(Indexed); ok {
			index = ix.DocIndex()
		}
	}
	if index == "" {
		index = client.defaultIndex
	}
	if index == "" {
		return nil, fmt.Errorf("%w: no index for %T (use WithIndex or WithDefaultIndex)", ErrInvalidArgument, zero)
	}

	docType := cfg.docType
	if docType == "" && any(zero) != nil {
		docType = zero.DocType()
	}
	if docType == "" {
		docType = defaultDocType
	}

	return &Collection[T]{
		client:   client,
		decode:   decode,
		schema:   schema,
		index:    index,
		docType:  docType,
		composer: query.NewComposer(),
	}, nil
}

// inspectModel returns a usable zero T (a pointer to a zero struct when T is
// a pointer type) and T's tag schema when it has one.
func inspectModel[T Model]() (T, *schemaMeta, error) {
	var zero T
	t := reflect.TypeFor[T]()
	base := t
	if t.Kind() == reflect.Pointer {
		base = t.Elem()
		if v, ok := reflect.New(base).Interface().(T); ok {
			zero = v
		}
	}
	if base.Kind() != reflect.Struct {
		return zero, nil, nil
	}

	meta, err := schemaFor(base)
	if err != nil {
		return zero, nil, err
	}
	if !meta.tagged {
		meta = nil
	}
	return zero, meta, nil
}

// Index returns the index the collection searches.
func (c *Collection[T]) Index() string { return c.index }

// Type returns the mapping type of the collection.
func (c *Collection[T]) Type() string { return c.docType }

// Err returns the first error recorded by a builder method.
func (c *Collection[T]) Err() error { return c.err }

func (c *Collection[T]) fail(err error) *Collection[T] {
	if c.err == nil {
		c.err = err
	}
	return c
}

// Search adds a Lucene query string to the string tier. Terms are joined with AND.
func (c *Collection[T]) Search(q string) *Collection[T] {
	if q != "" {
		c.params = append(c.params, q)
	}
	return c
}

// FilterBy adds field:"value" terms to the string tier joined by cond (And by
// default, or Or). An or-group is parenthesized. Slice values match any
// element. The id and ids keys are routed to MatchIDs instead.
func (c *Collection[T]) FilterBy(fields map[string]any, cond ...Condition) *Collection[T] {
	join, orGroup := querystring.And, false
	if len(cond) > 0 {
		switch cond[0] {
		case Default, And:
		case Or:
			join, orGroup = querystring.Or, true
		default:
			return c.fail(fmt.Errorf("%w: filter by condition must be and or or, got %s", ErrInvalidArgument, cond[0]))
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var terms []string
	for _, k := range keys {
		v := fields[k]
		if k == "id" || k == "ids" {
			ids, err := toIDs(v)
			if err != nil {
				return c.fail(err)
			}
			c.MatchIDs(ids...)
			continue
		}
		terms = append(terms, querystring.Field(k, v))
	}
	q := join(terms...)
	if orGroup && len(terms) > 1 {
		// String tier terms are and-joined; keep the or-group intact.
		q = "(" + q + ")"
	}
	return c.Search(q)
}

func toIDs(v any) ([]string, error) {
	switch ids := v.(type) {
	case string:
		return []string{ids}, nil
	case []string:
		return ids, nil
	case []any:
		out := make([]string, len(ids))
		for i, id := range ids {
			s, ok := id.(string)
			if !ok {
				return nil, fmt.Errorf("%w: id must be a string, got %T", ErrInvalidArgument, id)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: ids must be a string or a list of strings, got %T", ErrInvalidArgument, v)
	}
}

// Exact adds a term filter, or a terms filter when value is a slice.
func (c *Collection[T]) Exact(field string, value any, opts ...MatchOption) *Collection[T] {
	c.checkExactField(field)

	clause := query.Term(field, value)
	if values, ok := asList(value); ok {
		clause = query.Terms(field, values)
	}
	if err := c.composer.Merge(query.TargetFilter, clause, opts...); err != nil {
		return c.fail(fmt.Errorf("exact %s: %w", field, err))
	}
	return c
}

// checkExactField warns about fields a term query may not match.
func (c *Collection[T]) checkExactField(field string) {
	if c.schema == nil {
		return
	}
	f, ok := c.schema.field(field)
	switch {
	case !ok:
		c.client.logger.Warn("field is not in the model schema",
			zap.String("field", field), zap.Stringer("model", c.schema.typ))
	case f.analyzed:
		c.client.logger.Warn("analyzed fields may not exact match correctly",
			zap.String("field", field), zap.Stringer("model", c.schema.typ))
	}
}

// asList converts any slice except []byte to []any.
func asList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// MatchIDs filters by backend ids. On an empty filter the ids clause becomes
// the filter itself; otherwise it is and-ed with what is there.
func (c *Collection[T]) MatchIDs(ids ...string) *Collection[T] {
	if len(ids) == 0 {
		return c.fail(fmt.Errorf("%w: match ids needs at least one id", ErrInvalidArgument))
	}
	var opts []MatchOption
	if c.composer.Document().Filter() != nil {
		opts = append(opts, Cond(And))
	}
	if err := c.composer.Merge(query.TargetFilter, query.IDs(ids...), opts...); err != nil {
		return c.fail(fmt.Errorf("match ids: %w", err))
	}
	return c
}

// Range adds a range clause. It joins the filter side once the search is
// filtered, the query side before that.
func (c *Collection[T]) Range(field string, bounds RangeBounds, opts ...MatchOption) *Collection[T] {
	clause, err := query.NewRange(field, bounds)
	if err != nil {
		return c.fail(err)
	}
	target := query.TargetQuery
	if c.composer.Document().IsFiltered() {
		target = query.TargetFilter
	}
	if err := c.composer.Merge(target, clause, opts...); err != nil {
		return c.fail(fmt.Errorf("range %s: %w", field, err))
	}
	return c
}

// Geo replaces the whole request body with a match_all query filtered by
// distance from (lat, lon), rendered in the client dialect. Other composed
// clauses are ignored while it is set.
func (c *Collection[T]) Geo(field, distance string, lat, lon float64) *Collection[T] {
	doc := query.NewFilteredDocument(query.MatchAll(), query.GeoDistance(field, distance, lat, lon))
	return c.Raw(doc.Render(c.client.dialect))
}

// Sort appends a sort key. direction is asc or desc in any case; anything else means asc.
func (c *Collection[T]) Sort(field, direction string) *Collection[T] {
	c.sort = append(c.sort, request.SortKey(field, direction))
	return c
}

// Raw overrides the request body. It takes precedence over everything composed.
func (c *Collection[T]) Raw(body map[string]any) *Collection[T] {
	c.raw = body
	return c
}

// Paginate sets the default offset and page size for All.
// A zero perPage keeps the client default.
func (c *Collection[T]) Paginate(start, perPage int) *Collection[T] {
	c.from, c.size = start, perPage
	return c
}

// Add queues items for Commit. Each item is a Model or a map[string]any.
func (c *Collection[T]) Add(items ...any) *Collection[T] {
	c.pending = append(c.pending, items...)
	return c
}

// Pending returns the number of items queued for Commit.
func (c *Collection[T]) Pending() int { return len(c.pending) }

// Clear drops the raw override, string terms, composed document and recorded
// error. Sort keys and pagination are kept.
func (c *Collection[T]) Clear() *Collection[T] {
	c.raw = nil
	c.params = nil
	c.composer.Reset()
	c.err = nil
	return c
}

// Body returns the request body the next search would send, or nil for a
// string-tier search.
func (c *Collection[T]) Body() (map[string]any, error) {
	r, err := c.request()
	if err != nil {
		return nil, err
	}
	return r.Body(), nil
}

// request assembles the request from the current builder state.
func (c *Collection[T]) request() (request.Request, error) {
	if c.err != nil {
		return request.Request{}, c.err
	}
	composed := c.composer.Document().Render(c.client.dialect)
	if len(c.raw) == 0 && composed != nil && len(c.params) > 0 {
		c.client.logger.Warn("composed query takes precedence over string search terms",
			zap.String("index", c.index), zap.Strings("terms", c.params))
	}
	r, err := request.New(c.index, c.docType, c.raw, composed, c.params)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return r, nil
}
