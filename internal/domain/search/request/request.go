package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/esquery/internal/domain/search/querystring"
)

// Pagination limits.
const (
	DefaultSize = 500
	// MaxResultWindow mirrors the backend's index.max_result_window default.
	MaxResultWindow = 10000
)

// ErrInvalidSort is returned when a raw body carries a sort that is not a list.
var ErrInvalidSort = errors.New("sort must be a list")

// Source tells which tier produced the request body.
type Source int

// Body sources in precedence order.
const (
	SourceRaw Source = iota
	SourceComposed
	SourceString
	SourceMatchAll
)

func (s Source) String() string {
	switch s {
	case SourceRaw:
		return "raw"
	case SourceComposed:
		return "composed"
	case SourceString:
		return "string"
	default:
		return "match_all"
	}
}

// Request is an assembled search request.
type Request struct {
	index   string
	docType string
	source  Source
	body    map[string]any
	q       string
	sort    []string
	size    int
	from    int
}

// New picks the request body. Precedence: raw override, composed document,
// string search params joined with AND, then match_all.
func New(index, docType string, raw, composed map[string]any, params []string) (Request, error) {
	if index == "" {
		return Request{}, fmt.Errorf("index is required")
	}

	r := Request{index: index, docType: docType}
	switch {
	case len(raw) > 0:
		r.source, r.body = SourceRaw, cloneTop(raw)
	case len(composed) > 0:
		r.source, r.body = SourceComposed, composed
	case querystring.And(params...) != "":
		r.source, r.q = SourceString, querystring.And(params...)
	default:
		r.source = SourceMatchAll
		r.body = map[string]any{"query": map[string]any{"match_all": map[string]any{}}}
	}
	return r, nil
}

// ApplySort adds "field:direction" keys. When the body already carries a sort
// the keys are appended to it, otherwise they become the sort parameter.
func (r *Request) ApplySort(keys []string) error {
	existing, ok := r.body["sort"]
	if !ok {
		r.sort = append(r.sort, keys...)
		return nil
	}

	var list []any
	switch v := existing.(type) {
	case []any:
		list = append(list, v...)
	case []string:
		for _, s := range v {
			list = append(list, s)
		}
	case []map[string]any:
		for _, m := range v {
			list = append(list, m)
		}
	default:
		return fmt.Errorf("%w: got %T", ErrInvalidSort, existing)
	}
	for _, k := range keys {
		field, dir := SplitSortKey(k)
		list = append(list, map[string]any{field: map[string]any{"order": dir}})
	}
	r.body["sort"] = list
	return nil
}

// Paginate sets size and offset. A zero size selects DefaultSize.
// The window is clamped to MaxResultWindow.
func (r *Request) Paginate(size, from int) error {
	if size < 0 {
		return fmt.Errorf("size must be non-negative")
	}
	if from < 0 {
		return fmt.Errorf("from must be non-negative")
	}
	if size == 0 {
		size = DefaultSize
	}
	if from >= MaxResultWindow {
		return fmt.Errorf("from must be below %d", MaxResultWindow)
	}
	if size+from > MaxResultWindow {
		size = MaxResultWindow - from
	}
	r.size, r.from = size, from
	return nil
}

// SortKey formats a sort key. Direction must be asc or desc (any case), otherwise asc.
func SortKey(field, direction string) string {
	dir := strings.ToLower(direction)
	if dir != "asc" && dir != "desc" {
		dir = "asc"
	}
	return field + ":" + dir
}

// SplitSortKey splits "field:direction". A missing direction is asc.
func SplitSortKey(key string) (field, direction string) {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return key, "asc"
	}
	return key[:i], key[i+1:]
}

// Index returns the target index.
func (r *Request) Index() string { return r.index }

// Type returns the document type.
func (r *Request) Type() string { return r.docType }

// Source returns the tier that produced the body.
func (r *Request) Source() Source { return r.source }

// Body returns the DSL body, nil for string queries.
func (r *Request) Body() map[string]any { return r.body }

// Q returns the Lucene query string, empty for DSL bodies.
func (r *Request) Q() string { return r.q }

// Sort returns the sort parameter keys.
func (r *Request) Sort() []string { return r.sort }

// Size returns the page size, 0 when not paginated.
func (r *Request) Size() int { return r.size }

// From returns the page offset.
func (r *Request) From() int { return r.from }

// cloneTop copies the top level so sort merging never mutates the caller's map.
func cloneTop(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
