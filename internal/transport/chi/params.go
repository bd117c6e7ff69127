package chi

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/esquery"
)

// Query parameter names and prefixes accepted by /search and /count.
const (
	termPrefix  = "term."
	rangePrefix = "range."
)

// searchParams is a parsed search query string.
//
//	term.<field>=v              exact match, repeated values become terms
//	range.<field>.<gt|gte|lt|lte>=v
//	ids=a,b                     ids filter
//	cond=and|or|not|explicit_*  condition for term and range clauses
//	msm=<n>, prefer=and|or|not  bool tuning
//	q=<lucene>                  string tier
//	sort=field:dir              repeatable
//	start=<n>, per_page=<n>     pagination
type searchParams struct {
	opts    []esquery.MatchOption
	terms   map[string][]string
	ranges  map[string]esquery.RangeBounds
	ids     []string
	q       []string
	sort    []string
	start   int
	perPage int
}

func parseSearchParams(v url.Values) (*searchParams, error) {
	p := &searchParams{
		terms:  make(map[string][]string),
		ranges: make(map[string]esquery.RangeBounds),
	}
	if err := p.parseTuning(v); err != nil {
		return nil, err
	}

	for key, values := range v {
		switch {
		case strings.HasPrefix(key, termPrefix):
			field := strings.TrimPrefix(key, termPrefix)
			if field == "" {
				return nil, fmt.Errorf("%w: term parameter needs a field", esquery.ErrInvalidArgument)
			}
			p.terms[field] = append(p.terms[field], values...)
		case strings.HasPrefix(key, rangePrefix):
			if err := p.addRange(strings.TrimPrefix(key, rangePrefix), values[len(values)-1]); err != nil {
				return nil, err
			}
		case key == "ids":
			for _, raw := range values {
				for id := range strings.SplitSeq(raw, ",") {
					if id = strings.TrimSpace(id); id != "" {
						p.ids = append(p.ids, id)
					}
				}
			}
		case key == "q":
			p.q = append(p.q, values...)
		case key == "sort":
			p.sort = append(p.sort, values...)
		}
	}

	var err error
	if p.start, err = intParam(v, "start"); err != nil {
		return nil, err
	}
	if p.perPage, err = intParam(v, "per_page"); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *searchParams) parseTuning(v url.Values) error {
	cond, err := esquery.ParseCondition(v.Get("cond"))
	if err != nil {
		return err
	}
	if cond != esquery.Default {
		p.opts = append(p.opts, esquery.Cond(cond))
	}

	if v.Has("msm") {
		msm, err := intParam(v, "msm")
		if err != nil {
			return err
		}
		p.opts = append(p.opts, esquery.MinimumShouldMatch(msm))
	}

	switch g := v.Get("prefer"); g {
	case "":
	case "and":
		p.opts = append(p.opts, esquery.PreferGroup(esquery.GroupAnd))
	case "or":
		p.opts = append(p.opts, esquery.PreferGroup(esquery.GroupOr))
	case "not":
		p.opts = append(p.opts, esquery.PreferGroup(esquery.GroupNot))
	default:
		return fmt.Errorf("%w: prefer must be and, or or not, got %q", esquery.ErrInvalidArgument, g)
	}
	return nil
}

// addRange parses "<field>.<op>". Fields may contain dots; the op is the last segment.
func (p *searchParams) addRange(key, raw string) error {
	i := strings.LastIndexByte(key, '.')
	if i <= 0 {
		return fmt.Errorf("%w: range parameter must be range.<field>.<op>", esquery.ErrInvalidArgument)
	}
	field, op := key[:i], key[i+1:]

	b := p.ranges[field]
	val := rangeValue(raw)
	switch op {
	case "gt":
		b.GT = val
	case "gte":
		b.GTE = val
	case "lt":
		b.LT = val
	case "lte":
		b.LTE = val
	default:
		return fmt.Errorf("%w: unknown range operator %q", esquery.ErrInvalidArgument, op)
	}
	p.ranges[field] = b
	return nil
}

// rangeValue keeps numbers numeric so the backend compares them as such.
func rangeValue(raw string) any {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func intParam(v url.Values, name string) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", esquery.ErrInvalidArgument, name)
	}
	return n, nil
}

// apply replays the parameters on col in a stable order:
// terms, ids, ranges, string query, sort.
func (p *searchParams) apply(col *esquery.Collection[*esquery.Document]) {
	for _, field := range sortedKeys(p.terms) {
		values := p.terms[field]
		if len(values) == 1 {
			col.Exact(field, values[0], p.opts...)
		} else {
			col.Exact(field, values, p.opts...)
		}
	}
	if len(p.ids) > 0 {
		col.MatchIDs(p.ids...)
	}
	for _, field := range sortedKeys(p.ranges) {
		col.Range(field, p.ranges[field], p.opts...)
	}
	for _, q := range p.q {
		col.Search(q)
	}
	for _, key := range p.sort {
		field, dir, _ := strings.Cut(key, ":")
		col.Sort(field, dir)
	}
}

func (p *searchParams) pages() []esquery.PageOption {
	var out []esquery.PageOption
	if p.start != 0 {
		out = append(out, esquery.Start(p.start))
	}
	if p.perPage != 0 {
		out = append(out, esquery.ResultsPerPage(p.perPage))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
