package esquery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewCollection_IndexResolution(t *testing.T) {
	c := newTestClient(t, &fakeTransport{}, WithDefaultIndex("docs"))

	users := newUsers(t, c)
	if users.Index() != "users" || users.Type() != "user" {
		t.Errorf("users = %s/%s, want users/user", users.Index(), users.Type())
	}

	docs, err := NewCollection(c, DecodeDocument)
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	if docs.Index() != "docs" || docs.Type() != "_doc" {
		t.Errorf("docs = %s/%s, want docs/_doc", docs.Index(), docs.Type())
	}

	other, err := NewCollection(c, DecodeDocument, WithIndex("archive"), WithType("page"))
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	if other.Index() != "archive" || other.Type() != "page" {
		t.Errorf("other = %s/%s, want archive/page", other.Index(), other.Type())
	}
}

func TestNewCollection_NoIndex(t *testing.T) {
	c := newTestClient(t, &fakeTransport{})
	_, err := NewCollection(c, DecodeDocument)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestNewCollection_NilDecoder(t *testing.T) {
	c := newTestClient(t, &fakeTransport{}, WithDefaultIndex("docs"))
	_, err := NewCollection[*Document](c, nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestExact_ScalarAndList(t *testing.T) {
	users := newUsers(t, newTestClient(t, &fakeTransport{}))
	users.Exact("status", "active").Exact("tags", []string{"a", "b"})

	body, err := users.Body()
	require.NoError(t, err)
	require.Equal(t,
		map[string]any{"query": map[string]any{"bool": map[string]any{
			"filter": map[string]any{"bool": map[string]any{
				"must": []any{
					map[string]any{"term": map[string]any{"status": "active"}},
					map[string]any{"terms": map[string]any{"tags": []any{"a", "b"}}},
				},
			}},
		}}},
		body,
	)
}

func TestExact_WarnsOnUnknownAndAnalyzedFields(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	users := newUsers(t, newTestClient(t, &fakeTransport{}, WithLogger(zap.New(core))))

	users.Exact("status", "active")
	if logs.Len() != 0 {
		t.Fatalf("unexpected warnings: %v", logs.All())
	}

	users.Exact("name", "Ann")
	users.Exact("missing", 1)
	if got := logs.FilterMessage("analyzed fields may not exact match correctly").Len(); got != 1 {
		t.Errorf("analyzed warnings = %d, want 1", got)
	}
	if got := logs.FilterMessage("field is not in the model schema").Len(); got != 1 {
		t.Errorf("unknown field warnings = %d, want 1", got)
	}
}

func TestExact_ConditionsAndMinimumShouldMatch(t *testing.T) {
	users := newUsers(t, newTestClient(t, &fakeTransport{}, WithDialect(DialectLegacy)))
	users.
		Exact("status", "active", Cond(Or)).
		Exact("status", "pending").
		Exact("tags", "vip", MinimumShouldMatch(2))

	body, err := users.Body()
	require.NoError(t, err)
	filter := body["query"].(map[string]any)["filtered"].(map[string]any)["filter"]
	require.Equal(t,
		map[string]any{"bool": map[string]any{
			"should": []any{
				map[string]any{"term": map[string]any{"status": "active"}},
				map[string]any{"term": map[string]any{"status": "pending"}},
				map[string]any{"term": map[string]any{"tags": "vip"}},
			},
			"minimum_should_match": 2,
		}},
		filter,
	)
}

func TestRange_FollowsFilteredShape(t *testing.T) {
	users := newUsers(t, newTestClient(t, &fakeTransport{}))

	users.Range("age", RangeBounds{GTE: 18})
	body, err := users.Body()
	require.NoError(t, err)
	require.Equal(t,
		map[string]any{"query": map[string]any{"range": map[string]any{"age": map[string]any{"gte": 18}}}},
		body,
	)

	users.Clear().Exact("status", "active").Range("age", RangeBounds{LT: 65})
	body, err = users.Body()
	require.NoError(t, err)
	require.Equal(t,
		map[string]any{"query": map[string]any{"bool": map[string]any{
			"filter": map[string]any{"bool": map[string]any{
				"must": []any{
					map[string]any{"term": map[string]any{"status": "active"}},
					map[string]any{"range": map[string]any{"age": map[string]any{"lt": 65}}},
				},
			}},
		}}},
		body,
	)
}

func TestBuilderError_IsKeptUntilClear(t *testing.T) {
	tr := &fakeTransport{}
	users := newUsers(t, newTestClient(t, tr))

	users.Range("age", RangeBounds{}).Exact("status", "active")
	if !errors.Is(users.Err(), ErrInvalidClause) {
		t.Fatalf("Err() = %v, want ErrInvalidClause", users.Err())
	}
	if _, err := users.Count(t.Context()); !errors.Is(err, ErrInvalidClause) {
		t.Fatalf("Count err = %v, want ErrInvalidClause", err)
	}
	if len(tr.countReqs) != 0 {
		t.Errorf("transport called %d times, want 0", len(tr.countReqs))
	}

	users.Clear()
	if users.Err() != nil {
		t.Errorf("Err() after Clear = %v", users.Err())
	}
}

func TestGeo_ReplacesComposedBody(t *testing.T) {
	geo := map[string]any{"geo_distance": map[string]any{
		"distance": "5km",
		"location": []float64{13.4, 52.5},
	}}
	tests := []struct {
		name    string
		dialect Dialect
		want    map[string]any
	}{
		{
			name:    "modern",
			dialect: DialectModern,
			want: map[string]any{"query": map[string]any{"bool": map[string]any{
				"must":   map[string]any{"match_all": map[string]any{}},
				"filter": geo,
			}}},
		},
		{
			name:    "legacy",
			dialect: DialectLegacy,
			want: map[string]any{"query": map[string]any{"filtered": map[string]any{
				"query":  map[string]any{"match_all": map[string]any{}},
				"filter": geo,
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newUsers(t, newTestClient(t, &fakeTransport{}, WithDialect(tt.dialect)))
			users.Exact("status", "active").Geo("location", "5km", 52.5, 13.4)

			body, err := users.Body()
			require.NoError(t, err)
			require.Equal(t, tt.want, body)
		})
	}
}

func TestFilterBy_StringTier(t *testing.T) {
	tests := []struct {
		name   string
		search string
		fields map[string]any
		cond   []Condition
		want   string
	}{
		{
			name:   "and by default",
			fields: map[string]any{"status": "active", "role": "admin"},
			want:   `role:"admin" AND status:"active"`,
		},
		{
			name:   "or with list",
			fields: map[string]any{"status": "active", "role": []string{"admin", "owner"}},
			cond:   []Condition{Or},
			want:   `(role:("admin" OR "owner") OR status:"active")`,
		},
		{
			name:   "or group stays grouped after search",
			search: "name:ann*",
			fields: map[string]any{"status": "active", "role": "admin"},
			cond:   []Condition{Or},
			want:   `name:ann* AND (role:"admin" OR status:"active")`,
		},
		{
			name:   "single or term is not wrapped",
			fields: map[string]any{"status": "active"},
			cond:   []Condition{Or},
			want:   `status:"active"`,
		},
		{
			name:   "joined with search",
			search: "name:ann*",
			fields: map[string]any{"status": "active"},
			want:   `name:ann* AND status:"active"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			users := newUsers(t, newTestClient(t, tr))

			_, err := users.Search(tt.search).FilterBy(tt.fields, tt.cond...).All(t.Context())
			require.NoError(t, err)
			require.Len(t, tr.searchReqs, 1)
			if tr.searchReqs[0].Q != tt.want {
				t.Errorf("q = %q, want %q", tr.searchReqs[0].Q, tt.want)
			}
			if tr.searchReqs[0].Body != nil {
				t.Errorf("body = %v, want nil", tr.searchReqs[0].Body)
			}
		})
	}
}

func TestFilterBy_IDsGoToFilter(t *testing.T) {
	users := newUsers(t, newTestClient(t, &fakeTransport{}))
	users.FilterBy(map[string]any{"ids": []any{"a", "b"}})

	body, err := users.Body()
	require.NoError(t, err)
	require.Equal(t,
		map[string]any{"query": map[string]any{"bool": map[string]any{
			"filter": map[string]any{"ids": map[string]any{"values": []string{"a", "b"}}},
		}}},
		body,
	)
}

func TestFilterBy_RejectsExplicitCondition(t *testing.T) {
	users := newUsers(t, newTestClient(t, &fakeTransport{}))
	users.FilterBy(map[string]any{"a": 1}, ExplicitAnd)
	if !errors.Is(users.Err(), ErrInvalidArgument) {
		t.Fatalf("Err() = %v, want ErrInvalidArgument", users.Err())
	}
}

func TestMatchIDs_AndsWithExistingFilter(t *testing.T) {
	users := newUsers(t, newTestClient(t, &fakeTransport{}))
	users.Exact("status", "active", Cond(Or)).MatchIDs("a")

	body, err := users.Body()
	require.NoError(t, err)
	require.Equal(t,
		map[string]any{"query": map[string]any{"bool": map[string]any{
			"filter": map[string]any{"bool": map[string]any{
				"must":   map[string]any{"ids": map[string]any{"values": []string{"a"}}},
				"should": map[string]any{"term": map[string]any{"status": "active"}},
			}},
		}}},
		body,
	)
}

func TestClear_KeepsSortAndPagination(t *testing.T) {
	tr := &fakeTransport{}
	users := newUsers(t, newTestClient(t, tr))

	users.Exact("status", "active").Sort("age", "desc").Paginate(10, 5).Clear()
	_, err := users.All(t.Context())
	require.NoError(t, err)

	req := tr.searchReqs[0]
	require.Equal(t, map[string]any{"query": map[string]any{"match_all": map[string]any{}}}, req.Body)
	require.Equal(t, []string{"age:desc"}, req.Sort)
	if req.From != 10 || req.Size != 5 {
		t.Errorf("from/size = %d/%d, want 10/5", req.From, req.Size)
	}
}

func TestParseCondition_WrapsInvalidArgument(t *testing.T) {
	if c, err := ParseCondition("explicit_or"); err != nil || c != ExplicitOr {
		t.Fatalf("ParseCondition = %v, %v", c, err)
	}
	if _, err := ParseCondition("xor"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}
