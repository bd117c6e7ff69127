package esquery

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/esquery/internal/db"
	"github.com/kailas-cloud/esquery/internal/db/elastic"
)

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error without addresses")
	}
}

func TestNew_RejectsBadSizes(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"results per page", WithResultsPerPage(-1)},
		{"bulk chunk size", WithBulkChunkSize(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt, withTransport(&fakeTransport{}))
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestClient_EndToEndOverElasticsearch(t *testing.T) {
	var gotPath, gotBody string
	rt := elastic.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
		}
		return elastic.Respond(http.StatusOK, `{"count": 4}`), nil
	})

	c, err := New(
		WithAddresses("http://es.test:9200"),
		WithHTTPTransport(rt),
		WithReadinessTimeout(0),
	)
	require.NoError(t, err)
	defer c.Close()

	users := newUsers(t, c)
	n, err := users.MatchIDs("a", "b").Count(t.Context())
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
	require.Equal(t, "/users/_count", gotPath)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(gotBody), &body))
	require.Equal(t,
		map[string]any{"query": map[string]any{"bool": map[string]any{
			"filter": map[string]any{"ids": map[string]any{"values": []any{"a", "b"}}},
		}}},
		body,
	)
}

func TestClient_CacheReadThroughAndInvalidation(t *testing.T) {
	tr := &fakeTransport{hits: map[string]db.Hit{}}
	tr.hits["u1"] = hit(t, "u1", map[string]any{"name": "Ann"})
	kv := newMemoryKV()
	users := newUsers(t, newTestClient(t, tr, withCacheStore(kv, time.Minute)))

	for range 2 {
		u, err := users.Get(t.Context(), "u1")
		require.NoError(t, err)
		require.Equal(t, "Ann", u.Name)
	}
	require.Equal(t, []string{"u1"}, tr.getCalls, "second read is served from cache")
	require.Equal(t, 1, kv.len())

	_, err := users.Add(&user{ID: "u1", Name: "Ann B."}).Commit(t.Context(), nil)
	require.NoError(t, err)
	require.Zero(t, kv.len(), "commit drops cached copies")
}

func TestClient_CacheSkipsNotFound(t *testing.T) {
	tr := &fakeTransport{hits: map[string]db.Hit{}}
	kv := newMemoryKV()
	users := newUsers(t, newTestClient(t, tr, withCacheStore(kv, time.Minute)))

	for range 2 {
		if _, err := users.Get(t.Context(), "ghost"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
	require.Len(t, tr.getCalls, 2)
	require.Zero(t, kv.len())
}

func TestClient_CachedDocumentWithoutSource(t *testing.T) {
	tr := &fakeTransport{hits: map[string]db.Hit{"d1": {Index: "pages", ID: "d1"}}}
	kv := newMemoryKV()
	c := newTestClient(t, tr, WithDefaultIndex("pages"), withCacheStore(kv, time.Minute))
	docs, err := NewCollection(c, DecodeDocument)
	require.NoError(t, err)

	for range 2 {
		doc, err := docs.Get(t.Context(), "d1")
		require.NoError(t, err)
		require.Equal(t, "d1", doc.ID)
		require.Empty(t, doc.Source)
	}
	require.Equal(t, []string{"d1"}, tr.getCalls, "second read is served from cache")

	got, err := docs.GetIn(t.Context(), "d1")
	require.NoError(t, err)
	require.Empty(t, got, "rows without a source are skipped")
}
