package esquery

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/esquery/internal/db"
)

// fakeTransport records every request and replays canned responses.
type fakeTransport struct {
	searchReqs []*db.SearchRequest
	countReqs  []*db.SearchRequest
	deleteReqs []*db.SearchRequest
	getCalls   []string
	mgetCalls  [][]string
	mltCalls   []string
	bulkCalls  [][]db.BulkOp
	chunkSizes []int

	searchResult *db.SearchResult
	countResult  int64
	deleted      int64
	hits         map[string]db.Hit // by id, for Get and MultiGet
	getErr       error
	bulkResults  []db.BulkResult
	bulkErr      error
	err          error // returned by Search, Count and DeleteByQuery
}

var _ db.Transport = (*fakeTransport)(nil)

func (f *fakeTransport) Ping(context.Context) error { return f.err }

func (f *fakeTransport) Search(_ context.Context, req *db.SearchRequest) (*db.SearchResult, error) {
	f.searchReqs = append(f.searchReqs, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.searchResult == nil {
		return &db.SearchResult{}, nil
	}
	return f.searchResult, nil
}

func (f *fakeTransport) MoreLikeThis(_ context.Context, _, _, id string, _ int) (*db.SearchResult, error) {
	f.mltCalls = append(f.mltCalls, id)
	if f.searchResult == nil {
		return &db.SearchResult{}, nil
	}
	return f.searchResult, nil
}

func (f *fakeTransport) Count(_ context.Context, req *db.SearchRequest) (int64, error) {
	f.countReqs = append(f.countReqs, req)
	return f.countResult, f.err
}

func (f *fakeTransport) Get(_ context.Context, _, _, id string) (*db.Hit, error) {
	f.getCalls = append(f.getCalls, id)
	if f.getErr != nil {
		return nil, f.getErr
	}
	h, ok := f.hits[id]
	if !ok {
		return nil, &db.Error{Op: db.OpGet, Err: db.ErrDocumentNotFound}
	}
	return &h, nil
}

func (f *fakeTransport) MultiGet(_ context.Context, _, _ string, ids []string) ([]db.Hit, error) {
	f.mgetCalls = append(f.mgetCalls, ids)
	var out []db.Hit
	for _, id := range ids {
		if h, ok := f.hits[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeTransport) DeleteByQuery(_ context.Context, req *db.SearchRequest) (int64, error) {
	f.deleteReqs = append(f.deleteReqs, req)
	return f.deleted, f.err
}

func (f *fakeTransport) Bulk(_ context.Context, ops []db.BulkOp, chunkSize int) ([]db.BulkResult, error) {
	f.bulkCalls = append(f.bulkCalls, ops)
	f.chunkSizes = append(f.chunkSizes, chunkSize)
	return f.bulkResults, f.bulkErr
}

// memoryKV is an in-memory db.KVStore.
type memoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ db.KVStore = (*memoryKV)(nil)

func newMemoryKV() *memoryKV { return &memoryKV{data: make(map[string][]byte)} }

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memoryKV) MGet(_ context.Context, keys []string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *memoryKV) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryKV) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// user is an es-tagged test model.
type user struct {
	ID     string   `es:"id,id"`
	Name   string   `es:"name,analyzed"`
	Status string   `es:"status"`
	Age    int      `es:"age"`
	Tags   []string `es:"tags"`
}

func (u *user) DocID() string      { return u.ID }
func (u *user) DocType() string    { return "user" }
func (u *user) DocIndex() string   { return "users" }
func (u *user) SetDocID(id string) { u.ID = id }

func (u *user) SourceDocument() map[string]any {
	src, _ := EncodeStruct(u)
	return src
}

func newTestClient(t *testing.T, tr *fakeTransport, opts ...Option) *Client {
	t.Helper()
	c, err := New(append(opts, withTransport(tr))...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func newUsers(t *testing.T, c *Client) *Collection[*user] {
	t.Helper()
	decode, err := StructDecoder[*user]()
	if err != nil {
		t.Fatalf("StructDecoder: %v", err)
	}
	users, err := NewCollection(c, decode)
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	return users
}

func hit(t *testing.T, id string, src map[string]any) db.Hit {
	t.Helper()
	b, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return db.Hit{Index: "users", ID: id, Source: b}
}
