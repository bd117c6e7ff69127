package doccache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esquery/internal/db"
)

// mockGetter implements db.Getter over an in-memory map.
type mockGetter struct {
	docs       map[string]db.Hit
	err        error
	getCalls   int
	multiCalls [][]string
}

func (m *mockGetter) Get(_ context.Context, _, _, id string) (*db.Hit, error) {
	m.getCalls++
	if m.err != nil {
		return nil, m.err
	}
	hit, ok := m.docs[id]
	if !ok {
		return nil, &db.Error{Op: db.OpGet, Err: db.ErrDocumentNotFound}
	}
	return &hit, nil
}

func (m *mockGetter) MultiGet(_ context.Context, _, _ string, ids []string) ([]db.Hit, error) {
	m.multiCalls = append(m.multiCalls, ids)
	if m.err != nil {
		return nil, m.err
	}
	var out []db.Hit
	for _, id := range ids {
		if hit, ok := m.docs[id]; ok {
			out = append(out, hit)
		}
	}
	return out, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
	dels   []string
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockKVStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	m.dels = append(m.dels, keys...)
	return nil
}

func newTestCachedGetter(t *testing.T, docs map[string]db.Hit) (*CachedGetter, *mockGetter, *mockKVStore) {
	t.Helper()
	inner := &mockGetter{docs: docs}
	kv := newMockKVStore()
	return New(inner, kv, time.Minute, nil, zap.NewNop()), inner, kv
}
