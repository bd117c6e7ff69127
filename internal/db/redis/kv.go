package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/esquery/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.B().Get().Key(key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpKVGet, Err: err}
	}
	return data, nil
}

// MGet retrieves several keys in one round trip.
// Missing keys yield nil entries at their position.
func (s *Store) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmd := s.client.B().Mget().Key(keys...).Build()
	msgs, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpKVGet, Err: err}
	}

	out := make([][]byte, len(keys))
	for i, m := range msgs {
		if i >= len(out) || m.IsNil() {
			continue
		}
		data, err := m.AsBytes()
		if err != nil {
			return nil, &db.Error{Op: db.OpKVGet, Err: err}
		}
		out[i] = data
	}
	return out, nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.client.B().Set().Key(key).Value(string(value)).Ex(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpKVSet, Err: err}
	}
	return nil
}

// Del removes keys.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	cmd := s.client.B().Del().Key(keys...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpKVDel, Err: err}
	}
	return nil
}
