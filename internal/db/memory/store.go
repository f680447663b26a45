// Package memory implements db.Store in process with go-cache.
// Entries live until their TTL elapses or the process exits.
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kailas-cloud/ragquery/internal/db"
)

var _ db.Store = (*Store)(nil)

// Store is an in-process key-value store with per-entry expiry.
type Store struct {
	c *cache.Cache
}

// NewStore creates a store whose entries default to ttl (0 = never expire)
// and are swept every cleanup interval.
func NewStore(ttl, cleanup time.Duration) *Store {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Store{c: cache.New(ttl, cleanup)}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close drops all entries.
func (s *Store) Close() { s.c.Flush() }

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// Get retrieves a copy of the value stored at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	data, _ := v.([]byte)
	return append([]byte(nil), data...), nil
}

// Set stores value with the default expiry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.c.SetDefault(key, append([]byte(nil), value...))
	return nil
}

// SetWithTTL stores value with an explicit expiry. A non-positive ttl uses the default.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	s.c.Set(key, append([]byte(nil), value...), ttl)
	return nil
}
