// Package memstore provides an in-process backing store built on
// patrickmn/go-cache. It is the default collaborator for read-through and
// write-through tests and examples: real store semantics with no external
// service.
package memstore

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/goforj/entrycache/backend"
)

const (
	defaultTTL             = gocache.NoExpiration
	defaultCleanupInterval = 10 * time.Minute
)

type store struct {
	cache *gocache.Cache
}

// New builds an in-process backend.Store. Entries never expire unless ttl
// is positive; the engine owns expiry policy, the backend only persists.
func New(ttl time.Duration) backend.Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &store{cache: gocache.New(ttl, defaultCleanupInterval)}
}

func (s *store) Load(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	body, ok := item.([]byte)
	if !ok {
		return nil, false, nil
	}
	clone := make([]byte, len(body))
	copy(clone, body)
	return clone, true, nil
}

func (s *store) Write(_ context.Context, key string, value []byte) error {
	clone := make([]byte, len(value))
	copy(clone, value)
	s.cache.Set(key, clone, gocache.DefaultExpiration)
	return nil
}

func (s *store) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
