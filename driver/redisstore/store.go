// Package redisstore provides a Redis-backed backing store for read-through
// and write-through caches.
package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goforj/entrycache/backend"
)

const (
	defaultPrefix = "entrycache"
	defaultTTL    = 0 // persist until deleted
)

// Client captures the subset of redis.Client used by the store.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Config configures a Redis-backed backend.Store.
type Config struct {
	Client Client

	// Prefix namespaces keys on a shared server. Defaults to "entrycache".
	Prefix string

	// TTL bounds how long the backing store retains a value; zero keeps
	// values until deleted. Engine-level expiry is separate.
	TTL time.Duration
}

type store struct {
	client Client
	prefix string
	ttl    time.Duration
}

// New builds a Redis-backed backend.Store.
func New(cfg Config) backend.Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := cfg.TTL
	if ttl < 0 {
		ttl = defaultTTL
	}
	return &store{client: cfg.Client, prefix: prefix, ttl: ttl}
}

func (s *store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, errors.New("redis client unavailable")
	}
	value, err := s.client.Get(ctx, s.storeKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *store) Write(ctx context.Context, key string, value []byte) error {
	if s.client == nil {
		return errors.New("redis client unavailable")
	}
	return s.client.Set(ctx, s.storeKey(key), value, s.ttl).Err()
}

func (s *store) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return errors.New("redis client unavailable")
	}
	return s.client.Del(ctx, s.storeKey(key)).Err()
}

func (s *store) Ready(ctx context.Context) error {
	if s.client == nil {
		return errors.New("redis client unavailable")
	}
	return s.client.Ping(ctx).Err()
}

func (s *store) storeKey(key string) string {
	return s.prefix + ":" + key
}

var _ backend.Pinger = (*store)(nil)
