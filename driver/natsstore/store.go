// Package natsstore provides a NATS JetStream KeyValue backed backing
// store.
package natsstore

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/goforj/entrycache/backend"
)

const defaultPrefix = "entrycache"

// KeyValue captures the subset of nats.KeyValue used by the store.
type KeyValue interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Delete(key string, opts ...nats.DeleteOpt) error
}

// Config configures a NATS-backed backend.Store.
type Config struct {
	KeyValue KeyValue
	Prefix   string
}

type store struct {
	kv     KeyValue
	prefix string
}

// New builds a NATS JetStream KeyValue backed backend.Store.
func New(cfg Config) (backend.Store, error) {
	if cfg.KeyValue == nil {
		return nil, errors.New("natsstore requires a KeyValue bucket")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &store{kv: cfg.KeyValue, prefix: prefix}, nil
}

func (s *store) Load(_ context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(s.storeKey(key))
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted) {
			return nil, false, nil
		}
		return nil, false, err
	}
	value := entry.Value()
	clone := make([]byte, len(value))
	copy(clone, value)
	return clone, true, nil
}

func (s *store) Write(_ context.Context, key string, value []byte) error {
	_, err := s.kv.Put(s.storeKey(key), value)
	return err
}

func (s *store) Delete(_ context.Context, key string) error {
	err := s.kv.Delete(s.storeKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted) {
		return nil
	}
	return err
}

// storeKey maps an arbitrary cache key onto the restricted NATS KV subject
// alphabet. Keys already safe for subjects pass through with the prefix;
// anything else is base64-encoded.
func (s *store) storeKey(key string) string {
	if subjectSafe(key) {
		return s.prefix + "." + key
	}
	return s.prefix + ".b64." + base64.RawURLEncoding.EncodeToString([]byte(key))
}

func subjectSafe(key string) bool {
	if key == "" {
		return false
	}
	return !strings.ContainsAny(key, " .*>\t\r\n")
}
