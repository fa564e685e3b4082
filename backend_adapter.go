package entrycache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goforj/entrycache/backend"
)

// BackendAdapter bridges a byte-level backend.Store to the typed Loader and
// Writer contracts. Keys are rendered with fmt and values round-trip
// through JSON, matching the engine's default value codec.
type BackendAdapter[K comparable, V any] struct {
	store  backend.Store
	prefix string
}

// NewBackendAdapter wraps store. The optional prefix namespaces keys on
// shared backends, the way multiple caches share one redis or table.
func NewBackendAdapter[K comparable, V any](store backend.Store, prefix string) *BackendAdapter[K, V] {
	return &BackendAdapter[K, V]{store: store, prefix: prefix}
}

func (a *BackendAdapter[K, V]) storeKey(key K) string {
	if a.prefix == "" {
		return fmt.Sprintf("%v", key)
	}
	return fmt.Sprintf("%s:%v", a.prefix, key)
}

// Load implements Loader.
func (a *BackendAdapter[K, V]) Load(ctx context.Context, key K) (V, bool, error) {
	var zero V
	body, ok, err := a.store.Load(ctx, a.storeKey(key))
	if err != nil || !ok {
		return zero, false, err
	}
	var out V
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// Write implements Writer.
func (a *BackendAdapter[K, V]) Write(ctx context.Context, key K, value V) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return a.store.Write(ctx, a.storeKey(key), body)
}

// Delete implements Writer.
func (a *BackendAdapter[K, V]) Delete(ctx context.Context, key K) error {
	return a.store.Delete(ctx, a.storeKey(key))
}

var (
	_ Loader[string, int] = (*BackendAdapter[string, int])(nil)
	_ Writer[string, int] = (*BackendAdapter[string, int])(nil)
)
