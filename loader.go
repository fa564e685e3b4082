package entrycache

import "context"

// Loader is the read-through collaborator. Load reports ok=false when the
// backing store has no value for the key; that is a miss, not an error.
type Loader[K comparable, V any] interface {
	Load(ctx context.Context, key K) (V, bool, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (V, bool, error)

func (f LoaderFunc[K, V]) Load(ctx context.Context, key K) (V, bool, error) {
	return f(ctx, key)
}

// Writer is the write-through collaborator. Writes happen inline with the
// triggering mutation, before the cache applies it; a writer failure aborts
// the mutation.
type Writer[K comparable, V any] interface {
	Write(ctx context.Context, key K, value V) error
	Delete(ctx context.Context, key K) error
}
