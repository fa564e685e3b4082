// Package backend defines the byte-level contract between the cache engine
// and its backing-store drivers. Drivers live under driver/ and implement
// Store against a concrete system; the engine consumes them through the
// read-through and write-through adapters.
package backend

import "context"

// Store is the shared backing-store contract. Load reports ok=false for a
// key the store does not hold; that is a miss, not an error. Delete on an
// absent key is a no-op.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by stores that can verify connectivity.
type Pinger interface {
	Ready(ctx context.Context) error
}
