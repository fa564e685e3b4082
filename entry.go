package entrycache

import (
	"hash/maphash"
	"sync"
	"time"
)

// entry is the stored record for one key. Timestamps and the expiry deadline
// are only read or written under the owning shard's lock.
type entry[V any] struct {
	value    V
	created  time.Time
	accessed time.Time
	updated  time.Time

	// deadline is the instant the entry expires; zero means never.
	deadline time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.deadline.IsZero() && !now.Before(e.deadline)
}

// shard is one lock stripe of the store. All reads of prior state, writes of
// new state, and event computation for a key happen under its mutex, which
// is what makes each operation atomic per key.
type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
}

func newShards[K comparable, V any](n int) []*shard[K, V] {
	shards := make([]*shard[K, V], n)
	for i := range shards {
		shards[i] = &shard[K, V]{entries: make(map[K]*entry[V])}
	}
	return shards
}

func (c *Cache[K, V]) shardFor(key K) *shard[K, V] {
	sum := maphash.Comparable(c.seed, key)
	return c.shards[sum%uint64(len(c.shards))]
}
