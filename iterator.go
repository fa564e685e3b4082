package entrycache

import (
	"context"
	"time"
)

// Iterator walks the non-expired entries of a cache over a key snapshot
// taken at creation. Iteration is a read: each visited entry gets an access
// expiry touch, and no events fire. Remove behaves exactly like
// Cache.Remove for the current key, including the EventRemoved event.
//
// Usage follows the scanner shape:
//
//	it := c.Iterator()
//	for it.Next() {
//		_ = it.Key()
//		_ = it.Value()
//	}
type Iterator[K comparable, V any] struct {
	cache *Cache[K, V]
	keys  []K
	pos   int
	key   K
	value V
	valid bool
}

// Iterator snapshots the current keys and returns a fresh iterator.
// Entries added after the snapshot are not visited; entries removed or
// expired in the meantime are skipped.
func (c *Cache[K, V]) Iterator() *Iterator[K, V] {
	var keys []K
	now := time.Now()
	for _, s := range c.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if !e.expired(now) {
				keys = append(keys, key)
			}
		}
		s.mu.Unlock()
	}
	return &Iterator[K, V]{cache: c, keys: keys}
}

// Next advances to the next live entry and reports whether one exists.
func (it *Iterator[K, V]) Next() bool {
	it.valid = false
	for it.pos < len(it.keys) {
		key := it.keys[it.pos]
		it.pos++
		value, ok, err := it.cache.getLocked(key)
		if err != nil || !ok {
			continue
		}
		it.key = key
		it.value = value
		it.valid = true
		return true
	}
	return false
}

// Key returns the current entry's key. Only valid after a true Next.
func (it *Iterator[K, V]) Key() K { return it.key }

// Value returns the current entry's value. Only valid after a true Next.
func (it *Iterator[K, V]) Value() V { return it.value }

// Remove deletes the current entry, firing EventRemoved exactly as an
// explicit Remove(key) would.
func (it *Iterator[K, V]) Remove() error {
	if !it.valid {
		return nil
	}
	it.valid = false
	_, err := it.cache.Remove(context.Background(), it.key)
	return err
}
