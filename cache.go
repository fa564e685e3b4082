package entrycache

import (
	"context"
	"hash/maphash"
	"reflect"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a single named key/value store with per-key atomic operations,
// pluggable expiry, and mutation events. Instances are created through a
// Manager and are safe for concurrent use.
type Cache[K comparable, V any] struct {
	name       string
	cfg        *Config[K, V]
	shards     []*shard[K, V]
	seed       maphash.Seed
	stats      Statistics
	dispatcher *dispatcher[K, V]
	loads      singleflight.Group
	janitor    *janitor
	closed     atomic.Bool
}

func newCache[K comparable, V any](name string, cfg *Config[K, V]) *Cache[K, V] {
	if cfg == nil {
		cfg = DefaultConfig[K, V]()
	}
	if cfg.copier == nil {
		cfg.copier = jsonCopier[V]{}
	}
	c := &Cache[K, V]{
		name:       name,
		cfg:        cfg,
		shards:     newShards[K, V](defaultShardCount),
		seed:       maphash.MakeSeed(),
		dispatcher: newDispatcher(cfg),
	}
	c.janitor = newJanitor(cfg.sweepInterval)
	c.janitor.run(c)
	return c
}

// Name reports the cache's name within its owning manager.
func (c *Cache[K, V]) Name() string { return c.name }

// Config returns the live configuration. Statistics toggling through it is
// observed immediately; everything else is fixed.
func (c *Cache[K, V]) Config() *Config[K, V] { return c.cfg }

// Stats exposes the cache's counters. They only advance while statistics
// are enabled on the configuration.
func (c *Cache[K, V]) Stats() *Statistics { return &c.stats }

// Close stops background delivery and sweeping. Further operations fail
// with ErrClosed. Close is idempotent.
func (c *Cache[K, V]) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.janitor.stopJanitor()
	c.dispatcher.close()
	return nil
}

// IsClosed reports whether Close has been called.
func (c *Cache[K, V]) IsClosed() bool { return c.closed.Load() }

// RegisterListener adds a listener registration, effective for all
// subsequent operations. Registering a value-equal tuple twice fails with
// ErrListenerRegistered.
func (c *Cache[K, V]) RegisterListener(cfg ListenerConfig[K, V]) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.cfg.AddListener(cfg)
}

// DeregisterListener removes a registration. Unknown or already-removed
// tuples are a no-op, whether the registration came from configuration time
// or a later RegisterListener.
func (c *Cache[K, V]) DeregisterListener(cfg ListenerConfig[K, V]) bool {
	return c.cfg.DeregisterListener(cfg)
}

// Get returns the value for key. A miss consults the read-through loader
// when one is configured. Reads advance the access expiry deadline but
// never produce created/updated/removed events.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if c.closed.Load() {
		return zero, false, ErrClosed
	}
	value, ok, err := c.getLocked(key)
	if err != nil || ok {
		return value, ok, err
	}
	if !c.cfg.readThrough || c.cfg.loader == nil {
		return zero, false, nil
	}
	return c.loadThrough(ctx, key)
}

// getLocked is the in-memory half of Get: hit bookkeeping, lazy expiry, and
// the access-deadline touch.
func (c *Cache[K, V]) getLocked(key K) (V, bool, error) {
	var zero V
	s := c.shardFor(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	now := time.Now()
	if ok && e.expired(now) {
		delete(s.entries, key)
		expiredEv := c.expiredEvent(key, e.value)
		s.mu.Unlock()
		c.recordMiss()
		c.dispatcher.dispatchDropped([]Event[K, V]{expiredEv})
		return zero, false, nil
	}
	if !ok {
		s.mu.Unlock()
		c.recordMiss()
		return zero, false, nil
	}
	e.accessed = now
	c.touchAccess(e, now)
	value := e.value
	s.mu.Unlock()
	c.recordHit()
	out, err := c.copyOut(value)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// loadResult carries the flight's own key so a waiter can tell whether a
// hash collision joined it to another key's flight.
type loadResult[K comparable, V any] struct {
	key   K
	value V
	ok    bool
}

func (c *Cache[K, V]) loadThrough(ctx context.Context, key K) (V, bool, error) {
	var zero V
	res, err, _ := c.loads.Do(c.flightKey(key), func() (any, error) {
		lr, lerr := c.loadOnce(ctx, key)
		if lerr != nil {
			return nil, lerr
		}
		return lr, nil
	})
	if err != nil {
		return zero, false, err
	}
	lr := res.(loadResult[K, V])
	if lr.key != key {
		// Joined another key's flight on a hash collision; load alone.
		lr, err = c.loadOnce(ctx, key)
		if err != nil {
			return zero, false, err
		}
	}
	if !lr.ok {
		return zero, false, nil
	}
	out, cerr := c.copyOut(lr.value)
	if cerr != nil {
		return zero, false, cerr
	}
	return out, true, nil
}

func (c *Cache[K, V]) loadOnce(ctx context.Context, key K) (loadResult[K, V], error) {
	value, ok, err := c.cfg.loader.Load(ctx, key)
	if err != nil {
		return loadResult[K, V]{}, &LoaderError{Err: err}
	}
	if ok {
		c.storeLoaded(key, value)
	}
	return loadResult[K, V]{key: key, value: value, ok: ok}, nil
}

// flightKey names a singleflight call for key. The hash is not injective,
// so loadThrough rechecks the typed key on shared results.
func (c *Cache[K, V]) flightKey(key K) string {
	return strconv.FormatUint(maphash.Comparable(c.seed, key), 16)
}

// storeLoaded inserts a loader-provided value. Loads are part of the read
// path: the entry appears with creation expiry and no event is emitted.
func (c *Cache[K, V]) storeLoaded(key K, value V) {
	stored, err := c.copyIn(value)
	if err != nil {
		return
	}
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && !e.expired(time.Now()) {
		return
	}
	now := time.Now()
	e := &entry[V]{value: stored, created: now, accessed: now, updated: now}
	if deadline, ok := c.cfg.Expiry(ExpiryCreation).deadline(now); ok {
		e.deadline = deadline
	}
	s.entries[key] = e
}

// GetAll returns the present values for keys. Missing keys are simply
// absent from the result; with read-through enabled they are loaded first.
func (c *Cache[K, V]) GetAll(ctx context.Context, keys ...K) (map[K]V, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	out := make(map[K]V, len(keys))
	for _, key := range keys {
		value, ok, err := c.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = value
		}
	}
	return out, nil
}

// ContainsKey reports presence without being a read: no events, no expiry
// touch, no read-through.
func (c *Cache[K, V]) ContainsKey(key K) bool {
	if c.closed.Load() {
		return false
	}
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && !e.expired(time.Now())
}

// Put stores value under key. It emits EventCreated for an absent key and
// EventUpdated for a present one; a write-through failure aborts the mutation
// and emits nothing.
func (c *Cache[K, V]) Put(ctx context.Context, key K, value V) error {
	if c.closed.Load() {
		return ErrClosed
	}
	ev, err := c.putOne(ctx, key, value)
	if err != nil {
		return err
	}
	return c.dispatcher.dispatch([]Event[K, V]{ev})
}

// GetAndPut is Put returning the previous value, when there was one.
func (c *Cache[K, V]) GetAndPut(ctx context.Context, key K, value V) (V, bool, error) {
	var zero V
	if c.closed.Load() {
		return zero, false, ErrClosed
	}
	ev, err := c.putOne(ctx, key, value)
	if err != nil {
		return zero, false, err
	}
	old, had := zero, false
	if ev.HasOldValue {
		old, err = c.copyOut(ev.OldValue)
		if err != nil {
			return zero, false, err
		}
		had = true
	}
	return old, had, c.dispatcher.dispatch([]Event[K, V]{ev})
}

func (c *Cache[K, V]) putOne(ctx context.Context, key K, value V) (Event[K, V], error) {
	stored, err := c.copyIn(value)
	if err != nil {
		return Event[K, V]{}, err
	}
	// In store-by-value mode the event carries its own copy, detached from
	// both the caller's value and the stored one.
	evValue, err := c.copyOut(stored)
	if err != nil {
		return Event[K, V]{}, err
	}
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.cfg.writeThrough && c.cfg.writer != nil {
		if werr := c.cfg.writer.Write(ctx, key, value); werr != nil {
			return Event[K, V]{}, &WriterError{Err: werr}
		}
	}
	now := time.Now()
	prev, had := s.entries[key]
	if had && prev.expired(now) {
		delete(s.entries, key)
		prev, had = nil, false
	}
	ev := Event[K, V]{Key: key, Value: evValue}
	if had {
		ev.Type = EventUpdated
		ev.OldValue = prev.value
		ev.HasOldValue = true
		prev.value = stored
		prev.updated = now
		if d := c.cfg.Expiry(ExpiryUpdate); !d.IsEternal() {
			deadline, _ := d.deadline(now)
			prev.deadline = deadline
		}
	} else {
		ev.Type = EventCreated
		e := &entry[V]{value: stored, created: now, accessed: now, updated: now}
		if deadline, ok := c.cfg.Expiry(ExpiryCreation).deadline(now); ok {
			e.deadline = deadline
		}
		s.entries[key] = e
	}
	c.recordPut()
	return ev, nil
}

// PutAll stores every pair in entries. Events fire per key exactly as Put;
// the first synchronous listener failure is reported after all entries have
// been applied. A write-through failure stops the batch, but entries applied
// before it still fire their events.
func (c *Cache[K, V]) PutAll(ctx context.Context, entries map[K]V) error {
	if c.closed.Load() {
		return ErrClosed
	}
	events := make([]Event[K, V], 0, len(entries))
	for key, value := range entries {
		ev, err := c.putOne(ctx, key, value)
		if err != nil {
			// Entries applied before the failure keep their events; the
			// caller sees the error that stopped the batch.
			c.dispatcher.dispatch(events)
			return err
		}
		events = append(events, ev)
	}
	return c.dispatcher.dispatch(events)
}

// Replace overwrites key only when it is present, emitting EventUpdated. An
// absent key is a no-op with no event.
func (c *Cache[K, V]) Replace(ctx context.Context, key K, value V) (bool, error) {
	ev, replaced, err := c.replaceOne(ctx, key, value, nil)
	if err != nil || !replaced {
		return replaced, err
	}
	return true, c.dispatcher.dispatch([]Event[K, V]{ev})
}

// ReplaceIf overwrites key only when its current value equals expected.
func (c *Cache[K, V]) ReplaceIf(ctx context.Context, key K, expected, value V) (bool, error) {
	ev, replaced, err := c.replaceOne(ctx, key, value, &expected)
	if err != nil || !replaced {
		return replaced, err
	}
	return true, c.dispatcher.dispatch([]Event[K, V]{ev})
}

// GetAndReplace is Replace returning the previous value when it acted.
func (c *Cache[K, V]) GetAndReplace(ctx context.Context, key K, value V) (V, bool, error) {
	var zero V
	ev, replaced, err := c.replaceOne(ctx, key, value, nil)
	if err != nil || !replaced {
		return zero, false, err
	}
	old, cerr := c.copyOut(ev.OldValue)
	if cerr != nil {
		return zero, false, cerr
	}
	return old, true, c.dispatcher.dispatch([]Event[K, V]{ev})
}

func (c *Cache[K, V]) replaceOne(ctx context.Context, key K, value V, expected *V) (Event[K, V], bool, error) {
	if c.closed.Load() {
		return Event[K, V]{}, false, ErrClosed
	}
	stored, err := c.copyIn(value)
	if err != nil {
		return Event[K, V]{}, false, err
	}
	evValue, err := c.copyOut(stored)
	if err != nil {
		return Event[K, V]{}, false, err
	}
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e, ok := s.entries[key]
	if !ok || e.expired(now) {
		return Event[K, V]{}, false, nil
	}
	if expected != nil && !valuesEqual(e.value, *expected) {
		return Event[K, V]{}, false, nil
	}
	if c.cfg.writeThrough && c.cfg.writer != nil {
		if werr := c.cfg.writer.Write(ctx, key, value); werr != nil {
			return Event[K, V]{}, false, &WriterError{Err: werr}
		}
	}
	ev := Event[K, V]{Type: EventUpdated, Key: key, Value: evValue, OldValue: e.value, HasOldValue: true}
	e.value = stored
	e.updated = now
	if d := c.cfg.Expiry(ExpiryUpdate); !d.IsEternal() {
		deadline, _ := d.deadline(now)
		e.deadline = deadline
	}
	c.recordPut()
	return ev, true, nil
}

// Remove deletes key, emitting EventRemoved when it was present. Removing an
// absent key is a no-op, not an error.
func (c *Cache[K, V]) Remove(ctx context.Context, key K) (bool, error) {
	ev, removed, err := c.removeOne(ctx, key, nil)
	if err != nil || !removed {
		return removed, err
	}
	return true, c.dispatcher.dispatch([]Event[K, V]{ev})
}

// RemoveIf deletes key only when its current value equals expected.
func (c *Cache[K, V]) RemoveIf(ctx context.Context, key K, expected V) (bool, error) {
	ev, removed, err := c.removeOne(ctx, key, &expected)
	if err != nil || !removed {
		return removed, err
	}
	return true, c.dispatcher.dispatch([]Event[K, V]{ev})
}

// GetAndRemove is Remove returning the removed value when it acted.
func (c *Cache[K, V]) GetAndRemove(ctx context.Context, key K) (V, bool, error) {
	var zero V
	ev, removed, err := c.removeOne(ctx, key, nil)
	if err != nil || !removed {
		return zero, false, err
	}
	old, cerr := c.copyOut(ev.OldValue)
	if cerr != nil {
		return zero, false, cerr
	}
	return old, true, c.dispatcher.dispatch([]Event[K, V]{ev})
}

func (c *Cache[K, V]) removeOne(ctx context.Context, key K, expected *V) (Event[K, V], bool, error) {
	if c.closed.Load() {
		return Event[K, V]{}, false, ErrClosed
	}
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e, ok := s.entries[key]
	if ok && e.expired(now) {
		delete(s.entries, key)
		e, ok = nil, false
	}
	if expected != nil && (!ok || !valuesEqual(e.value, *expected)) {
		return Event[K, V]{}, false, nil
	}
	// The writer is consulted even for a key the cache no longer holds; the
	// backing store may still have it.
	if c.cfg.writeThrough && c.cfg.writer != nil {
		if werr := c.cfg.writer.Delete(ctx, key); werr != nil {
			return Event[K, V]{}, false, &WriterError{Err: werr}
		}
	}
	if !ok {
		return Event[K, V]{}, false, nil
	}
	delete(s.entries, key)
	c.recordRemoval()
	ev := Event[K, V]{Type: EventRemoved, Key: key, Value: e.value, OldValue: e.value, HasOldValue: true}
	return ev, true, nil
}

// RemoveAll deletes the given keys, emitting EventRemoved per present key.
func (c *Cache[K, V]) RemoveAll(ctx context.Context, keys ...K) error {
	if c.closed.Load() {
		return ErrClosed
	}
	var events []Event[K, V]
	for _, key := range keys {
		ev, removed, err := c.removeOne(ctx, key, nil)
		if err != nil {
			// Keys removed before the failure keep their events; the caller
			// sees the error that stopped the batch.
			c.dispatcher.dispatch(events)
			return err
		}
		if removed {
			events = append(events, ev)
		}
	}
	return c.dispatcher.dispatch(events)
}

// Clear drops every entry as a bulk administrative reset. Unlike Remove and
// RemoveAll it emits no events and does not consult the write-through
// writer.
func (c *Cache[K, V]) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[K]*entry[V])
		s.mu.Unlock()
	}
	return nil
}

// Len reports the number of live entries.
func (c *Cache[K, V]) Len() int {
	now := time.Now()
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for _, e := range s.entries {
			if !e.expired(now) {
				total++
			}
		}
		s.mu.Unlock()
	}
	return total
}

// touchAccess re-arms the expiry deadline after a read. An Eternal access
// duration leaves the current deadline untouched.
func (c *Cache[K, V]) touchAccess(e *entry[V], now time.Time) {
	if d := c.cfg.Expiry(ExpiryAccess); !d.IsEternal() {
		deadline, _ := d.deadline(now)
		e.deadline = deadline
	}
}

func (c *Cache[K, V]) expiredEvent(key K, value V) Event[K, V] {
	return Event[K, V]{Type: EventExpired, Key: key, Value: value, OldValue: value, HasOldValue: true}
}

// sweep removes entries past their deadline and hands the resulting expired
// events to asynchronous delivery. Called by the janitor.
func (c *Cache[K, V]) sweep() {
	if c.closed.Load() {
		return
	}
	now := time.Now()
	var events []Event[K, V]
	for _, s := range c.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if e.expired(now) {
				delete(s.entries, key)
				events = append(events, c.expiredEvent(key, e.value))
				c.recordExpiry()
			}
		}
		s.mu.Unlock()
	}
	c.dispatcher.dispatchDropped(events)
}

func (c *Cache[K, V]) copyIn(value V) (V, error) {
	if !c.cfg.storeByValue {
		return value, nil
	}
	return c.cfg.copier.Copy(value)
}

func (c *Cache[K, V]) copyOut(value V) (V, error) {
	if !c.cfg.storeByValue {
		return value, nil
	}
	return c.cfg.copier.Copy(value)
}

func (c *Cache[K, V]) recordHit() {
	if c.cfg.IsStatisticsEnabled() {
		c.stats.hits.Add(1)
	}
}

func (c *Cache[K, V]) recordMiss() {
	if c.cfg.IsStatisticsEnabled() {
		c.stats.misses.Add(1)
	}
}

func (c *Cache[K, V]) recordPut() {
	if c.cfg.IsStatisticsEnabled() {
		c.stats.puts.Add(1)
	}
}

func (c *Cache[K, V]) recordRemoval() {
	if c.cfg.IsStatisticsEnabled() {
		c.stats.removals.Add(1)
	}
}

func (c *Cache[K, V]) recordExpiry() {
	if c.cfg.IsStatisticsEnabled() {
		c.stats.expiries.Add(1)
	}
}

func (c *Cache[K, V]) recordProcessed() {
	if c.cfg.IsStatisticsEnabled() {
		c.stats.processed.Add(1)
	}
}

func valuesEqual[V any](a, b V) bool {
	return reflect.DeepEqual(a, b)
}
