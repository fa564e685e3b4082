// Package cachetest provides reusable conformance suites: a full cache
// contract covering event sequencing, processors, and listener
// registration, and a byte-level contract for backing-store drivers.
package cachetest

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goforj/entrycache"
	"github.com/goforj/entrycache/backend"
)

// CacheFactory builds a fresh cache for one contract run. The harness
// closes it when the run finishes.
type CacheFactory func(t *testing.T) *entrycache.Cache[int64, string]

// RunCacheContract exercises the event and atomicity contract against a
// cache built by factory. The cache must start empty, with no listeners
// registered and eternal expiry.
func RunCacheContract(t *testing.T, factory CacheFactory) {
	t.Helper()
	ctx := context.Background()

	t.Run("event sequence", func(t *testing.T) {
		c := factory(t)
		defer c.Close()
		listener := NewCounterListener()
		mustRegister(t, c, entrycache.ListenerConfig[int64, string]{Listener: listener, Synchronous: true})

		assertCounts(t, listener, 0, 0, 0)

		if err := c.Put(ctx, 1, "Sooty"); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		assertCounts(t, listener, 1, 0, 0)

		if err := c.PutAll(ctx, map[int64]string{2: "Lucky", 3: "Prince"}); err != nil {
			t.Fatalf("putAll failed: %v", err)
		}
		assertCounts(t, listener, 3, 0, 0)

		if err := c.Put(ctx, 1, "Sooty"); err != nil {
			t.Fatalf("second put failed: %v", err)
		}
		assertCounts(t, listener, 3, 1, 0)

		if _, _, err := c.GetAndPut(ctx, 4, "Cody"); err != nil {
			t.Fatalf("getAndPut failed: %v", err)
		}
		assertCounts(t, listener, 4, 1, 0)

		if _, _, err := c.GetAndPut(ctx, 4, "Cody"); err != nil {
			t.Fatalf("second getAndPut failed: %v", err)
		}
		assertCounts(t, listener, 4, 2, 0)

		// Plain reads are not mutations.
		if _, ok, err := c.Get(ctx, 1); err != nil || !ok {
			t.Fatalf("get failed: ok=%v err=%v", ok, err)
		}
		assertCounts(t, listener, 4, 2, 0)

		if removed, err := c.Remove(ctx, 4); err != nil || !removed {
			t.Fatalf("remove failed: removed=%v err=%v", removed, err)
		}
		assertCounts(t, listener, 4, 2, 1)
	})

	t.Run("processor outcomes", func(t *testing.T) {
		c := factory(t)
		defer c.Close()
		listener := NewCounterListener()
		mustRegister(t, c, entrycache.ListenerConfig[int64, string]{Listener: listener, Synchronous: true})

		if err := c.Put(ctx, 1, "Sooty"); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		// Reading through a processor is not a mutation.
		result, err := c.Invoke(ctx, 1, MultiArgProcessor("Sooty"), "these", "are", "arguments", int64(1))
		if err != nil {
			t.Fatalf("multi-arg invoke failed: %v", err)
		}
		if result != "Sooty" {
			t.Fatalf("unexpected processor result: %v", result)
		}
		assertCounts(t, listener, 1, 0, 0)

		result, err = c.Invoke(ctx, 1, SetProcessor("Zoot"))
		if err != nil || result != "Zoot" {
			t.Fatalf("set invoke failed: result=%v err=%v", result, err)
		}
		assertCounts(t, listener, 1, 1, 0)

		result, err = c.Invoke(ctx, 1, RemoveProcessor())
		if err != nil || result != nil {
			t.Fatalf("remove invoke failed: result=%v err=%v", result, err)
		}
		assertCounts(t, listener, 1, 1, 1)

		result, err = c.Invoke(ctx, 1, SetProcessor("Moose"))
		if err != nil || result != "Moose" {
			t.Fatalf("recreate invoke failed: result=%v err=%v", result, err)
		}
		assertCounts(t, listener, 2, 1, 1)
	})

	t.Run("iterator removal", func(t *testing.T) {
		c := factory(t)
		defer c.Close()
		listener := NewCounterListener()
		mustRegister(t, c, entrycache.ListenerConfig[int64, string]{Listener: listener, Synchronous: true})

		if err := c.PutAll(ctx, map[int64]string{1: "a", 2: "b", 3: "c"}); err != nil {
			t.Fatalf("putAll failed: %v", err)
		}

		it := c.Iterator()
		for it.Next() {
			if err := it.Remove(); err != nil {
				t.Fatalf("iterator remove failed: %v", err)
			}
		}
		assertCounts(t, listener, 3, 0, 3)
		if c.Len() != 0 {
			t.Fatalf("expected empty cache, got %d entries", c.Len())
		}
	})

	t.Run("clear emits nothing", func(t *testing.T) {
		c := factory(t)
		defer c.Close()
		listener := NewCounterListener()
		mustRegister(t, c, entrycache.ListenerConfig[int64, string]{Listener: listener, Synchronous: true})

		if err := c.Put(ctx, 1, "Sooty"); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		if err := c.Clear(ctx); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		assertCounts(t, listener, 1, 0, 0)
		if c.ContainsKey(1) {
			t.Fatalf("expected cleared key to be absent")
		}
	})

	t.Run("containsKey is not a read", func(t *testing.T) {
		c := factory(t)
		defer c.Close()
		listener := NewCounterListener()
		mustRegister(t, c, entrycache.ListenerConfig[int64, string]{Listener: listener, Synchronous: true})

		if err := c.Put(ctx, 1, "Sooty"); err != nil {
			t.Fatalf("put failed: %v", err)
		}
		if !c.ContainsKey(1) {
			t.Fatalf("expected key present")
		}
		if c.ContainsKey(99) {
			t.Fatalf("expected key absent")
		}
		assertCounts(t, listener, 1, 0, 0)
	})
}

func mustRegister(t *testing.T, c *entrycache.Cache[int64, string], cfg entrycache.ListenerConfig[int64, string]) {
	t.Helper()
	if err := c.RegisterListener(cfg); err != nil {
		t.Fatalf("register listener failed: %v", err)
	}
}

func assertCounts(t *testing.T, l *CounterListener, created, updated, removed int64) {
	t.Helper()
	if got := l.Created(); got != created {
		t.Fatalf("created count: got %d want %d", got, created)
	}
	if got := l.Updated(); got != updated {
		t.Fatalf("updated count: got %d want %d", got, updated)
	}
	if got := l.Removed(); got != removed {
		t.Fatalf("removed count: got %d want %d", got, removed)
	}
}

// CounterListener counts the events it receives, one counter per kind.
// Expired events are accepted but not asserted on by the contract since
// sweeps run asynchronously.
type CounterListener struct {
	created atomic.Int64
	updated atomic.Int64
	removed atomic.Int64
	expired atomic.Int64
}

func NewCounterListener() *CounterListener { return &CounterListener{} }

func (l *CounterListener) Created() int64 { return l.created.Load() }
func (l *CounterListener) Updated() int64 { return l.updated.Load() }
func (l *CounterListener) Removed() int64 { return l.removed.Load() }
func (l *CounterListener) Expired() int64 { return l.expired.Load() }

func (l *CounterListener) OnCreated(events []entrycache.Event[int64, string]) error {
	l.created.Add(int64(len(events)))
	return nil
}

func (l *CounterListener) OnUpdated(events []entrycache.Event[int64, string]) error {
	l.updated.Add(int64(len(events)))
	return nil
}

func (l *CounterListener) OnRemoved(events []entrycache.Event[int64, string]) error {
	l.removed.Add(int64(len(events)))
	return nil
}

func (l *CounterListener) OnExpired(events []entrycache.Event[int64, string]) error {
	l.expired.Add(int64(len(events)))
	return nil
}

// BrokenListener fails every delivery: created and updated with an error,
// removed with a panic, exercising both failure paths of synchronous
// dispatch.
type BrokenListener struct{}

func (BrokenListener) OnCreated([]entrycache.Event[int64, string]) error {
	return errors.New("broken listener: created")
}

func (BrokenListener) OnUpdated([]entrycache.Event[int64, string]) error {
	return errors.New("broken listener: updated")
}

func (BrokenListener) OnRemoved([]entrycache.Event[int64, string]) error {
	panic("broken listener: removed")
}

// VowelFilter accepts events whose value contains at least one vowel.
type VowelFilter struct{}

func (VowelFilter) Evaluate(event entrycache.Event[int64, string]) bool {
	return strings.ContainsAny(event.Value, "aeiou")
}

// SetProcessor stages a value and returns it.
func SetProcessor(value string) entrycache.EntryProcessor[int64, string] {
	return entrycache.ProcessorFunc[int64, string](func(entry entrycache.MutableEntry[int64, string], _ ...any) (any, error) {
		entry.SetValue(value)
		return entry.Value(), nil
	})
}

// RemoveProcessor stages a removal and returns nil.
func RemoveProcessor() entrycache.EntryProcessor[int64, string] {
	return entrycache.ProcessorFunc[int64, string](func(entry entrycache.MutableEntry[int64, string], _ ...any) (any, error) {
		entry.Remove()
		return nil, nil
	})
}

// MultiArgProcessor checks it received its expected arguments and returns
// the current value without mutating the entry.
func MultiArgProcessor(expect string) entrycache.EntryProcessor[int64, string] {
	return entrycache.ProcessorFunc[int64, string](func(entry entrycache.MutableEntry[int64, string], args ...any) (any, error) {
		if len(args) == 0 {
			return entry.Value(), nil
		}
		if entry.Exists() && entry.Value() != expect {
			return nil, errors.New("unexpected current value")
		}
		return entry.Value(), nil
	})
}

// BackendOptions configures RunBackendContract.
type BackendOptions struct {
	// CaseName namespaces keys on shared backends. Defaults to t.Name().
	CaseName string
}

// RunBackendContract runs a backend-agnostic store contract: round-trip,
// overwrite, delete, and miss behavior.
func RunBackendContract(t *testing.T, store backend.Store, opts BackendOptions) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	ctx := context.Background()
	key := func(s string) string {
		return sanitize(caseName) + ":" + s
	}

	// Write/Load round-trip.
	if err := store.Write(ctx, key("alpha"), []byte("value")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	body, ok, err := store.Load(ctx, key("alpha"))
	if err != nil || !ok || string(body) != "value" {
		t.Fatalf("unexpected load result: ok=%v body=%q err=%v", ok, string(body), err)
	}

	// Load returns a detached copy.
	body[0] = 'X'
	body2, ok2, err2 := store.Load(ctx, key("alpha"))
	if err2 != nil || !ok2 || string(body2) != "value" {
		t.Fatalf("expected stored value unchanged, got ok=%v body=%q err=%v", ok2, string(body2), err2)
	}

	// Overwrite.
	if err := store.Write(ctx, key("alpha"), []byte("next")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	body, ok, err = store.Load(ctx, key("alpha"))
	if err != nil || !ok || string(body) != "next" {
		t.Fatalf("unexpected overwrite result: ok=%v body=%q err=%v", ok, string(body), err)
	}

	// Delete, then miss.
	if err := store.Delete(ctx, key("alpha")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, err := store.Load(ctx, key("alpha")); err != nil || ok {
		t.Fatalf("expected miss after delete: ok=%v err=%v", ok, err)
	}

	// Deleting an absent key is a no-op.
	if err := store.Delete(ctx, key("missing")); err != nil {
		t.Fatalf("delete of absent key failed: %v", err)
	}
}

func sanitize(name string) string {
	replacer := strings.NewReplacer("/", "_", " ", "_")
	return replacer.Replace(name)
}
