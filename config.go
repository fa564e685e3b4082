package entrycache

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// defaultSweepInterval controls how often the expiry sweeper scans for
	// entries past their deadline.
	defaultSweepInterval = time.Minute

	// defaultShardCount is the number of lock stripes each cache uses.
	defaultShardCount = 64
)

// Config carries everything a cache is created with. Every field is fixed
// once the cache exists except the statistics flag, which stays mutable and
// is shared by every handle holding the same Config, and the listener set,
// which supports dynamic registration.
type Config[K comparable, V any] struct {
	storeByValue  bool
	readThrough   bool
	writeThrough  bool
	expiry        map[ExpiryType]Duration
	loader        Loader[K, V]
	writer        Writer[K, V]
	copier        Copier[V]
	sweepInterval time.Duration

	statistics atomic.Bool

	mu        sync.RWMutex
	listeners []ListenerConfig[K, V]
}

// DefaultConfig returns a fresh configuration: store-by-value on,
// read/write-through and statistics off, every expiry Eternal, no listeners.
// Each call builds an independent instance; two defaults are content-equal
// but never the same object.
func DefaultConfig[K comparable, V any]() *Config[K, V] {
	return &Config[K, V]{
		storeByValue: true,
		expiry: map[ExpiryType]Duration{
			ExpiryCreation: Eternal,
			ExpiryAccess:   Eternal,
			ExpiryUpdate:   Eternal,
		},
		sweepInterval: defaultSweepInterval,
	}
}

// SetStoreByValue toggles copy-on-store/copy-on-read semantics.
func (c *Config[K, V]) SetStoreByValue(enabled bool) *Config[K, V] {
	c.storeByValue = enabled
	return c
}

// SetReadThrough enables loading missing keys from the bound Loader.
func (c *Config[K, V]) SetReadThrough(enabled bool) *Config[K, V] {
	c.readThrough = enabled
	return c
}

// SetWriteThrough enables forwarding mutations to the bound Writer.
func (c *Config[K, V]) SetWriteThrough(enabled bool) *Config[K, V] {
	c.writeThrough = enabled
	return c
}

// SetExpiry binds a Duration to one operation type.
func (c *Config[K, V]) SetExpiry(t ExpiryType, d Duration) *Config[K, V] {
	c.expiry[t] = d
	return c
}

// SetLoader binds the read-through collaborator.
func (c *Config[K, V]) SetLoader(l Loader[K, V]) *Config[K, V] {
	c.loader = l
	return c
}

// SetWriter binds the write-through collaborator.
func (c *Config[K, V]) SetWriter(w Writer[K, V]) *Config[K, V] {
	c.writer = w
	return c
}

// SetCopier overrides the store-by-value copier. The default round-trips
// values through JSON.
func (c *Config[K, V]) SetCopier(cp Copier[V]) *Config[K, V] {
	c.copier = cp
	return c
}

// SetSweepInterval overrides how often expired entries are swept.
func (c *Config[K, V]) SetSweepInterval(interval time.Duration) *Config[K, V] {
	if interval > 0 {
		c.sweepInterval = interval
	}
	return c
}

// SetStatisticsEnabled toggles statistics recording. Unlike every other
// setting it may be called after the cache is created and takes effect
// immediately for all handles sharing this Config.
func (c *Config[K, V]) SetStatisticsEnabled(enabled bool) *Config[K, V] {
	c.statistics.Store(enabled)
	return c
}

func (c *Config[K, V]) IsStoreByValue() bool { return c.storeByValue }

func (c *Config[K, V]) IsReadThrough() bool { return c.readThrough }

func (c *Config[K, V]) IsWriteThrough() bool { return c.writeThrough }

func (c *Config[K, V]) IsStatisticsEnabled() bool { return c.statistics.Load() }

// Expiry returns the Duration bound to t, Eternal when never set.
func (c *Config[K, V]) Expiry(t ExpiryType) Duration {
	d, ok := c.expiry[t]
	if !ok {
		return Eternal
	}
	return d
}

// AddListener registers a listener configuration. Registering a tuple that
// is value-equal to a current member fails with ErrListenerRegistered.
func (c *Config[K, V]) AddListener(cfg ListenerConfig[K, V]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.listeners {
		if existing.equal(cfg) {
			return ErrListenerRegistered
		}
	}
	c.listeners = append(c.listeners, cfg)
	return nil
}

// DeregisterListener removes a previously registered configuration and
// reports whether anything was removed. Unknown tuples are a no-op,
// regardless of whether the registration was made at configuration time or
// dynamically.
func (c *Config[K, V]) DeregisterListener(cfg ListenerConfig[K, V]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.listeners {
		if existing.equal(cfg) {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Listeners returns a snapshot of the current registrations. Dispatch works
// from snapshots so a concurrent register/deregister is observed either
// fully applied or not at all.
func (c *Config[K, V]) Listeners() []ListenerConfig[K, V] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ListenerConfig[K, V], len(c.listeners))
	copy(out, c.listeners)
	return out
}

// Equal compares every configuration field by value, including the current
// statistics flag and listener membership.
func (c *Config[K, V]) Equal(other *Config[K, V]) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.storeByValue != other.storeByValue ||
		c.readThrough != other.readThrough ||
		c.writeThrough != other.writeThrough ||
		c.statistics.Load() != other.statistics.Load() ||
		c.sweepInterval != other.sweepInterval {
		return false
	}
	for _, t := range ExpiryTypes {
		if !c.Expiry(t).Equal(other.Expiry(t)) {
			return false
		}
	}
	if !ifaceEqual(any(c.loader), any(other.loader)) ||
		!ifaceEqual(any(c.writer), any(other.writer)) ||
		!ifaceEqual(any(c.copier), any(other.copier)) {
		return false
	}
	mine, theirs := c.Listeners(), other.Listeners()
	if len(mine) != len(theirs) {
		return false
	}
	for _, l := range mine {
		found := false
		for _, o := range theirs {
			if l.equal(o) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
