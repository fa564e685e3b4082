package entrycache

import (
	"fmt"
	"sort"
	"sync"
)

// closable is the type-erased handle a Manager keeps per cache, since the
// registry holds caches of differing key/value types side by side.
type closable interface {
	Close() error
}

// Manager is a registry of named caches. Each cache name maps to exactly
// one live instance; caches with different type parameters are independent
// entries under their own names.
type Manager struct {
	mu     sync.Mutex
	caches map[string]closable
	closed bool
}

// NewManager returns an empty registry.
func NewManager() *Manager {
	return &Manager{caches: make(map[string]closable)}
}

// CreateCache builds and registers a cache under name. A nil cfg means
// DefaultConfig. Creating a name that already exists fails with
// ErrCacheExists.
func CreateCache[K comparable, V any](m *Manager, name string, cfg *Config[K, V]) (*Cache[K, V], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if _, ok := m.caches[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrCacheExists, name)
	}
	c := newCache(name, cfg)
	m.caches[name] = c
	return c, nil
}

// GetCache looks up name and reports whether a cache with the requested
// key/value types is registered under it.
func GetCache[K comparable, V any](m *Manager, name string) (*Cache[K, V], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle, ok := m.caches[name]
	if !ok {
		return nil, false
	}
	c, ok := handle.(*Cache[K, V])
	return c, ok
}

// GetOrCreateCache returns the cache registered under name, creating it
// with cfg (nil means DefaultConfig) when absent.
func GetOrCreateCache[K comparable, V any](m *Manager, name string, cfg *Config[K, V]) (*Cache[K, V], error) {
	if c, ok := GetCache[K, V](m, name); ok {
		return c, nil
	}
	c, err := CreateCache(m, name, cfg)
	if err == nil {
		return c, nil
	}
	// Lost a create race; the winner's instance is the one to use.
	if c, ok := GetCache[K, V](m, name); ok {
		return c, nil
	}
	return nil, err
}

// CacheNames lists the registered names in sorted order.
func (m *Manager) CacheNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DestroyCache closes and deregisters the named cache, reporting whether it
// existed.
func (m *Manager) DestroyCache(name string) bool {
	m.mu.Lock()
	handle, ok := m.caches[name]
	delete(m.caches, name)
	m.mu.Unlock()
	if ok {
		_ = handle.Close()
	}
	return ok
}

// Close closes every cache and rejects further creates.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	handles := make([]closable, 0, len(m.caches))
	for _, handle := range m.caches {
		handles = append(handles, handle)
	}
	m.caches = make(map[string]closable)
	m.mu.Unlock()

	var firstErr error
	for _, handle := range handles {
		if err := handle.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	defaultMu      sync.Mutex
	defaultManager *Manager
)

// Default returns the process-wide manager, creating it on first use.
func Default() *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultManager == nil {
		defaultManager = NewManager()
	}
	return defaultManager
}

// ResetDefault closes the process-wide manager and discards it, so the next
// Default call starts fresh. Intended for tests that need a clean registry
// between cases.
func ResetDefault() {
	defaultMu.Lock()
	m := defaultManager
	defaultManager = nil
	defaultMu.Unlock()
	if m != nil {
		_ = m.Close()
	}
}
