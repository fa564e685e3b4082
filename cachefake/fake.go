// Package cachefake provides a deterministic in-memory backend store with
// call-count assertions, for testing read-through and write-through wiring
// without external services.
package cachefake

import (
	"context"
	"sync"
	"testing"

	"github.com/goforj/entrycache/backend"
)

// Op identifies a backend operation for assertions.
type Op string

const (
	OpLoad   Op = "load"
	OpWrite  Op = "write"
	OpDelete Op = "delete"
)

// Store is an in-memory backend.Store that records every call per key.
// Failures can be injected per op to test error propagation.
type Store struct {
	mu     sync.Mutex
	data   map[string][]byte
	counts map[Op]map[string]int
	fail   map[Op]error
}

var _ backend.Store = (*Store)(nil)

// New creates an empty fake store.
func New() *Store {
	return &Store{
		data:   make(map[string][]byte),
		counts: make(map[Op]map[string]int),
		fail:   make(map[Op]error),
	}
}

// Seed preloads key with val without counting a write.
func (s *Store) Seed(key string, val []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), val...)
}

// FailWith makes every subsequent call of op return err. A nil err clears
// the injection.
func (s *Store) FailWith(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bump(OpLoad, key)
	if err := s.fail[OpLoad]; err != nil {
		return nil, false, err
	}
	val, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

func (s *Store) Write(ctx context.Context, key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bump(OpWrite, key)
	if err := s.fail[OpWrite]; err != nil {
		return err
	}
	s.data[key] = append([]byte(nil), val...)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bump(OpDelete, key)
	if err := s.fail[OpDelete]; err != nil {
		return err
	}
	delete(s.data, key)
	return nil
}

// Contains reports whether key is present, without counting a load.
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Reset clears recorded counts, keeping the data.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = make(map[Op]map[string]int)
}

// AssertCalled verifies key was touched by op the expected number of times.
func (s *Store) AssertCalled(t *testing.T, op Op, key string, times int) {
	t.Helper()
	if got := s.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures key was never touched by op.
func (s *Store) AssertNotCalled(t *testing.T, op Op, key string) {
	t.Helper()
	if got := s.Count(op, key); got != 0 {
		t.Fatalf("expected %s %q not called, got %d", op, key, got)
	}
}

// AssertTotal ensures the total call count for an op matches times.
func (s *Store) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := s.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

// Count returns calls for op+key.
func (s *Store) Count(op Op, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[op] == nil {
		return 0
	}
	return s.counts[op][key]
}

// Total returns total calls for an op across keys.
func (s *Store) Total(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int
	for _, v := range s.counts[op] {
		sum += v
	}
	return sum
}

func (s *Store) bump(op Op, key string) {
	if s.counts[op] == nil {
		s.counts[op] = make(map[string]int)
	}
	s.counts[op][key]++
}
