package entrycache

import "sync/atomic"

// Statistics accumulates per-cache operation counters. Counters are only
// advanced while the cache's configuration has statistics enabled; the
// struct itself is always safe for concurrent use.
type Statistics struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	puts      atomic.Uint64
	removals  atomic.Uint64
	expiries  atomic.Uint64
	processed atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Hits      uint64
	Misses    uint64
	Gets      uint64
	Puts      uint64
	Removals  uint64
	Expiries  uint64
	Processed uint64
}

func (s *Statistics) Hits() uint64 { return s.hits.Load() }

func (s *Statistics) Misses() uint64 { return s.misses.Load() }

// Gets counts read attempts, hits plus misses.
func (s *Statistics) Gets() uint64 { return s.hits.Load() + s.misses.Load() }

func (s *Statistics) Puts() uint64 { return s.puts.Load() }

func (s *Statistics) Removals() uint64 { return s.removals.Load() }

// Expiries counts sweep-driven removals. Sweeps run asynchronously, so this
// counter lags the wall clock and carries no ordering guarantee.
func (s *Statistics) Expiries() uint64 { return s.expiries.Load() }

// Processed counts entry-processor invocations that completed.
func (s *Statistics) Processed() uint64 { return s.processed.Load() }

// Snapshot copies all counters at once. Gets is derived from hits plus
// misses.
func (s *Statistics) Snapshot() StatsSnapshot {
	hits, misses := s.hits.Load(), s.misses.Load()
	return StatsSnapshot{
		Hits:      hits,
		Misses:    misses,
		Gets:      hits + misses,
		Puts:      s.puts.Load(),
		Removals:  s.removals.Load(),
		Expiries:  s.expiries.Load(),
		Processed: s.processed.Load(),
	}
}

// Reset zeroes every counter.
func (s *Statistics) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.puts.Store(0)
	s.removals.Store(0)
	s.expiries.Store(0)
	s.processed.Store(0)
}
