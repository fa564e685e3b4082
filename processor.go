package entrycache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EntryProcessor is a caller-supplied read-modify-write unit executed
// atomically against one entry. It observes and mutates the entry through
// the MutableEntry view and reports its own result; the executor derives the
// created/updated/removed event from what the view recorded.
type EntryProcessor[K comparable, V any] interface {
	Process(entry MutableEntry[K, V], args ...any) (any, error)
}

// ProcessorFunc adapts a function to the EntryProcessor interface.
type ProcessorFunc[K comparable, V any] func(entry MutableEntry[K, V], args ...any) (any, error)

func (f ProcessorFunc[K, V]) Process(entry MutableEntry[K, V], args ...any) (any, error) {
	return f(entry, args...)
}

// MutableEntry is the processor's buffered view of one entry. Mutations are
// staged and only committed once the processor returns successfully, so a
// failing processor leaves the entry untouched.
type MutableEntry[K comparable, V any] interface {
	Key() K
	Exists() bool
	Value() V
	SetValue(value V)
	Remove()
}

type mutableEntry[K comparable, V any] struct {
	key     K
	exists  bool
	value   V
	set     bool
	removed bool
}

func (m *mutableEntry[K, V]) Key() K { return m.key }

func (m *mutableEntry[K, V]) Exists() bool { return m.exists }

func (m *mutableEntry[K, V]) Value() V {
	var zero V
	if !m.exists {
		return zero
	}
	return m.value
}

func (m *mutableEntry[K, V]) SetValue(value V) {
	m.value = value
	m.exists = true
	m.set = true
	m.removed = false
}

func (m *mutableEntry[K, V]) Remove() {
	var zero V
	m.value = zero
	m.exists = false
	m.removed = true
	m.set = false
}

// Invoke runs proc against key under the same per-key atomicity as the
// built-in mutators. A processor error or panic surfaces as *ProcessorError
// with the entry unmodified; on success staged mutations commit and emit
// the same events a Put or Remove would.
func (c *Cache[K, V]) Invoke(ctx context.Context, key K, proc EntryProcessor[K, V], args ...any) (any, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if proc == nil {
		return nil, &ProcessorError{Err: errors.New("nil entry processor")}
	}

	s := c.shardFor(key)
	s.mu.Lock()
	now := time.Now()
	e, ok := s.entries[key]
	if ok && e.expired(now) {
		delete(s.entries, key)
		e, ok = nil, false
	}

	view := &mutableEntry[K, V]{key: key, exists: ok}
	if ok {
		value, err := c.copyOut(e.value)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		view.value = value
	}

	result, err := runProcessor(proc, view, args)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	var events []Event[K, V]
	switch {
	case view.removed && ok:
		if c.cfg.writeThrough && c.cfg.writer != nil {
			if werr := c.cfg.writer.Delete(ctx, key); werr != nil {
				s.mu.Unlock()
				return nil, &WriterError{Err: werr}
			}
		}
		old := e.value
		delete(s.entries, key)
		c.recordRemoval()
		events = append(events, Event[K, V]{Type: EventRemoved, Key: key, Value: old, OldValue: old, HasOldValue: true})
	case view.set:
		stored, cerr := c.copyIn(view.value)
		if cerr != nil {
			s.mu.Unlock()
			return nil, cerr
		}
		// The event's copy is detached from the processor's value.
		evValue, cerr := c.copyOut(stored)
		if cerr != nil {
			s.mu.Unlock()
			return nil, cerr
		}
		if c.cfg.writeThrough && c.cfg.writer != nil {
			if werr := c.cfg.writer.Write(ctx, key, view.value); werr != nil {
				s.mu.Unlock()
				return nil, &WriterError{Err: werr}
			}
		}
		if ok {
			events = append(events, Event[K, V]{Type: EventUpdated, Key: key, Value: evValue, OldValue: e.value, HasOldValue: true})
			e.value = stored
			e.updated = now
			if d := c.cfg.Expiry(ExpiryUpdate); !d.IsEternal() {
				deadline, _ := d.deadline(now)
				e.deadline = deadline
			}
		} else {
			events = append(events, Event[K, V]{Type: EventCreated, Key: key, Value: evValue})
			fresh := &entry[V]{value: stored, created: now, accessed: now, updated: now}
			if deadline, dok := c.cfg.Expiry(ExpiryCreation).deadline(now); dok {
				fresh.deadline = deadline
			}
			s.entries[key] = fresh
		}
		c.recordPut()
	}
	s.mu.Unlock()

	c.recordProcessed()
	if derr := c.dispatcher.dispatch(events); derr != nil {
		return result, derr
	}
	return result, nil
}

// runProcessor isolates the processor call so a panic inside caller code is
// converted to a ProcessorError instead of unwinding through the shard lock.
func runProcessor[K comparable, V any](proc EntryProcessor[K, V], view *mutableEntry[K, V], args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ProcessorError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	result, err = proc.Process(view, args...)
	if err != nil {
		var pe *ProcessorError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &ProcessorError{Err: err}
	}
	return result, nil
}
