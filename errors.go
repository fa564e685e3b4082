package entrycache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDuration reports a Duration constructed with a missing or
	// too-fine unit, or a non-positive amount.
	ErrInvalidDuration = errors.New("entrycache: invalid duration")

	// ErrClosed reports an operation against a closed cache or manager.
	ErrClosed = errors.New("entrycache: closed")

	// ErrListenerRegistered reports a duplicate listener registration.
	ErrListenerRegistered = errors.New("entrycache: listener configuration already registered")

	// ErrCacheExists reports a CreateCache for a name already in use.
	ErrCacheExists = errors.New("entrycache: cache already exists")
)

// ListenerError wraps a failure raised by a synchronously registered listener
// or filter. The triggering operation surfaces it to its caller; listener
// panics are not wrapped and propagate as-is.
type ListenerError struct {
	Err error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("entrycache: listener failed: %v", e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// ProcessorError wraps a failure raised inside an entry processor. The entry
// is left unmodified when it is returned.
type ProcessorError struct {
	Err error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("entrycache: entry processor failed: %v", e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }

// LoaderError wraps a read-through load failure from the backing store.
type LoaderError struct {
	Err error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("entrycache: loader failed: %v", e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// WriterError wraps a write-through failure from the backing store. The
// cache mutation that triggered the write is aborted.
type WriterError struct {
	Err error
}

func (e *WriterError) Error() string {
	return fmt.Sprintf("entrycache: writer failed: %v", e.Err)
}

func (e *WriterError) Unwrap() error { return e.Err }
