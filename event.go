package entrycache

import "reflect"

// EventType identifies the mutation an Event describes.
type EventType int

const (
	EventCreated EventType = iota
	EventUpdated
	EventRemoved
	EventExpired
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventRemoved:
		return "removed"
	case EventExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event describes a single entry mutation. OldValue is populated only for
// registrations that asked for it; HasOldValue distinguishes a zero old
// value from an absent one.
type Event[K comparable, V any] struct {
	Type        EventType
	Key         K
	Value       V
	OldValue    V
	HasOldValue bool
}

// Listener capability interfaces. A listener implements any subset; the
// dispatcher delivers each event kind only to registrations whose listener
// implements the matching capability.

type CreatedListener[K comparable, V any] interface {
	OnCreated(events []Event[K, V]) error
}

type UpdatedListener[K comparable, V any] interface {
	OnUpdated(events []Event[K, V]) error
}

type RemovedListener[K comparable, V any] interface {
	OnRemoved(events []Event[K, V]) error
}

type ExpiredListener[K comparable, V any] interface {
	OnExpired(events []Event[K, V]) error
}

// Filter decides whether an event is delivered to its registration's
// listener. Events it rejects are never observed, including by old-value
// consumers.
type Filter[K comparable, V any] interface {
	Evaluate(event Event[K, V]) bool
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc[K comparable, V any] func(event Event[K, V]) bool

func (f FilterFunc[K, V]) Evaluate(event Event[K, V]) bool {
	if f == nil {
		return true
	}
	return f(event)
}

// ListenerConfig is a listener registration: the listener, an optional
// filter, and the delivery flags. Registrations are deduplicated by value
// equality of the whole tuple, not by registration call.
type ListenerConfig[K comparable, V any] struct {
	// Listener implements any subset of the capability interfaces.
	Listener any

	// Filter, when non-nil, gates delivery per event.
	Filter Filter[K, V]

	// OldValueRequired populates Event.OldValue on updates and removals.
	OldValueRequired bool

	// Synchronous delivers before the triggering operation returns and
	// surfaces listener failures to its caller. Asynchronous registrations
	// deliver later and their failures are dropped.
	Synchronous bool
}

func (c ListenerConfig[K, V]) equal(other ListenerConfig[K, V]) bool {
	return ifaceEqual(c.Listener, other.Listener) &&
		ifaceEqual(any(c.Filter), any(other.Filter)) &&
		c.OldValueRequired == other.OldValueRequired &&
		c.Synchronous == other.Synchronous
}

// ifaceEqual compares interface values without panicking on dynamic types
// that do not support ==, such as func-backed filters. Non-comparable values
// are only equal to themselves by identity, which == cannot establish, so
// they compare unequal.
func ifaceEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}
