package entrycache

import "errors"

const asyncQueueDepth = 256

// dispatcher routes the events produced by one atomic mutation to every
// matching listener registration. Synchronous registrations are served on
// the mutating caller's goroutine before the operation returns; asynchronous
// ones go through a single delivery goroutine whose failures are dropped.
type dispatcher[K comparable, V any] struct {
	cfg   *Config[K, V]
	queue chan asyncBatch[K, V]
	stop  chan struct{}
	done  chan struct{}
}

type asyncBatch[K comparable, V any] struct {
	regs   []ListenerConfig[K, V]
	events []Event[K, V]
}

func newDispatcher[K comparable, V any](cfg *Config[K, V]) *dispatcher[K, V] {
	d := &dispatcher[K, V]{
		cfg:   cfg,
		queue: make(chan asyncBatch[K, V], asyncQueueDepth),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go d.drain()
	return d
}

// dispatch fans events out to the registration set as it exists right now.
// The snapshot guarantees a concurrent register/deregister is seen either
// fully applied or not at all. The first synchronous listener failure is
// returned after every registration has been offered the events; listener
// panics propagate to the caller unwrapped.
func (d *dispatcher[K, V]) dispatch(events []Event[K, V]) error {
	if len(events) == 0 {
		return nil
	}
	regs := d.cfg.Listeners()
	var async []ListenerConfig[K, V]
	var firstErr error
	for _, reg := range regs {
		if !reg.Synchronous {
			async = append(async, reg)
			continue
		}
		if err := deliverTo(reg, events); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if len(async) > 0 {
		batch := asyncBatch[K, V]{regs: async, events: events}
		select {
		case d.queue <- batch:
		case <-d.stop:
		}
	}
	return firstErr
}

// dispatchDropped delivers expiry events. No caller is waiting on a sweep,
// so every registration is treated as fire-and-forget regardless of its
// synchronous flag.
func (d *dispatcher[K, V]) dispatchDropped(events []Event[K, V]) {
	if len(events) == 0 {
		return
	}
	batch := asyncBatch[K, V]{regs: d.cfg.Listeners(), events: events}
	select {
	case d.queue <- batch:
	case <-d.stop:
	}
}

func (d *dispatcher[K, V]) drain() {
	defer close(d.done)
	for {
		select {
		case batch := <-d.queue:
			for _, reg := range batch.regs {
				deliverDropped(reg, batch.events)
			}
		case <-d.stop:
			return
		}
	}
}

func (d *dispatcher[K, V]) close() {
	select {
	case <-d.stop:
		return
	default:
	}
	close(d.stop)
	<-d.done
}

// deliverTo filters the batch for one registration and hands each surviving
// event kind to the matching capability, when the listener implements it. A
// failure in one kind does not suppress delivery of the others.
func deliverTo[K comparable, V any](reg ListenerConfig[K, V], events []Event[K, V]) error {
	var created, updated, removed, expired []Event[K, V]
	for _, ev := range events {
		if reg.Filter != nil && !reg.Filter.Evaluate(ev) {
			continue
		}
		if !reg.OldValueRequired {
			var zero V
			ev.OldValue = zero
			ev.HasOldValue = false
		}
		switch ev.Type {
		case EventCreated:
			created = append(created, ev)
		case EventUpdated:
			updated = append(updated, ev)
		case EventRemoved:
			removed = append(removed, ev)
		case EventExpired:
			expired = append(expired, ev)
		}
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = wrapListenerErr(err)
		}
	}
	if l, ok := reg.Listener.(CreatedListener[K, V]); ok && len(created) > 0 {
		record(l.OnCreated(created))
	}
	if l, ok := reg.Listener.(UpdatedListener[K, V]); ok && len(updated) > 0 {
		record(l.OnUpdated(updated))
	}
	if l, ok := reg.Listener.(RemovedListener[K, V]); ok && len(removed) > 0 {
		record(l.OnRemoved(removed))
	}
	if l, ok := reg.Listener.(ExpiredListener[K, V]); ok && len(expired) > 0 {
		record(l.OnExpired(expired))
	}
	return firstErr
}

// deliverDropped is deliverTo for asynchronous delivery: errors are
// discarded and panics are contained so one broken listener cannot kill the
// delivery goroutine.
func deliverDropped[K comparable, V any](reg ListenerConfig[K, V], events []Event[K, V]) {
	defer func() {
		_ = recover()
	}()
	_ = deliverTo(reg, events)
}

func wrapListenerErr(err error) error {
	var le *ListenerError
	if errors.As(err, &le) {
		return err
	}
	return &ListenerError{Err: err}
}
