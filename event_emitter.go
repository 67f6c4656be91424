package wsrpc

import (
	"sync"
)

type callback[T any] func(T)

// EventEmitterCallback maps events (of type K) to callbacks receiving a value
// of type V.
type EventEmitterCallback[K comparable, V any] struct {
	listeners map[K][]*callback[V]
	lock      sync.RWMutex
}

// NewEventEmitter creates a new EventEmitterCallback and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitterCallback[K, V] {
	return &EventEmitterCallback[K, V]{
		listeners: make(map[K][]*callback[V]),
	}
}

// On registers a new listener for the given event. The returned function
// removes it again.
func (e *EventEmitterCallback[K, V]) On(event K, listener func(V)) (off func()) {
	cb := callback[V](listener)
	ref := &cb

	e.lock.Lock()
	e.listeners[event] = append(e.listeners[event], ref)
	e.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(event, ref) })
	}
}

func (e *EventEmitterCallback[K, V]) remove(event K, ref *callback[V]) {
	e.lock.Lock()
	defer e.lock.Unlock()

	listeners := e.listeners[event]
	for i, l := range listeners {
		if l == ref {
			e.listeners[event] = append(listeners[:i:i], listeners[i+1:]...)
			return
		}
	}
}

// Emit calls every listener registered for the given event, in registration
// order, on the calling goroutine. Listeners may register or remove listeners
// while being called; changes apply to the next Emit.
func (e *EventEmitterCallback[K, V]) Emit(event K, data V) {
	e.lock.RLock()
	listeners := e.listeners[event]
	e.lock.RUnlock()

	for _, listener := range listeners {
		(*listener)(data)
	}
}

// Len returns how many listeners the given event has.
func (e *EventEmitterCallback[K, V]) Len(event K) int {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return len(e.listeners[event])
}

// Close removes all listeners.
func (e *EventEmitterCallback[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners = make(map[K][]*callback[V])
}
