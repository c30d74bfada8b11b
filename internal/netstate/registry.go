package netstate

import (
	"fmt"
	"log"
	"sync"
)

// Listener receives a status each time a connectivity signal is processed.
type Listener interface {
	OnStatusChanged(status ConnectStatus)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(status ConnectStatus)

func (f ListenerFunc) OnStatusChanged(status ConnectStatus) { f(status) }

// Subscription identifies one registration in a Registry. Removal goes
// through the token rather than the listener value, so closures and other
// non-comparable listeners can be removed.
type Subscription struct {
	id uint64
}

// Valid reports whether the subscription came from a successful Add.
func (s Subscription) Valid() bool { return s.id != 0 }

// DispatchObserver is notified about dispatch activity. Used for metrics.
type DispatchObserver interface {
	OnDispatch(status ConnectStatus, listeners int)
	OnListenerPanic(status ConnectStatus)
}

type entry struct {
	id       uint64
	listener Listener
}

// Registry is an ordered set of listeners. Duplicate registrations of the
// same listener are kept as separate entries and each receives every
// dispatch. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entries  []entry
	nextID   uint64
	observer DispatchObserver
}

func NewRegistry() *Registry {
	return &Registry{}
}

// SetObserver installs o as the dispatch observer. Pass nil to disable.
func (r *Registry) SetObserver(o DispatchObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// Add appends l and returns its subscription. It returns false only when l
// is nil.
func (r *Registry) Add(l Listener) (Subscription, bool) {
	if l == nil {
		return Subscription{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.entries = append(r.entries, entry{id: r.nextID, listener: l})
	return Subscription{id: r.nextID}, true
}

// AddFunc is a convenience wrapper around Add for plain functions.
func (r *Registry) AddFunc(f func(ConnectStatus)) (Subscription, bool) {
	if f == nil {
		return Subscription{}, false
	}
	return r.Add(ListenerFunc(f))
}

// Remove drops the entry for sub. It reports whether the entry was present.
func (r *Registry) Remove(sub Subscription) bool {
	if !sub.Valid() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.id == sub.id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every listener.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Dispatch calls every registered listener with status, in registration
// order, and returns once all of them have run. The listener set is copied
// first: registrations changed during a dispatch take effect on the next
// one. A listener that panics is logged and skipped.
func (r *Registry) Dispatch(status ConnectStatus) {
	r.mu.RLock()
	listeners := make([]Listener, len(r.entries))
	for i, e := range r.entries {
		listeners[i] = e.listener
	}
	observer := r.observer
	r.mu.RUnlock()

	if observer != nil {
		observer.OnDispatch(status, len(listeners))
	}

	for _, l := range listeners {
		if err := notify(l, status); err != nil {
			log.Printf("Listener failed on %s: %v", status, err)
			if observer != nil {
				observer.OnListenerPanic(status)
			}
		}
	}
}

func notify(l Listener, status ConnectStatus) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	l.OnStatusChanged(status)
	return nil
}
