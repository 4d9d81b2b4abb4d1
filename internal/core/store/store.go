package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Listener is called after every dispatch that changed the state, on the
// dispatching goroutine, before Dispatch returns. Calls from one goroutine
// arrive in dispatch order. Concurrent dispatches are applied one at a time
// but notified independently, so a listener may see them out of apply order:
// read the current snapshot with State rather than chaining prev/next across
// calls. Listeners may dispatch; the nested change is delivered before the
// outer Dispatch returns.
type Listener func(prev, next *State, action Action)

// Store holds the current State. Dispatch is the only way to change it, and
// dispatches are applied one at a time.
type Store struct {
	mu    sync.Mutex
	state atomic.Pointer[State]

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	nextID      uint64

	logger *slog.Logger
}

// New creates a store in the initial state.
func New(retention int, logger *slog.Logger) *Store {
	s := &Store{
		listeners: make(map[uint64]Listener),
		logger:    logger.With("component", "store"),
	}
	s.state.Store(InitialState(retention))
	return s
}

// State returns the current snapshot. Callers must treat it as read-only.
func (s *Store) State() *State {
	return s.state.Load()
}

// Dispatch applies action and notifies listeners if the state changed.
// Listeners run without any store lock held, so callers may dispatch while
// holding their own locks as long as their listeners do not take them.
func (s *Store) Dispatch(action Action) *State {
	s.mu.Lock()
	prev := s.state.Load()
	next := Reduce(prev, action)
	s.state.Store(next)
	s.mu.Unlock()

	if next == prev {
		s.logger.Debug("action ignored", "type", action.Type)
		return next
	}

	s.listenersMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l(prev, next, action)
	}
	return next
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}
