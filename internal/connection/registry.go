package connection

import (
	"sort"
	"sync"
	"sync/atomic"
)

// handle is the live resource for one broker: the engine plus its shutdown
// signal. done is closed once the driver has fully exited.
type handle struct {
	engine Engine

	// accepted is set by the driver once the broker accepts the session.
	accepted atomic.Bool

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
}

func newHandle(engine Engine) *handle {
	return &handle{
		engine:   engine,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// signal asks the driver to stop. Idempotent.
func (h *handle) signal() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
}

func (h *handle) signalled() bool {
	select {
	case <-h.shutdown:
		return true
	default:
		return false
	}
}

// Registry maps broker ids to live handles. It is the single source of truth
// for whether a broker has a running driver.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - No lock is held once a method returns, so callers may use the
//     returned Engine for network calls.
type Registry struct {
	mu      sync.RWMutex
	handles map[int64]*handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[int64]*handle)}
}

// insert stores h under id, replacing any existing entry.
func (r *Registry) insert(id int64, h *handle) {
	r.mu.Lock()
	r.handles[id] = h
	r.mu.Unlock()
}

// removeHandle deletes the entry for id only if it is still h, so a retiring
// driver cannot evict its successor.
func (r *Registry) removeHandle(id int64, h *handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handles[id] != h {
		return false
	}
	delete(r.handles, id)
	return true
}

func (r *Registry) handle(id int64) (*handle, bool) {
	r.mu.RLock()
	h, ok := r.handles[id]
	r.mu.RUnlock()
	return h, ok
}

// Client returns the engine registered for id.
func (r *Registry) Client(id int64) (Engine, bool) {
	h, ok := r.handle(id)
	if !ok {
		return nil, false
	}
	return h.engine, true
}

// Contains reports whether id has a live handle.
func (r *Registry) Contains(id int64) bool {
	_, ok := r.handle(id)
	return ok
}

// IDs returns the ids with live handles in ascending order.
func (r *Registry) IDs() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
