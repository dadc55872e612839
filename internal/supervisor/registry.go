package supervisor

import (
	"sync"

	"videobridge/internal/job"
)

// Registry tracks the active job of each kind. It enforces single-flight
// per kind and supports bulk cancellation at shutdown.
type Registry struct {
	mu   sync.Mutex
	jobs map[job.Kind]*Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[job.Kind]*Handle)}
}

// register claims the slot for a kind. Returns ErrAlreadyRunning when an
// active job of that kind exists.
func (r *Registry) register(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.jobs[h.Kind]; ok && !existing.State().Terminal() {
		return ErrAlreadyRunning
	}
	r.jobs[h.Kind] = h
	return nil
}

// unregister releases a kind's slot. Only the owning handle removes the
// entry, so stale or repeated unregister calls are harmless no-ops.
func (r *Registry) unregister(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobs[h.Kind] == h {
		delete(r.jobs, h.Kind)
	}
}

// Get returns the active handle for a kind, or nil.
func (r *Registry) Get(kind job.Kind) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[kind]
}

// Snapshot returns a copy of the active handles. Iterating the copy is safe
// against concurrent register/unregister.
func (r *Registry) Snapshot() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles := make([]*Handle, 0, len(r.jobs))
	for _, h := range r.jobs {
		handles = append(handles, h)
	}
	return handles
}

// CancelAll requests cancellation of every active job and returns the number
// of jobs that accepted the request. Used for full teardown.
func (r *Registry) CancelAll() int {
	cancelled := 0
	for _, h := range r.Snapshot() {
		if h.requestCancel() {
			cancelled++
		}
	}
	return cancelled
}
