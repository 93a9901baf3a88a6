package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handle identifies one live worker goroutine and carries the lever to stop it.
type Handle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// ID returns the handle identifier persisted alongside the job row.
func (h *Handle) ID() string {
	return h.id
}

// Done is closed once the worker owning the handle has fully exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Registry tracks the worker goroutines launched by this process, keyed by
// handle id. Handles recorded by other processes or by past lives of this one
// are simply unknown here; callers fall back to marking the job directly.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]*Handle),
	}
}

// Register creates and tracks a handle for a worker about to start.
func (r *Registry) Register(cancel context.CancelFunc) *Handle {
	handle := &Handle{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	r.handles[handle.id] = handle
	r.mu.Unlock()

	return handle
}

// Release removes the handle and marks its worker as exited. Workers call it
// exactly once from their defer path.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	handle, ok := r.handles[id]
	if ok {
		delete(r.handles, id)
	}
	r.mu.Unlock()

	if ok {
		close(handle.done)
	}
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Stop cancels the worker behind id and waits up to grace for it to exit.
// found is false when the handle is unknown to this process. exited reports
// whether the worker finished inside the grace window; a false value means the
// worker is wedged and the caller should proceed to mark the job regardless.
func (r *Registry) Stop(ctx context.Context, id string, grace time.Duration) (found, exited bool) {
	r.mu.Lock()
	handle, ok := r.handles[id]
	r.mu.Unlock()

	if !ok {
		return false, false
	}

	handle.cancel()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-handle.done:
		return true, true
	case <-timer.C:
		return true, false
	case <-ctx.Done():
		return true, false
	}
}

// StopAll cancels every live worker without waiting. Shutdown paths use it to
// interrupt in-flight searches before the process exits.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, handle := range r.handles {
		handle.cancel()
	}
}
