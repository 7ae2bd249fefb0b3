// v0
// internal/simulation/guard.go
package simulation

import (
	"sync"
	"sync/atomic"
)

// Guard admits at most one run at a time. It is the only place where the
// running flag changes.
type Guard struct {
	mu     sync.Mutex
	active *Handle
}

// Handle is the single-slot ticket of the active run.
type Handle struct {
	id        string
	cancelled atomic.Bool
	done      chan struct{}
	guard     *Guard
}

// TryStart claims the slot for runID or fails with ErrAlreadyRunning.
func (g *Guard) TryStart(runID string) (*Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		return nil, ErrAlreadyRunning
	}
	h := &Handle{id: runID, done: make(chan struct{}), guard: g}
	g.active = h
	return h, nil
}

// Cancel flags the active run. It reports false when nothing is running.
func (g *Guard) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		return false
	}
	if !g.active.cancelled.Swap(true) {
		close(g.active.done)
	}
	return true
}

func (g *Guard) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active != nil
}

// ActiveID returns the id of the running run, or "".
func (g *Guard) ActiveID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		return ""
	}
	return g.active.id
}

func (h *Handle) ID() string { return h.id }

// Cancelled is polled once per step.
func (h *Handle) Cancelled() bool { return h.cancelled.Load() }

// Done is closed when the run is cancelled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Release frees the slot. Releasing twice, or a stale handle, is a no-op.
func (h *Handle) Release() {
	g := h.guard
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == h {
		g.active = nil
	}
}
