// v0
// internal/api/health.go
package api

import "sync"

// HealthState tracks readiness. Liveness is implied by the process
// answering at all.
type HealthState struct {
	mu    sync.RWMutex
	ready bool
}

func NewHealthState() *HealthState {
	return &HealthState{}
}

func (h *HealthState) SetReady(value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = value
}

func (h *HealthState) Ready() bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}
