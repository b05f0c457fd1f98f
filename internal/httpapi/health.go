// v2
// internal/httpapi/health.go
package httpapi

import (
	"sync"
	"time"
)

// HealthState tracks readiness and when it last changed. Liveness is implied
// while the process runs.
type HealthState struct {
	mu      sync.RWMutex
	ready   bool
	changed time.Time
}

func NewHealthState() *HealthState { return &HealthState{changed: time.Now()} }

func (h *HealthState) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ready != ready {
		h.ready = ready
		h.changed = time.Now()
	}
}

func (h *HealthState) Ready() bool {
	ready, _ := h.State()
	return ready
}

// State returns the readiness flag and the time it was last flipped.
func (h *HealthState) State() (bool, time.Time) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready, h.changed
}
