// v1
// internal/storage/memory.go
package storage

import (
	"context"
	"sync"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
)

// MemoryRecorder keeps the last limit logs of each zone.
type MemoryRecorder struct {
	mu     sync.RWMutex
	limit  int
	byZone map[string][]session.Log
}

func NewMemoryRecorder(limit int) *MemoryRecorder {
	if limit <= 0 {
		limit = 50
	}
	return &MemoryRecorder{limit: limit, byZone: map[string][]session.Log{}}
}

func (m *MemoryRecorder) RecordSession(_ context.Context, lg session.Log) error {
	lg.ActuatorActions = append([]string(nil), lg.ActuatorActions...)
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.byZone[lg.ZoneID], lg)
	if len(list) > m.limit {
		list = append([]session.Log(nil), list[len(list)-m.limit:]...)
	}
	m.byZone[lg.ZoneID] = list
	return nil
}

func (m *MemoryRecorder) History(_ context.Context, zone string, limit int) ([]session.Log, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.byZone[zone]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]session.Log, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}
