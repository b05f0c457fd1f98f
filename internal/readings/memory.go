// v1
// internal/readings/memory.go
package readings

import (
	"context"
	"time"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/cache"
)

// MemoryStore keeps snapshots in process. Entries older than ttl count as missing.
type MemoryStore struct {
	c *cache.Cache[Snapshot]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{c: cache.New[Snapshot](ttl, nil)}
}

func (m *MemoryStore) Put(_ context.Context, s Snapshot) error {
	m.c.Set(cache.ZoneKey(s.ZoneID), s)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, zone string) (Snapshot, bool, error) {
	s, ok := m.c.Get(cache.ZoneKey(zone))
	return s, ok, nil
}

func (m *MemoryStore) Zones(context.Context) ([]string, error) {
	return m.c.Keys(), nil
}
