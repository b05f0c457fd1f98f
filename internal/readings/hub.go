// v1
// internal/readings/hub.go
package readings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

// ErrNoSnapshot is returned when a zone has no current (unexpired) reading.
var ErrNoSnapshot = errors.New("no current reading for zone")

// ErrInvalidSnapshot rejects snapshots without a zone.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is the latest observed reading of a zone.
type Snapshot struct {
	ZoneID     string         `json:"zoneId"`
	Reading    engine.Reading `json:"reading"`
	ObservedAt time.Time      `json:"observedAt"`
	Source     string         `json:"source"`
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Reading.SoilMoisture != nil {
		v := *s.Reading.SoilMoisture
		out.Reading.SoilMoisture = &v
	}
	if s.Reading.HeatingLevel != nil {
		v := *s.Reading.HeatingLevel
		out.Reading.HeatingLevel = &v
	}
	return out
}

// Store persists the latest snapshot per zone.
type Store interface {
	Put(ctx context.Context, s Snapshot) error
	Get(ctx context.Context, zone string) (Snapshot, bool, error)
	Zones(ctx context.Context) ([]string, error)
}

// Hub fronts a Store and notifies subscribers whenever a zone reading changes.
type Hub struct {
	store Store
	lg    *slog.Logger
	now   func() time.Time

	mu   sync.RWMutex
	subs map[int]func(Snapshot)
	next int
}

func NewHub(store Store, lg *slog.Logger) *Hub {
	if lg == nil {
		lg = slog.Default()
	}
	return &Hub{store: store, lg: lg, now: time.Now, subs: map[int]func(Snapshot){}}
}

// Publish stores s and fans it out to every subscriber.
func (h *Hub) Publish(ctx context.Context, s Snapshot) error {
	s.ZoneID = strings.TrimSpace(s.ZoneID)
	if s.ZoneID == "" {
		return fmt.Errorf("%w: empty zone id", ErrInvalidSnapshot)
	}
	if s.ObservedAt.IsZero() {
		s.ObservedAt = h.now().UTC()
	}
	if s.Source == "" {
		s.Source = "api"
	}
	if err := h.store.Put(ctx, s.clone()); err != nil {
		return fmt.Errorf("store snapshot %s: %w", s.ZoneID, err)
	}
	h.lg.Debug("snapshot_published", "zone", s.ZoneID, "source", s.Source, "temperature", s.Reading.Temperature)

	h.mu.RLock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(s.clone())
	}
	return nil
}

// Snapshot returns the current reading of zone or ErrNoSnapshot.
func (h *Hub) Snapshot(ctx context.Context, zone string) (Snapshot, error) {
	zone = strings.TrimSpace(zone)
	s, ok, err := h.store.Get(ctx, zone)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", zone, err)
	}
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoSnapshot, zone)
	}
	return s.clone(), nil
}

// Zones lists zones that currently hold a snapshot.
func (h *Hub) Zones(ctx context.Context) ([]string, error) {
	return h.store.Zones(ctx)
}

// OnChange registers fn for every published snapshot. Callbacks run on the
// publisher goroutine and must not block.
func (h *Hub) OnChange(fn func(Snapshot)) (cancel func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}
