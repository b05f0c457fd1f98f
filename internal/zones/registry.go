// v1
// internal/zones/registry.go
package zones

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/catalog"
)

// ErrUnknownZone is returned when an operation references a zone that is not configured.
var ErrUnknownZone = errors.New("unknown zoneId")

// Registry maps each configured zone to the crop grown in it. Reads come from
// the monitoring loop and HTTP handlers, writes from crop changes.
type Registry struct {
	mu    sync.RWMutex
	crops map[string]string
}

// New validates every zone has a known crop.
func New(zones []string, crops map[string]string) (*Registry, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("zones: no zones configured")
	}
	r := &Registry{crops: make(map[string]string, len(zones))}
	for _, zone := range zones {
		crop, ok := crops[zone]
		if !ok {
			return nil, fmt.Errorf("zones: missing crop for zone %s", zone)
		}
		if _, err := catalog.Profile(crop); err != nil {
			return nil, fmt.Errorf("zones: zone %s: %w", zone, err)
		}
		r.crops[zone] = catalog.NormalizeCrop(crop)
	}
	return r, nil
}

// Get returns the crop of zone.
func (r *Registry) Get(zone string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.crops[zone]
	return c, ok
}

// All returns a copy of the zone to crop mapping.
func (r *Registry) All() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.crops))
	for z, c := range r.crops {
		out[z] = c
	}
	return out
}

// Zones lists the configured zones in order.
func (r *Registry) Zones() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.crops))
	for z := range r.crops {
		out = append(out, z)
	}
	sort.Strings(out)
	return out
}

// Set changes the crop of a known zone.
func (r *Registry) Set(zone, crop string) (string, error) {
	if _, err := catalog.Profile(crop); err != nil {
		return "", err
	}
	crop = catalog.NormalizeCrop(crop)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.crops[zone]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownZone, zone)
	}
	r.crops[zone] = crop
	return crop, nil
}
