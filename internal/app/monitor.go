// v2
// internal/app/monitor.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/cache"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/catalog"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/notify"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/readings"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/storage"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/zones"
)

const monitorQueueSize = 64

type evaluationPublisher interface {
	PublishEvaluation(ctx context.Context, zone, crop string, res engine.Result, at time.Time) error
}

type zoneObserver interface {
	ZoneEvaluated(zone string, res engine.Result)
}

// monitor evaluates every snapshot pushed into the hub with the crop of its
// zone, forwards the result and raises an alert when a zone falls below the
// efficiency threshold.
type monitor struct {
	zones     *zones.Registry
	hub       *readings.Hub
	notes     *notify.Center
	bus       evaluationPublisher
	recorder  storage.EfficiencyRecorder
	observer  zoneObserver
	latest    *cache.Cache[engine.Result]
	threshold float64
	lg        *slog.Logger

	queue chan readings.Snapshot

	mu       sync.Mutex
	alerting map[string]bool
}

func newMonitor(reg *zones.Registry, hub *readings.Hub, notes *notify.Center, threshold float64, lg *slog.Logger) *monitor {
	return &monitor{
		zones:     reg,
		hub:       hub,
		notes:     notes,
		latest:    cache.New[engine.Result](0, nil),
		threshold: threshold,
		lg:        lg,
		queue:     make(chan readings.Snapshot, monitorQueueSize),
		alerting:  map[string]bool{},
	}
}

func (m *monitor) enqueue(s readings.Snapshot) {
	select {
	case m.queue <- s:
	default:
		m.lg.Warn("monitor_queue_full", "zone", s.ZoneID)
	}
}

// Run subscribes to the hub and evaluates snapshots until ctx is done.
func (m *monitor) Run(ctx context.Context) error {
	cancel := m.hub.OnChange(m.enqueue)
	defer cancel()
	m.lg.Info("monitor_started", "threshold", m.threshold)
	for {
		select {
		case <-ctx.Done():
			m.lg.Info("monitor_stopped")
			return nil
		case s := <-m.queue:
			m.process(ctx, s)
		}
	}
}

func (m *monitor) process(ctx context.Context, s readings.Snapshot) {
	crop, ok := m.zones.Get(s.ZoneID)
	if !ok {
		m.lg.Warn("monitor_unknown_zone", "zone", s.ZoneID, "source", s.Source)
		return
	}
	profile, err := catalog.Profile(crop)
	if err != nil {
		m.lg.Error("monitor_profile_missing", "zone", s.ZoneID, "crop", crop, "error", err)
		return
	}
	res := engine.Evaluate(s.Reading, profile)
	m.latest.Set(cache.ZoneKey(s.ZoneID), res)
	if m.observer != nil {
		m.observer.ZoneEvaluated(s.ZoneID, res)
	}
	m.lg.Debug("zone_evaluated", "zone", s.ZoneID, "crop", crop, "score", res.EfficiencyScore, "recommendations", len(res.Recommendations))

	if m.bus != nil {
		if err := m.bus.PublishEvaluation(ctx, s.ZoneID, crop, res, s.ObservedAt); err != nil {
			m.lg.Warn("evaluation_publish_failed", "zone", s.ZoneID, "error", err)
		}
	}
	if m.recorder != nil {
		if err := m.recorder.RecordEvaluation(ctx, s.ZoneID, crop, res, s.ObservedAt); err != nil {
			m.lg.Warn("evaluation_record_failed", "zone", s.ZoneID, "error", err)
		}
	}
	m.checkAlert(s.ZoneID, res)
}

// checkAlert notifies once per drop below the threshold.
func (m *monitor) checkAlert(zone string, res engine.Result) {
	below := res.EfficiencyScore < m.threshold
	m.mu.Lock()
	was := m.alerting[zone]
	m.alerting[zone] = below
	m.mu.Unlock()
	if !below || was {
		return
	}
	m.notes.Alert(zone, "Low climate efficiency",
		fmt.Sprintf("Efficiency score %.0f is below %.0f, %d corrective actions recommended", res.EfficiencyScore, m.threshold, len(res.Recommendations)))
	m.lg.Warn("zone_efficiency_alert", "zone", zone, "score", res.EfficiencyScore, "threshold", m.threshold)
}

// Latest returns the last live evaluation of a zone.
func (m *monitor) Latest(zone string) (engine.Result, bool) {
	return m.latest.Get(cache.ZoneKey(zone))
}

func (m *monitor) monitoredZones() []string { return m.latest.Keys() }

// scores reports the latest efficiency score of every monitored zone.
func (m *monitor) scores() map[string]float64 {
	out := map[string]float64{}
	for _, zone := range m.monitoredZones() {
		if res, ok := m.Latest(zone); ok {
			out[zone] = res.EfficiencyScore
		}
	}
	return out
}
