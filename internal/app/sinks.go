// v1
// internal/app/sinks.go
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/notify"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/storage"
)

type devicePublisher interface {
	PublishDevice(ctx context.Context, zone string, p session.DevicePayload) error
}

// sessionSink turns session events into zone notifications, device
// instructions and history records.
type sessionSink struct {
	notes     *notify.Center
	recorders storage.SessionRecorder
	devices   devicePublisher
	lg        *slog.Logger
}

func (s *sessionSink) SessionEvent(ctx context.Context, sess session.Session, ev session.Event) {
	zone := sess.ZoneID()
	sc := sess.Scenario()
	switch ev.Type {
	case session.EventStarted:
		s.notes.SimulationStarted(zone, sc.Name, sc.Icon, sess.Duration())
		if s.devices != nil {
			if err := s.devices.PublishDevice(ctx, zone, sess.DevicePayload()); err != nil {
				s.lg.Warn("device_publish_failed", "zone", zone, "session", sess.ID(), "error", err)
			}
		}
	case session.EventActivated:
		if ev.Activation != nil && ev.Activation.Intensity > 0 {
			s.notes.ActuatorActivated(zone, ev.Activation.System)
		}
	case session.EventCompleted:
		s.notes.SimulationCompleted(zone, sc.Name)
		s.record(ctx, sess)
	case session.EventCancelled:
		s.notes.SimulationCancelled(zone, sc.Name)
		s.record(ctx, sess)
	}
}

func (s *sessionSink) record(ctx context.Context, sess session.Session) {
	lg, ok := sess.Log()
	if !ok || s.recorders == nil {
		return
	}
	if err := s.recorders.RecordSession(ctx, lg); err != nil {
		s.lg.Warn("session_record_failed", "zone", sess.ZoneID(), "session", sess.ID(), "error", err)
	}
}

// mqttDevices publishes device payloads to a per-zone topic.
type mqttDevices struct {
	client  mqtt.Client
	pattern string
	timeout time.Duration
}

func (m *mqttDevices) PublishDevice(ctx context.Context, zone string, p session.DevicePayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode device payload: %w", err)
	}
	topic := fmt.Sprintf(m.pattern, zone)
	token := m.client.Publish(topic, 1, false, body)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.timeout):
		return fmt.Errorf("publish %s: timed out after %s", topic, m.timeout)
	}
}
