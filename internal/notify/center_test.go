// v1
// internal/notify/center_test.go
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCenterListNewestFirstAndBounded(t *testing.T) {
	c := NewCenter(2, nil, quiet())
	defer c.Close()
	c.Send("zone-A", TypeInfo, "one", "", "")
	c.Send("zone-A", TypeInfo, "two", "", "")
	c.Send("zone-A", TypeInfo, "three", "", "")
	c.Send("zone-B", TypeInfo, "other", "", "")
	list := c.List("zone-A")
	if len(list) != 2 || list[0].Title != "three" || list[1].Title != "two" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if c.Unread("zone-A") != 2 {
		t.Fatalf("expected two unread")
	}
	if n := c.Clear("zone-A"); n != 2 || len(c.List("zone-A")) != 0 {
		t.Fatalf("clear removed %d", n)
	}
	if len(c.List("zone-B")) != 1 {
		t.Fatalf("clearing one zone must not touch another")
	}
}

func TestCenterMarkRead(t *testing.T) {
	c := NewCenter(0, nil, quiet())
	defer c.Close()
	n := c.Alert("zone-A", "Low efficiency", "score 40")
	if n.Type != TypeAlert || n.Icon != "⚠️" {
		t.Fatalf("unexpected alert: %+v", n)
	}
	got, err := c.MarkRead("zone-A", n.ID)
	if err != nil || !got.Read {
		t.Fatalf("mark read: %v %+v", err, got)
	}
	if c.Unread("zone-A") != 0 {
		t.Fatalf("expected no unread")
	}
	if _, err := c.MarkRead("zone-A", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSimulationMessages(t *testing.T) {
	c := NewCenter(0, nil, quiet())
	defer c.Close()
	s := c.SimulationStarted("zone-A", "Heatwave", "🔥", 10*time.Second)
	if s.Message != "Heatwave simulation is now running for 10 seconds" || s.Type != TypeSimulation {
		t.Fatalf("unexpected start message: %+v", s)
	}
	done := c.SimulationCompleted("zone-A", "Heatwave")
	if done.Message != "Heatwave simulation completed successfully. System returning to normal operation." {
		t.Fatalf("unexpected completion message: %q", done.Message)
	}
	a := c.ActuatorActivated("zone-A", engine.Ventilation)
	if a.Title != "Ventilation activated" || a.Message != "The ventilation system has been activated" || a.Icon != "💨" {
		t.Fatalf("unexpected actuator notification: %+v", a)
	}
	if c.ActuatorActivated("zone-A", engine.Curtain).Icon != "⚡" {
		t.Fatalf("curtain should use the fallback icon")
	}
}

func TestWebhookForwarding(t *testing.T) {
	var calls atomic.Int32
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewCenter(0, NewWebhook(srv.URL, 2, time.Second), quiet())
	sent := c.Alert("zone-A", "High CO2", "1800 ppm")
	c.Close()
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
	if got.ID != sent.ID || got.ZoneID != "zone-A" {
		t.Fatalf("unexpected forwarded body: %+v", got)
	}
}

func TestWebhookReportsClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	if err := NewWebhook(srv.URL, 0, time.Second).Forward(context.Background(), Notification{ID: "x"}); err == nil {
		t.Fatalf("expected error on 400")
	}
}
