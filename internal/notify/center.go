// v1
// internal/notify/center.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

var ErrNotFound = errors.New("notification not found")

type Type string

const (
	TypeSimulation Type = "simulation"
	TypeAlert      Type = "alert"
	TypeInfo       Type = "info"
	TypeWarning    Type = "warning"
	TypeSuccess    Type = "success"
)

type Notification struct {
	ID        string    `json:"id"`
	ZoneID    string    `json:"zoneId"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Icon      string    `json:"icon,omitempty"`
}

// Forwarder delivers notifications outside the process.
type Forwarder interface {
	Forward(ctx context.Context, n Notification) error
}

// DefaultLimit bounds the notifications kept per zone.
const DefaultLimit = 100

// Center keeps recent notifications per zone, oldest first in storage.
type Center struct {
	mu     sync.Mutex
	byZone map[string][]Notification
	limit  int
	now    func() time.Time
	lg     *slog.Logger

	fwd   Forwarder
	queue chan Notification
	done  chan struct{}
	once  sync.Once
}

// NewCenter starts a forwarding worker when fwd is set. Call Close to drain it.
func NewCenter(limit int, fwd Forwarder, lg *slog.Logger) *Center {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if lg == nil {
		lg = slog.Default()
	}
	c := &Center{byZone: map[string][]Notification{}, limit: limit, now: time.Now, lg: lg, fwd: fwd, done: make(chan struct{})}
	if fwd != nil {
		c.queue = make(chan Notification, 64)
		go c.forward()
	} else {
		close(c.done)
	}
	return c
}

func (c *Center) forward() {
	defer close(c.done)
	for n := range c.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := c.fwd.Forward(ctx, n); err != nil {
			c.lg.Warn("notification_forward_failed", "zone", n.ZoneID, "id", n.ID, "error", err)
		}
		cancel()
	}
}

// Send records a notification and queues it for forwarding.
func (c *Center) Send(zone string, typ Type, title, message, icon string) Notification {
	n := Notification{
		ID:        uuid.New().String(),
		ZoneID:    zone,
		Type:      typ,
		Title:     title,
		Message:   message,
		Timestamp: c.now().UTC(),
		Icon:      icon,
	}
	c.mu.Lock()
	list := append(c.byZone[zone], n)
	if len(list) > c.limit {
		list = append([]Notification(nil), list[len(list)-c.limit:]...)
	}
	c.byZone[zone] = list
	c.mu.Unlock()
	c.lg.Info("notification_sent", "zone", zone, "type", string(typ), "title", title)

	if c.queue != nil {
		select {
		case c.queue <- n:
		default:
			c.lg.Warn("notification_forward_dropped", "zone", zone, "id", n.ID)
		}
	}
	return n
}

// List returns the notifications of zone, newest first.
func (c *Center) List(zone string) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.byZone[zone]
	out := make([]Notification, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	return out
}

func (c *Center) Unread(zone string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, x := range c.byZone[zone] {
		if !x.Read {
			n++
		}
	}
	return n
}

func (c *Center) MarkRead(zone, id string) (Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.byZone[zone] {
		if c.byZone[zone][i].ID == id {
			c.byZone[zone][i].Read = true
			return c.byZone[zone][i], nil
		}
	}
	return Notification{}, fmt.Errorf("%w: %s/%s", ErrNotFound, zone, id)
}

// Clear drops every notification of zone and reports how many were removed.
func (c *Center) Clear(zone string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.byZone[zone])
	delete(c.byZone, zone)
	return n
}

// Close stops accepting forwards and waits for queued ones.
func (c *Center) Close() {
	c.once.Do(func() {
		if c.queue != nil {
			close(c.queue)
		}
	})
	<-c.done
}

func (c *Center) SimulationStarted(zone, scenario, icon string, d time.Duration) Notification {
	return c.Send(zone, TypeSimulation, "Simulation Started",
		fmt.Sprintf("%s simulation is now running for %d seconds", scenario, int(d.Round(time.Second)/time.Second)), icon)
}

func (c *Center) SimulationCompleted(zone, scenario string) Notification {
	return c.Send(zone, TypeSuccess, "Simulation Complete",
		fmt.Sprintf("%s simulation completed successfully. System returning to normal operation.", scenario), "✅")
}

func (c *Center) SimulationCancelled(zone, scenario string) Notification {
	return c.Send(zone, TypeWarning, "Simulation Stopped",
		fmt.Sprintf("%s simulation was stopped before completion.", scenario), "⏹️")
}

var systemIcons = map[engine.System]string{
	engine.Ventilation: "💨",
	engine.Irrigation:  "💧",
	engine.Heating:     "🔥",
	engine.Misting:     "💦",
	engine.Lighting:    "💡",
	engine.CO2Dosing:   "🌱",
}

func (c *Center) ActuatorActivated(zone string, sys engine.System) Notification {
	icon, ok := systemIcons[sys]
	if !ok {
		icon = "⚡"
	}
	name := string(sys)
	return c.Send(zone, TypeInfo, name+" activated",
		fmt.Sprintf("The %s system has been activated", strings.ToLower(name)), icon)
}

func (c *Center) Alert(zone, title, message string) Notification {
	return c.Send(zone, TypeAlert, title, message, "⚠️")
}
