// v2
// internal/session/session.go
package session

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/catalog"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

// DefaultDuration is the countdown length of a simulation session.
const DefaultDuration = 10 * time.Second

// ErrInvalidTransition is returned when a transition does not apply to the current status.
var ErrInvalidTransition = errors.New("invalid session transition")

// ErrNotRunning is returned by Cancel when the session is not running. The
// session is returned unchanged.
var ErrNotRunning = errors.New("session not running")

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// activationOffsets paces actuator activation across the countdown. They are
// presentation values, unrelated to the engine's time-to-effect.
var activationOffsets = map[engine.Dimension]time.Duration{
	engine.Temperature:  1 * time.Second,
	engine.Humidity:     2 * time.Second,
	engine.CO2:          3 * time.Second,
	engine.Light:        1 * time.Second,
	engine.SoilMoisture: 2 * time.Second,
}

// Activation is one planned actuator change of a session.
type Activation struct {
	System      engine.System    `json:"system"`
	Dimension   engine.Dimension `json:"dimension"`
	Action      string           `json:"action"`
	Intensity   float64          `json:"intensity"`
	Trigger     string           `json:"trigger"`
	ActivatedAt time.Duration    `json:"-"`
}

// Spec is everything needed to build a session.
type Spec struct {
	ZoneID   string
	CropType string
	Scenario catalog.Scenario
	Profile  engine.Profile
	// Baseline is the zone reading before the preset is applied. nil means no
	// live reading is available and the profile optimum is used.
	Baseline *engine.Reading
	Duration time.Duration
}

// Session is a simulation run. It is a value: transitions return a new Session
// and never modify the receiver.
type Session struct {
	id        string
	zoneID    string
	crop      string
	scenario  catalog.Scenario
	duration  time.Duration
	status    Status
	startedAt time.Time
	endedAt   time.Time
	baseline  engine.Reading
	input     engine.Reading
	result    engine.Result
	plan      []Activation
	fired     int
}

// New evaluates the preset against the profile and returns a pending session.
func New(spec Spec) Session {
	base := spec.Profile.Optimal()
	if spec.Baseline != nil {
		base = *spec.Baseline
	}
	d := spec.Duration
	if d <= 0 {
		d = DefaultDuration
	}
	input := spec.Scenario.Apply(base)
	res := engine.Evaluate(input, spec.Profile)
	return Session{
		id:       uuid.New().String(),
		zoneID:   spec.ZoneID,
		crop:     catalog.NormalizeCrop(spec.CropType),
		scenario: spec.Scenario,
		duration: d,
		status:   StatusPending,
		baseline: base,
		input:    input,
		result:   res,
		plan:     buildPlan(res),
	}
}

func buildPlan(res engine.Result) []Activation {
	plan := make([]Activation, 0, len(res.Recommendations))
	for _, rec := range res.Recommendations {
		plan = append(plan, Activation{
			System:      rec.System,
			Dimension:   rec.Dimension,
			Action:      rec.Action,
			Intensity:   rec.Intensity,
			Trigger:     rec.EstimatedImpact,
			ActivatedAt: activationOffsets[rec.Dimension],
		})
	}
	sort.SliceStable(plan, func(i, j int) bool { return plan[i].ActivatedAt < plan[j].ActivatedAt })
	return plan
}

func (s Session) ID() string                 { return s.id }
func (s Session) ZoneID() string             { return s.zoneID }
func (s Session) CropType() string           { return s.crop }
func (s Session) Scenario() catalog.Scenario { return s.scenario }
func (s Session) Duration() time.Duration    { return s.duration }
func (s Session) Status() Status             { return s.status }
func (s Session) StartedAt() time.Time       { return s.startedAt }
func (s Session) EndedAt() time.Time         { return s.endedAt }
func (s Session) Baseline() engine.Reading   { return s.baseline }
func (s Session) Input() engine.Reading      { return s.input }

// Result returns the engine output the session was built from.
func (s Session) Result() engine.Result {
	out := s.result
	out.Recommendations = append([]engine.Recommendation(nil), s.result.Recommendations...)
	return out
}

// Plan returns the activation schedule ordered by offset.
func (s Session) Plan() []Activation {
	return append([]Activation(nil), s.plan...)
}

// Start moves a pending session to running.
func (s Session) Start(now time.Time) (Session, []Event, error) {
	if s.status != StatusPending {
		return s, nil, fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.status)
	}
	next := s
	next.status = StatusRunning
	next.startedAt = now
	return next, []Event{next.event(EventStarted, now, nil)}, nil
}

// Tick advances a running session to now. Every activation whose offset has
// passed is fired once, and the session completes once the duration elapsed.
func (s Session) Tick(now time.Time) (Session, Progress, []Event) {
	if s.status != StatusRunning {
		return s, s.Progress(now), nil
	}
	elapsed := s.elapsed(now)
	next := s
	var events []Event
	for next.fired < len(next.plan) && next.plan[next.fired].ActivatedAt <= elapsed {
		a := next.plan[next.fired]
		next.fired++
		if a.Intensity > 0 {
			events = append(events, next.event(EventActivated, now, &a))
		}
	}
	if elapsed >= next.duration {
		next.status = StatusCompleted
		next.endedAt = now
		events = append(events, next.event(EventCompleted, now, nil))
	}
	return next, next.Progress(now), events
}

// Cancel stops a running session. A session whose countdown already ran out
// resolves as completed instead.
func (s Session) Cancel(now time.Time) (Session, []Event, error) {
	if s.status != StatusRunning {
		return s, nil, fmt.Errorf("%w: %s", ErrNotRunning, s.status)
	}
	if s.elapsed(now) >= s.duration {
		next, _, events := s.Tick(now)
		return next, events, nil
	}
	next := s
	next.status = StatusCancelled
	next.endedAt = now
	return next, []Event{next.event(EventCancelled, now, nil)}, nil
}

// elapsed is computed from the wall clock on every call so tick jitter never accumulates.
func (s Session) elapsed(now time.Time) time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	e := now.Sub(s.startedAt)
	if e < 0 {
		return 0
	}
	if e > s.duration {
		return s.duration
	}
	return e
}

// Progress reports elapsed time and active actuators as of now without
// transitioning the session.
func (s Session) Progress(now time.Time) Progress {
	var elapsed time.Duration
	switch s.status {
	case StatusRunning:
		elapsed = s.elapsed(now)
	case StatusCompleted, StatusCancelled:
		elapsed = s.elapsed(s.endedAt)
	}
	p := Progress{
		Status:         s.status,
		Elapsed:        elapsed,
		ElapsedSeconds: elapsed.Seconds(),
		Active:         []engine.System{},
	}
	if s.duration > 0 {
		p.Percent = float64(elapsed) / float64(s.duration) * 100
	}
	seen := map[engine.System]bool{}
	for _, a := range s.plan {
		if s.status == StatusPending || a.ActivatedAt > elapsed || a.Intensity <= 0 || seen[a.System] {
			continue
		}
		seen[a.System] = true
		p.Active = append(p.Active, a.System)
	}
	return p
}

func (s Session) event(t EventType, at time.Time, a *Activation) Event {
	return Event{
		Type:       t,
		SessionID:  s.id,
		ZoneID:     s.zoneID,
		ScenarioID: s.scenario.ID,
		Status:     s.status,
		At:         at,
		Activation: a,
	}
}
