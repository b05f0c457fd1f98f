// v0
// internal/session/session_test.go
package session

import (
	"errors"
	"testing"
	"time"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/catalog"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

var t0 = time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)

func heatwaveSpec(t *testing.T) Spec {
	t.Helper()
	sc, err := catalog.Lookup("heatwave")
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	p, err := catalog.Profile("pepper")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	return Spec{ZoneID: "zone-A", CropType: "Pepper", Scenario: sc, Profile: p}
}

func countEvents(evs []Event, typ EventType) int {
	n := 0
	for _, e := range evs {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func TestNewSessionIsPending(t *testing.T) {
	s := New(heatwaveSpec(t))
	if s.Status() != StatusPending {
		t.Fatalf("expected pending, got %s", s.Status())
	}
	if s.Duration() != DefaultDuration {
		t.Fatalf("expected default duration, got %s", s.Duration())
	}
	if s.CropType() != "pepper" {
		t.Fatalf("crop should be normalized, got %q", s.CropType())
	}
	if s.ID() == "" {
		t.Fatalf("expected session id")
	}
	plan := s.Plan()
	for i := 1; i < len(plan); i++ {
		if plan[i-1].ActivatedAt > plan[i].ActivatedAt {
			t.Fatalf("plan not ordered by offset: %+v", plan)
		}
	}
	if len(plan) != len(s.Result().Recommendations) {
		t.Fatalf("plan should mirror recommendations")
	}
}

func TestCancelImmediatelyAfterStart(t *testing.T) {
	s, evs, err := New(heatwaveSpec(t)).Start(t0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if countEvents(evs, EventStarted) != 1 {
		t.Fatalf("expected a started event, got %+v", evs)
	}
	s, evs, err = s.Cancel(t0)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if s.Status() != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", s.Status())
	}
	if countEvents(evs, EventCancelled) != 1 {
		t.Fatalf("expected cancelled event, got %+v", evs)
	}
	s, _, evs = s.Tick(t0.Add(20 * time.Second))
	if s.Status() != StatusCancelled || len(evs) != 0 {
		t.Fatalf("cancelled session must not complete, got %s %+v", s.Status(), evs)
	}
}

func TestCompletesExactlyOnce(t *testing.T) {
	s, _, _ := New(heatwaveSpec(t)).Start(t0)
	var all []Event
	for ms := 100; ms <= 12000; ms += 100 {
		var evs []Event
		s, _, evs = s.Tick(t0.Add(time.Duration(ms) * time.Millisecond))
		all = append(all, evs...)
	}
	if s.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %s", s.Status())
	}
	if n := countEvents(all, EventCompleted); n != 1 {
		t.Fatalf("expected one completion, got %d", n)
	}
	active := 0
	for _, a := range s.Plan() {
		if a.Intensity > 0 {
			active++
		}
	}
	if n := countEvents(all, EventActivated); n != active {
		t.Fatalf("expected %d activations, got %d", active, n)
	}
}

func TestTickUsesWallClockDelta(t *testing.T) {
	s, _, _ := New(heatwaveSpec(t)).Start(t0)
	_, p, _ := s.Tick(t0.Add(2500 * time.Millisecond))
	if p.ElapsedSeconds != 2.5 {
		t.Fatalf("expected 2.5s elapsed, got %v", p.ElapsedSeconds)
	}
	if p.Percent != 25 {
		t.Fatalf("expected 25%%, got %v", p.Percent)
	}
	// heatwave: temperature actions at 1s, humidity misting at 2s, co2 at 3s
	has := map[engine.System]bool{}
	for _, sys := range p.Active {
		has[sys] = true
	}
	if !has[engine.Ventilation] || !has[engine.Misting] {
		t.Fatalf("expected ventilation and misting active at 2.5s, got %v", p.Active)
	}
	if has[engine.CO2Dosing] {
		t.Fatalf("co2 dosing is paced at 3s, got %v", p.Active)
	}
	if has[engine.Heating] {
		t.Fatalf("zero-intensity heating must not be active")
	}
}

func TestSingleLateTickFiresEverything(t *testing.T) {
	s, _, _ := New(heatwaveSpec(t)).Start(t0)
	s, p, evs := s.Tick(t0.Add(time.Minute))
	if s.Status() != StatusCompleted || p.Percent != 100 {
		t.Fatalf("expected completion at 100%%, got %s %v", s.Status(), p.Percent)
	}
	if countEvents(evs, EventCompleted) != 1 || evs[len(evs)-1].Type != EventCompleted {
		t.Fatalf("completion must be the last event, got %+v", evs)
	}
}

func TestCancelPendingIsNoOp(t *testing.T) {
	s := New(heatwaveSpec(t))
	next, evs, err := s.Cancel(t0)
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if next.Status() != StatusPending || len(evs) != 0 {
		t.Fatalf("pending session must stay untouched")
	}
}

func TestCancelAfterDeadlineCompletes(t *testing.T) {
	s, _, _ := New(heatwaveSpec(t)).Start(t0)
	s, evs, err := s.Cancel(t0.Add(11 * time.Second))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if s.Status() != StatusCompleted || countEvents(evs, EventCompleted) != 1 {
		t.Fatalf("expected completion, got %s %+v", s.Status(), evs)
	}
}

func TestStartTwiceFails(t *testing.T) {
	s, _, _ := New(heatwaveSpec(t)).Start(t0)
	if _, _, err := s.Start(t0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	pending := New(heatwaveSpec(t))
	running, _, _ := pending.Start(t0)
	_, _, _ = running.Cancel(t0.Add(time.Second))
	if pending.Status() != StatusPending || running.Status() != StatusRunning {
		t.Fatalf("receiver mutated: %s %s", pending.Status(), running.Status())
	}
}

func TestLogForAbortedSession(t *testing.T) {
	s, _, _ := New(heatwaveSpec(t)).Start(t0)
	if _, ok := s.Log(); ok {
		t.Fatalf("running session has no log yet")
	}
	s, _, _ = s.Tick(t0.Add(1500 * time.Millisecond))
	s, _, _ = s.Cancel(t0.Add(1500 * time.Millisecond))
	lg, ok := s.Log()
	if !ok {
		t.Fatalf("expected log for cancelled session")
	}
	if lg.Status != LogAborted {
		t.Fatalf("expected aborted, got %s", lg.Status)
	}
	if lg.EndConditions.Temperature != 38 || lg.StartConditions.Temperature != 24 {
		t.Fatalf("unexpected conditions: %+v -> %+v", lg.StartConditions, lg.EndConditions)
	}
	if len(lg.ActuatorActions) != 1 {
		t.Fatalf("only the ventilation action fired before 1.5s, got %v", lg.ActuatorActions)
	}
	if lg.DurationSeconds != 1.5 {
		t.Fatalf("expected 1.5s run, got %v", lg.DurationSeconds)
	}
}

func TestDevicePayload(t *testing.T) {
	s, _, _ := New(heatwaveSpec(t)).Start(t0)
	p := s.DevicePayload()
	if p.ZoneID != "zone-A" || p.ScenarioID != "heatwave" || p.Duration != 10 {
		t.Fatalf("unexpected payload header: %+v", p)
	}
	if p.Timestamp != t0.UnixMilli() {
		t.Fatalf("expected start timestamp, got %d", p.Timestamp)
	}
	if len(p.Actuators) != len(s.Plan()) || p.Actuators[0].ActivateAt != 1 {
		t.Fatalf("unexpected actuators: %+v", p.Actuators)
	}
}

func TestViewReportsExpectedAndActualActuators(t *testing.T) {
	s, _, err := New(heatwaveSpec(t)).Start(t0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	v := s.View(t0)
	if v.ExpectedActuators != s.Scenario().ExpectedActuators {
		t.Fatalf("expected actuators must come from the preset, got %+v", v.ExpectedActuators)
	}
	if want := catalog.ActuatorsFromState(s.Result().Active()); v.ActualActuators != want {
		t.Fatalf("actual actuators %+v, want %+v", v.ActualActuators, want)
	}
	if !v.ActualActuators.Fan || !v.ActualActuators.Misting {
		t.Fatalf("heatwave should drive fans and misting, got %+v", v.ActualActuators)
	}
	if v.ActualActuators.Heater {
		t.Fatalf("heatwave must not heat, got %+v", v.ActualActuators)
	}
}
