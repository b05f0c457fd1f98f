// v2
// internal/session/events.go
package session

import (
	"fmt"
	"time"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/catalog"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

type EventType string

const (
	EventStarted   EventType = "started"
	EventActivated EventType = "activated"
	EventCompleted EventType = "completed"
	EventCancelled EventType = "cancelled"
)

// Event is emitted on every session transition and actuator activation.
type Event struct {
	Type       EventType   `json:"type"`
	SessionID  string      `json:"sessionId"`
	ZoneID     string      `json:"zoneId"`
	ScenarioID string      `json:"scenarioId"`
	Status     Status      `json:"status"`
	At         time.Time   `json:"at"`
	Activation *Activation `json:"activation,omitempty"`
}

// Progress is the per-tick view of a session.
type Progress struct {
	Status         Status          `json:"status"`
	Elapsed        time.Duration   `json:"-"`
	ElapsedSeconds float64         `json:"elapsedSeconds"`
	Percent        float64         `json:"progressPercent"`
	Active         []engine.System `json:"activeActuators"`
}

// ActivationView is the JSON form of an Activation.
type ActivationView struct {
	Activation
	ActivatedAtSeconds float64 `json:"activatedAt"`
}

// View is the JSON representation of a session at a point in time.
type View struct {
	ID              string           `json:"id"`
	ZoneID          string           `json:"zoneId"`
	ScenarioID      string           `json:"scenarioId"`
	ScenarioName    string           `json:"scenarioName"`
	CropType        string           `json:"cropType"`
	Status          Status           `json:"status"`
	DurationSeconds float64          `json:"duration"`
	StartedAt       *time.Time       `json:"startTime,omitempty"`
	EndedAt         *time.Time       `json:"endTime,omitempty"`
	Baseline        engine.Reading   `json:"initialConditions"`
	Input           engine.Reading   `json:"targetConditions"`
	Result          engine.Result    `json:"result"`
	Plan            []ActivationView `json:"actuatorResponses"`
	Progress        Progress         `json:"progress"`

	// ExpectedActuators is what the preset is designed to provoke,
	// ActualActuators what the engine recommended for this reading.
	ExpectedActuators catalog.ExpectedActuators `json:"expectedActuators"`
	ActualActuators   catalog.ExpectedActuators `json:"actualActuators"`
}

func (s Session) View(now time.Time) View {
	v := View{
		ID:              s.id,
		ZoneID:          s.zoneID,
		ScenarioID:      s.scenario.ID,
		ScenarioName:    s.scenario.Name,
		CropType:        s.crop,
		Status:          s.status,
		DurationSeconds: s.duration.Seconds(),
		Baseline:        s.baseline,
		Input:           s.input,
		Result:          s.Result(),
		Progress:        s.Progress(now),

		ExpectedActuators: s.scenario.ExpectedActuators,
		ActualActuators:   catalog.ActuatorsFromState(s.result.Active()),
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		v.StartedAt = &t
	}
	if !s.endedAt.IsZero() {
		t := s.endedAt
		v.EndedAt = &t
	}
	v.Plan = make([]ActivationView, 0, len(s.plan))
	for _, a := range s.plan {
		v.Plan = append(v.Plan, ActivationView{Activation: a, ActivatedAtSeconds: a.ActivatedAt.Seconds()})
	}
	return v
}

// LogStatus is the final outcome stored in a simulation log.
type LogStatus string

const (
	LogCompleted LogStatus = "completed"
	LogAborted   LogStatus = "aborted"
)

// Conditions is the condensed reading kept in simulation logs.
type Conditions struct {
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	SoilMoisture float64 `json:"soilMoisture"`
	GasLevel     float64 `json:"gasLevel"`
}

func conditionsOf(r engine.Reading) Conditions {
	c := Conditions{Temperature: r.Temperature, Humidity: r.Humidity, GasLevel: r.CO2}
	if r.SoilMoisture != nil {
		c.SoilMoisture = *r.SoilMoisture
	}
	return c
}

// Log is the history record of a finished session.
type Log struct {
	ID              string     `json:"id"`
	ZoneID          string     `json:"zoneId"`
	Timestamp       time.Time  `json:"timestamp"`
	Type            string     `json:"type"`
	Scenario        string     `json:"scenario"`
	CropType        string     `json:"cropType"`
	DurationSeconds float64    `json:"duration"`
	StartConditions Conditions `json:"startConditions"`
	EndConditions   Conditions `json:"endConditions"`
	ActuatorActions []string   `json:"actuatorActions"`
	EfficiencyScore float64    `json:"efficiencyScore"`
	Status          LogStatus  `json:"status"`
}

// Log builds the history record. ok is false while the session is not finished.
func (s Session) Log() (Log, bool) {
	if !s.status.Terminal() {
		return Log{}, false
	}
	status := LogCompleted
	if s.status == StatusCancelled {
		status = LogAborted
	}
	actions := make([]string, 0, s.fired)
	for _, a := range s.plan[:s.fired] {
		if a.Intensity <= 0 {
			continue
		}
		actions = append(actions, fmt.Sprintf("%s: %s (%.0f%%)", a.System, a.Action, a.Intensity))
	}
	return Log{
		ID:              s.id,
		ZoneID:          s.zoneID,
		Timestamp:       s.startedAt,
		Type:            "simulation",
		Scenario:        s.scenario.Name,
		CropType:        s.crop,
		DurationSeconds: s.endedAt.Sub(s.startedAt).Seconds(),
		StartConditions: conditionsOf(s.baseline),
		EndConditions:   conditionsOf(s.input),
		ActuatorActions: actions,
		EfficiencyScore: s.result.EfficiencyScore,
		Status:          status,
	}, true
}

// DeviceActuator is one actuator instruction for field devices.
type DeviceActuator struct {
	Name       engine.System `json:"name"`
	Action     string        `json:"action"`
	Intensity  float64       `json:"intensity"`
	ActivateAt float64       `json:"activateAt"`
}

// DevicePayload is the message field controllers consume to replay a session.
type DevicePayload struct {
	ZoneID     string           `json:"zoneId"`
	ScenarioID string           `json:"scenarioId"`
	Timestamp  int64            `json:"timestamp"`
	Duration   float64          `json:"duration"`
	Conditions engine.Reading   `json:"conditions"`
	Actuators  []DeviceActuator `json:"actuators"`
}

func (s Session) DevicePayload() DevicePayload {
	p := DevicePayload{
		ZoneID:     s.zoneID,
		ScenarioID: s.scenario.ID,
		Timestamp:  s.startedAt.UnixMilli(),
		Duration:   s.duration.Seconds(),
		Conditions: s.input,
		Actuators:  make([]DeviceActuator, 0, len(s.plan)),
	}
	for _, a := range s.plan {
		p.Actuators = append(p.Actuators, DeviceActuator{
			Name: a.System, Action: a.Action, Intensity: a.Intensity, ActivateAt: a.ActivatedAt.Seconds(),
		})
	}
	return p
}
