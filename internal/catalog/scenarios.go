// v1
// internal/catalog/scenarios.go
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

// ErrUnknownScenario is returned when a preset id is not part of the catalog.
var ErrUnknownScenario = errors.New("unknown scenario")

// Conditions are the environmental values a preset forces onto a zone.
// GasLevel is the CO2 concentration in ppm.
type Conditions struct {
	Temperature  float64  `json:"temperature"`
	Humidity     float64  `json:"humidity"`
	SoilMoisture float64  `json:"soilMoisture"`
	GasLevel     float64  `json:"gasLevel"`
	Light        *float64 `json:"light,omitempty"`
}

// ExpectedActuators is the actuator state the preset is designed to provoke.
type ExpectedActuators struct {
	Fan       bool `json:"fan"`
	Pump      bool `json:"pump"`
	Heater    bool `json:"heater"`
	Misting   bool `json:"misting"`
	Lighting  bool `json:"lighting"`
	CO2Dosing bool `json:"co2dosing"`
}

type Scenario struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Icon              string            `json:"icon"`
	Color             string            `json:"color"`
	Conditions        Conditions        `json:"conditions"`
	ExpectedActuators ExpectedActuators `json:"expectedActuators"`
	Reasoning         []string          `json:"reasoning"`
}

// Apply overlays the preset conditions on a baseline reading. Values the preset
// does not define are kept from the baseline.
func (s Scenario) Apply(base engine.Reading) engine.Reading {
	out := base
	out.Temperature = s.Conditions.Temperature
	out.Humidity = s.Conditions.Humidity
	out.CO2 = s.Conditions.GasLevel
	soil := s.Conditions.SoilMoisture
	out.SoilMoisture = &soil
	if s.Conditions.Light != nil {
		out.Light = *s.Conditions.Light
	}
	if base.HeatingLevel != nil {
		h := *base.HeatingLevel
		out.HeatingLevel = &h
	}
	return out
}

// ActuatorsFromState maps an engine actuator state onto the preset's boolean view.
func ActuatorsFromState(active map[engine.System]bool) ExpectedActuators {
	return ExpectedActuators{
		Fan:       active[engine.Ventilation],
		Pump:      active[engine.Irrigation],
		Heater:    active[engine.Heating],
		Misting:   active[engine.Misting],
		Lighting:  active[engine.Lighting],
		CO2Dosing: active[engine.CO2Dosing],
	}
}

func lightLevel(v float64) *float64 { return &v }

var scenarios = map[string]Scenario{
	"heatwave": {
		ID: "heatwave", Name: "Heatwave", Description: "Extreme high temperature with low humidity",
		Icon: "🔥", Color: "#ef4444",
		Conditions:        Conditions{Temperature: 38, Humidity: 35, SoilMoisture: 25, GasLevel: 400},
		ExpectedActuators: ExpectedActuators{Fan: true, Misting: true},
		Reasoning: []string{
			"Temperature exceeds optimal range by 8°C",
			"Ventilation fans will activate to cool greenhouse",
			"Misting system will increase humidity and cool air",
			"Irrigation may activate if soil moisture drops below 30%",
		},
	},
	"drought": {
		ID: "drought", Name: "Drought", Description: "Very low soil moisture with high temperature",
		Icon: "🏜️", Color: "#f97316",
		Conditions:        Conditions{Temperature: 32, Humidity: 40, SoilMoisture: 15, GasLevel: 400},
		ExpectedActuators: ExpectedActuators{Fan: true, Pump: true},
		Reasoning: []string{
			"Critical soil moisture level detected (15%)",
			"Temperature 2°C above optimal, requiring ventilation",
			"Irrigation system will activate immediately",
			"Continuous monitoring to prevent plant stress",
		},
	},
	"drysoil": {
		ID: "drysoil", Name: "Dry Soil", Description: "Low soil moisture requiring irrigation",
		Icon: "🌵", Color: "#eab308",
		Conditions:        Conditions{Temperature: 25, Humidity: 60, SoilMoisture: 20, GasLevel: 400},
		ExpectedActuators: ExpectedActuators{Pump: true},
		Reasoning: []string{
			"Soil moisture below optimal threshold (20%)",
			"Temperature and humidity within acceptable range",
			"Irrigation system will activate to restore moisture",
			"Other systems remain in normal operation",
		},
	},
	"coldsnap": {
		ID: "coldsnap", Name: "Cold Snap", Description: "Sudden temperature drop requiring heating",
		Icon: "❄️", Color: "#3b82f6",
		Conditions:        Conditions{Temperature: 12, Humidity: 75, SoilMoisture: 50, GasLevel: 400},
		ExpectedActuators: ExpectedActuators{Heater: true},
		Reasoning: []string{
			"Temperature 18°C below optimal range",
			"Heating system will activate to warm greenhouse",
			"Ventilation disabled to retain heat",
			"Risk of plant damage if temperature continues to drop",
		},
	},
	"highhumidity": {
		ID: "highhumidity", Name: "High Humidity", Description: "Excessive moisture in the air",
		Icon: "💧", Color: "#06b6d4",
		Conditions:        Conditions{Temperature: 28, Humidity: 90, SoilMoisture: 55, GasLevel: 400},
		ExpectedActuators: ExpectedActuators{Fan: true},
		Reasoning: []string{
			"Humidity exceeds optimal range (90%)",
			"Risk of fungal diseases and mold growth",
			"Ventilation fans will activate for dehumidification",
			"Air circulation increases to prevent condensation",
		},
	},
	"lowlight": {
		ID: "lowlight", Name: "Low Light", Description: "Insufficient light for photosynthesis",
		Icon: "☁️", Color: "#6b7280",
		Conditions:        Conditions{Temperature: 24, Humidity: 65, SoilMoisture: 45, GasLevel: 400, Light: lightLevel(120)},
		ExpectedActuators: ExpectedActuators{Lighting: true},
		Reasoning: []string{
			"Light intensity below photosynthesis threshold",
			"Supplemental lighting will activate",
			"Optimal for cloudy days or short winter periods",
			"Supports continuous plant growth and development",
		},
	},
	"co2deficiency": {
		ID: "co2deficiency", Name: "CO₂ Deficiency", Description: "Low CO₂ levels affecting growth",
		Icon: "🌱", Color: "#22c55e",
		Conditions:        Conditions{Temperature: 26, Humidity: 70, SoilMoisture: 50, GasLevel: 300},
		ExpectedActuators: ExpectedActuators{CO2Dosing: true},
		Reasoning: []string{
			"CO₂ level below optimal (300 ppm)",
			"CO₂ dosing system will activate",
			"Enhanced photosynthesis and growth rate",
			"Monitoring to maintain 400-600 ppm range",
		},
	},
}

// Lookup returns the preset with the given id.
func Lookup(id string) (Scenario, error) {
	s, ok := scenarios[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %s", ErrUnknownScenario, id)
	}
	s.Reasoning = append([]string(nil), s.Reasoning...)
	return s, nil
}

// Scenarios returns every preset sorted by id.
func Scenarios() []Scenario {
	ids := make([]string, 0, len(scenarios))
	for id := range scenarios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Scenario, 0, len(ids))
	for _, id := range ids {
		s, _ := Lookup(id)
		out = append(out, s)
	}
	return out
}
