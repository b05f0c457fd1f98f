// v3
// internal/engine/rules.go
package engine

import (
	"fmt"
	"math"
)

// response describes what to recommend for one side of the optimum.
type response struct {
	system    System
	action    string
	intensity func(abs, optimal float64) float64
	tte       func(abs float64) float64
	impact    func(abs float64) string
	followUp  *followUp
}

// followUp is a fixed secondary action appended right after the primary one.
type followUp struct {
	system    System
	action    string
	intensity float64
	tte       float64
	impact    string
	skip      func(r Reading) bool
}

// rule is one row of the control table. The order of the table is the order
// recommendations are emitted in.
type rule struct {
	dim       Dimension
	tolerance float64
	value     func(r Reading) (float64, bool)
	bounds    func(p Profile) (Bounds, bool)
	above     *response
	below     *response
	// trigger replaces the plain |Δ| > tolerance check when set.
	trigger func(delta float64, ev evaluation) bool
}

// evaluation carries the deltas already computed for the current call so later
// rules can depend on earlier dimensions.
type evaluation struct {
	current Reading
	deltas  map[Dimension]float64
}

var controlTable = []rule{
	{
		dim:       Temperature,
		tolerance: 1,
		value:     func(r Reading) (float64, bool) { return r.Temperature, true },
		bounds:    func(p Profile) (Bounds, bool) { return p.Temperature, true },
		above: &response{
			system:    Ventilation,
			action:    "Increase to cool down",
			intensity: func(abs, _ float64) float64 { return 50 + abs*10 },
			tte:       func(abs float64) float64 { return abs * 5 },
			impact:    func(abs float64) string { return fmt.Sprintf("%.1f°C reduction", abs) },
			followUp: &followUp{
				system: Heating, action: "Reduce or turn off", intensity: 0, tte: 2,
				impact: "Stop heat generation",
				skip:   heatingAlreadyOff,
			},
		},
		below: &response{
			system:    Heating,
			action:    "Increase to warm up",
			intensity: func(abs, _ float64) float64 { return 50 + abs*10 },
			tte:       func(abs float64) float64 { return abs * 8 },
			impact:    func(abs float64) string { return fmt.Sprintf("%.1f°C increase", abs) },
			followUp: &followUp{
				system: Ventilation, action: "Reduce to minimum", intensity: 20, tte: 3,
				impact: "Retain heat",
			},
		},
	},
	{
		dim:       Humidity,
		tolerance: 5,
		value:     func(r Reading) (float64, bool) { return r.Humidity, true },
		bounds:    func(p Profile) (Bounds, bool) { return p.Humidity, true },
		above: &response{
			system:    Ventilation,
			action:    "Increase for dehumidification",
			intensity: func(abs, _ float64) float64 { return 40 + abs*2 },
			tte:       func(abs float64) float64 { return abs * 2 },
			impact:    func(abs float64) string { return fmt.Sprintf("%.0f%% reduction", abs) },
		},
		below: &response{
			system:    Misting,
			action:    "Activate to increase humidity",
			intensity: func(abs, _ float64) float64 { return 30 + abs*2 },
			tte:       func(abs float64) float64 { return abs * 1.5 },
			impact:    func(abs float64) string { return fmt.Sprintf("%.0f%% increase", abs) },
		},
	},
	{
		dim:       CO2,
		tolerance: 50,
		value:     func(r Reading) (float64, bool) { return r.CO2, true },
		bounds:    func(p Profile) (Bounds, bool) { return p.CO2, true },
		above: &response{
			system:    Ventilation,
			action:    "Increase to reduce CO2",
			intensity: func(abs, _ float64) float64 { return 40 + abs/200*30 },
			tte:       func(abs float64) float64 { return abs / 40 },
			impact:    func(abs float64) string { return fmt.Sprintf("%.0f ppm reduction", abs) },
		},
		below: &response{
			system:    CO2Dosing,
			action:    "Increase CO2 injection",
			intensity: func(abs, _ float64) float64 { return 50 + abs/200*50 },
			tte:       func(abs float64) float64 { return abs / 50 },
			impact:    func(abs float64) string { return fmt.Sprintf("%.0f ppm increase", abs) },
		},
	},
	{
		dim:       Light,
		tolerance: 20,
		value:     func(r Reading) (float64, bool) { return r.Light, true },
		bounds:    func(p Profile) (Bounds, bool) { return p.Light, true },
		above: &response{
			system:    Curtain,
			action:    "Partially close to reduce light",
			intensity: func(abs, opt float64) float64 { return math.Min(80, ratio(abs, opt)*100) },
			tte:       func(float64) float64 { return 2 },
			impact:    func(abs float64) string { return fmt.Sprintf("%.0f μmol reduction", abs) },
		},
		below: &response{
			system:    Lighting,
			action:    "Increase intensity",
			intensity: func(abs, opt float64) float64 { return ratio(abs, opt) * 100 },
			tte:       func(float64) float64 { return 1 },
			impact:    func(abs float64) string { return fmt.Sprintf("%.0f μmol increase", abs) },
		},
	},
	{
		dim:       SoilMoisture,
		tolerance: 20,
		value: func(r Reading) (float64, bool) {
			if r.SoilMoisture == nil {
				return 0, false
			}
			return *r.SoilMoisture, true
		},
		bounds: func(p Profile) (Bounds, bool) {
			if p.SoilMoisture == nil {
				return Bounds{}, false
			}
			return *p.SoilMoisture, true
		},
		below: &response{
			system:    Irrigation,
			action:    "Start watering cycle",
			intensity: func(float64, float64) float64 { return 100 },
			tte:       func(abs float64) float64 { return abs / 2 },
			impact:    func(abs float64) string { return fmt.Sprintf("%.0f%% moisture increase", abs) },
		},
		// Dry soil, or moderately dry soil while the zone is overheating.
		trigger: func(delta float64, ev evaluation) bool {
			if delta < -20 {
				return true
			}
			return delta < -10 && ev.deltas[Temperature] > 5
		},
	},
}

func heatingAlreadyOff(r Reading) bool {
	return r.HeatingLevel != nil && *r.HeatingLevel <= 0
}

// ratio guards the light rule against a zero optimum.
func ratio(abs, optimal float64) float64 {
	if optimal == 0 {
		return 1
	}
	return abs / math.Abs(optimal)
}
