// v2
// internal/engine/models.go
package engine

// System names a controllable actuator group inside a zone.
type System string

const (
	Ventilation System = "Ventilation"
	Heating     System = "Heating"
	Misting     System = "Misting"
	Irrigation  System = "Irrigation"
	Lighting    System = "Lighting"
	Curtain     System = "Curtain"
	CO2Dosing   System = "CO2 Dosing"
)

// Systems lists every actuator group in display order.
func Systems() []System {
	return []System{Ventilation, Heating, Misting, Irrigation, Lighting, Curtain, CO2Dosing}
}

// Dimension identifies the measured quantity a recommendation responds to.
type Dimension string

const (
	Temperature  Dimension = "temperature"
	Humidity     Dimension = "humidity"
	CO2          Dimension = "co2"
	Light        Dimension = "light"
	SoilMoisture Dimension = "soilMoisture"
)

// Reading is a snapshot of the environmental sensors of one zone.
// SoilMoisture and HeatingLevel are optional; nil means not reported.
type Reading struct {
	Temperature  float64  `json:"temperature"`  // °C
	Humidity     float64  `json:"humidity"`     // %
	CO2          float64  `json:"co2"`          // ppm
	Light        float64  `json:"light"`        // μmol·m⁻²·s⁻¹
	SoilMoisture *float64 `json:"soilMoisture,omitempty"`
	HeatingLevel *float64 `json:"heatingLevel,omitempty"` // current heater output, %
}

// Bounds holds the acceptable range and target of one dimension.
type Bounds struct {
	Min     float64 `json:"min"`
	Optimal float64 `json:"optimal"`
	Max     float64 `json:"max"`
}

// Profile is the optimal-condition profile of a crop.
type Profile struct {
	Temperature  Bounds  `json:"temperature"`
	Humidity     Bounds  `json:"humidity"`
	CO2          Bounds  `json:"co2"`
	Light        Bounds  `json:"light"`
	SoilMoisture *Bounds `json:"soilMoisture,omitempty"`
}

// Optimal returns the profile targets as a reading, which is the no-op input of Evaluate.
func (p Profile) Optimal() Reading {
	r := Reading{
		Temperature: p.Temperature.Optimal,
		Humidity:    p.Humidity.Optimal,
		CO2:         p.CO2.Optimal,
		Light:       p.Light.Optimal,
	}
	if p.SoilMoisture != nil {
		v := p.SoilMoisture.Optimal
		r.SoilMoisture = &v
	}
	return r
}

type Recommendation struct {
	System          System    `json:"system"`
	Dimension       Dimension `json:"dimension"`
	Action          string    `json:"action"`
	Intensity       float64   `json:"intensity"` // 0..100
	EstimatedImpact string    `json:"estimatedImpact"`
	TimeToEffect    float64   `json:"timeToEffect"` // minutes
}

// Result is the output of one evaluation.
type Result struct {
	Recommendations       []Recommendation `json:"recommendations"`
	EstimatedRecoveryTime float64          `json:"estimatedRecoveryTime"` // minutes
	EfficiencyScore       float64          `json:"efficiencyScore"`
	Scores                Scores           `json:"scores"`
}

// Scores keeps the per-dimension sub-scores the efficiency score is averaged from.
type Scores struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	CO2         float64 `json:"co2"`
	Light       float64 `json:"light"`
}

// Active reports, per system, whether any recommendation drives it with a non-zero intensity.
// Every system is present in the map.
func (r Result) Active() map[System]bool {
	out := make(map[System]bool, len(Systems()))
	for _, s := range Systems() {
		out[s] = false
	}
	for _, rec := range r.Recommendations {
		if rec.Intensity > 0 {
			out[rec.System] = true
		}
	}
	return out
}
