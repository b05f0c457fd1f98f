// v0
// internal/engine/evaluate_test.go
package engine

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pepper() Profile {
	return Profile{
		Temperature:  Bounds{Min: 18, Optimal: 24, Max: 28},
		Humidity:     Bounds{Min: 60, Optimal: 70, Max: 80},
		CO2:          Bounds{Min: 800, Optimal: 1000, Max: 1200},
		Light:        Bounds{Min: 200, Optimal: 300, Max: 400},
		SoilMoisture: &Bounds{Min: 30, Optimal: 50, Max: 70},
	}
}

func ptr(v float64) *float64 { return &v }

func TestEvaluateIsIdempotent(t *testing.T) {
	r := Reading{Temperature: 31.3, Humidity: 52, CO2: 870, Light: 410, SoilMoisture: ptr(22)}
	a := Evaluate(r, pepper())
	b := Evaluate(r, pepper())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical results, got %+v and %+v", a, b)
	}
}

func TestEvaluateAtOptimumIsNoOp(t *testing.T) {
	p := pepper()
	res := Evaluate(p.Optimal(), p)
	if len(res.Recommendations) != 0 {
		t.Fatalf("expected no recommendations, got %+v", res.Recommendations)
	}
	if res.EstimatedRecoveryTime != 0 {
		t.Fatalf("expected recovery 0, got %v", res.EstimatedRecoveryTime)
	}
	if res.EfficiencyScore != 100 {
		t.Fatalf("expected score 100, got %v", res.EfficiencyScore)
	}
}

func TestTemperatureIntensityMonotonic(t *testing.T) {
	p := pepper()
	for _, sign := range []float64{1, -1} {
		prev := -1.0
		for d := 1.5; d <= 40; d += 0.5 {
			r := p.Optimal()
			r.Temperature = p.Temperature.Optimal + sign*d
			res := Evaluate(r, p)
			require.NotEmpty(t, res.Recommendations)
			got := res.Recommendations[0].Intensity
			if got < prev {
				t.Fatalf("intensity decreased at |Δ|=%.1f sign=%v: %v < %v", d, sign, got, prev)
			}
			if got < 0 || got > 100 {
				t.Fatalf("intensity out of range: %v", got)
			}
			prev = got
		}
	}
}

func TestEfficiencyScoreFloor(t *testing.T) {
	extremes := []Reading{
		{Temperature: 1e6, Humidity: -1e6, CO2: 1e9, Light: -1e9},
		{Temperature: -273, Humidity: 0, CO2: 0, Light: 0},
		{Temperature: 24.5, Humidity: 71, CO2: 1010, Light: 305},
	}
	for _, r := range extremes {
		res := Evaluate(r, pepper())
		if res.EfficiencyScore < 0 || res.EfficiencyScore > 100 {
			t.Fatalf("score out of range for %+v: %v", r, res.EfficiencyScore)
		}
	}
}

func TestHeatwaveTemperature(t *testing.T) {
	p := pepper()
	r := p.Optimal()
	r.Temperature = 38
	res := Evaluate(r, p)
	require.GreaterOrEqual(t, len(res.Recommendations), 2)
	vent := res.Recommendations[0]
	assert.Equal(t, Ventilation, vent.System)
	assert.Equal(t, "Increase to cool down", vent.Action)
	assert.InDelta(t, 100, vent.Intensity, 1e-9)
	assert.InDelta(t, 70, vent.TimeToEffect, 1e-9)
	assert.Equal(t, "14.0°C reduction", vent.EstimatedImpact)

	heat := res.Recommendations[1]
	assert.Equal(t, Heating, heat.System)
	assert.Equal(t, 0.0, heat.Intensity)
	assert.InDelta(t, 2, heat.TimeToEffect, 1e-9)
	assert.InDelta(t, 70, res.EstimatedRecoveryTime, 1e-9)
}

func TestDryHumidity(t *testing.T) {
	p := pepper()
	r := p.Optimal()
	r.Humidity = 35
	res := Evaluate(r, p)
	require.Len(t, res.Recommendations, 1)
	m := res.Recommendations[0]
	assert.Equal(t, Misting, m.System)
	assert.InDelta(t, 100, m.Intensity, 1e-9)
	assert.InDelta(t, 52.5, m.TimeToEffect, 1e-9)
	assert.InDelta(t, 30, res.Scores.Humidity, 1e-9)
}

func TestHeatingSuppressionSkippedWhenHeaterOff(t *testing.T) {
	p := pepper()
	r := p.Optimal()
	r.Temperature = 27
	r.HeatingLevel = ptr(0)
	res := Evaluate(r, p)
	if len(res.Recommendations) != 1 || res.Recommendations[0].System != Ventilation {
		t.Fatalf("expected a single ventilation action, got %+v", res.Recommendations)
	}
	r.HeatingLevel = ptr(35)
	res = Evaluate(r, p)
	if len(res.Recommendations) != 2 || res.Recommendations[1].System != Heating {
		t.Fatalf("expected heating suppression after ventilation, got %+v", res.Recommendations)
	}
}

func TestColdPathAppendsVentilationMinimum(t *testing.T) {
	p := pepper()
	r := p.Optimal()
	r.Temperature = 20
	res := Evaluate(r, p)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, Heating, res.Recommendations[0].System)
	assert.InDelta(t, 90, res.Recommendations[0].Intensity, 1e-9)
	assert.InDelta(t, 32, res.Recommendations[0].TimeToEffect, 1e-9)
	assert.Equal(t, Ventilation, res.Recommendations[1].System)
	assert.InDelta(t, 20, res.Recommendations[1].Intensity, 1e-9)
	assert.InDelta(t, 3, res.Recommendations[1].TimeToEffect, 1e-9)
}

func TestDimensionOrder(t *testing.T) {
	p := pepper()
	r := Reading{Temperature: 30, Humidity: 90, CO2: 700, Light: 250, SoilMoisture: ptr(10)}
	res := Evaluate(r, p)
	var got []Dimension
	for _, rec := range res.Recommendations {
		if len(got) == 0 || got[len(got)-1] != rec.Dimension {
			got = append(got, rec.Dimension)
		}
	}
	want := []Dimension{Temperature, Humidity, CO2, Light, SoilMoisture}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
}

func TestCO2AndLightFormulas(t *testing.T) {
	p := pepper()
	r := p.Optimal()
	r.CO2 = 800
	r.Light = 200
	res := Evaluate(r, p)
	require.Len(t, res.Recommendations, 2)
	co2 := res.Recommendations[0]
	assert.Equal(t, CO2Dosing, co2.System)
	assert.InDelta(t, 100, co2.Intensity, 1e-9)
	assert.InDelta(t, 4, co2.TimeToEffect, 1e-9)
	light := res.Recommendations[1]
	assert.Equal(t, Lighting, light.System)
	assert.InDelta(t, 100.0/3, light.Intensity, 1e-9)
	assert.InDelta(t, 1, light.TimeToEffect, 1e-9)

	r = p.Optimal()
	r.CO2 = 1100
	r.Light = 600
	res = Evaluate(r, p)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, Ventilation, res.Recommendations[0].System)
	assert.InDelta(t, 55, res.Recommendations[0].Intensity, 1e-9)
	assert.InDelta(t, 2.5, res.Recommendations[0].TimeToEffect, 1e-9)
	assert.Equal(t, Curtain, res.Recommendations[1].System)
	assert.InDelta(t, 80, res.Recommendations[1].Intensity, 1e-9)
}

func TestSoilIrrigationTriggers(t *testing.T) {
	p := pepper()
	r := p.Optimal()
	r.SoilMoisture = ptr(35)
	if res := Evaluate(r, p); len(res.Recommendations) != 0 {
		t.Fatalf("moderately dry soil alone should not irrigate: %+v", res.Recommendations)
	}
	r.Temperature = 30
	res := Evaluate(r, p)
	last := res.Recommendations[len(res.Recommendations)-1]
	if last.System != Irrigation || last.Intensity != 100 {
		t.Fatalf("expected irrigation when hot and moderately dry, got %+v", last)
	}
	r = p.Optimal()
	r.SoilMoisture = nil
	if res := Evaluate(r, p); len(res.Recommendations) != 0 {
		t.Fatalf("missing soil reading must not irrigate")
	}
}

func TestActiveSystems(t *testing.T) {
	p := pepper()
	r := p.Optimal()
	r.Temperature = 38
	active := Evaluate(r, p).Active()
	if !active[Ventilation] {
		t.Fatalf("ventilation should be active")
	}
	if active[Heating] {
		t.Fatalf("a zero-intensity suppression must not mark heating active")
	}
	if len(active) != len(Systems()) {
		t.Fatalf("expected every system in the map, got %d", len(active))
	}
}

func TestHugeFiniteReadingStaysFinite(t *testing.T) {
	for _, temp := range []float64{1e308, -1e308} {
		res := Evaluate(Reading{Temperature: temp, Humidity: 1e308, CO2: 1e308, Light: 1e308}, pepper())
		require.NotEmpty(t, res.Recommendations)
		for _, rec := range res.Recommendations {
			assert.False(t, math.IsInf(rec.TimeToEffect, 0) || math.IsNaN(rec.TimeToEffect), "%s tte %v", rec.System, rec.TimeToEffect)
			assert.GreaterOrEqual(t, rec.TimeToEffect, 0.0)
			assert.LessOrEqual(t, rec.Intensity, 100.0)
		}
		assert.Equal(t, math.MaxFloat64, res.EstimatedRecoveryTime)
		assert.Equal(t, 0.0, res.EfficiencyScore)
	}
}
