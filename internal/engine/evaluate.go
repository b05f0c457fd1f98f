// v3
// internal/engine/evaluate.go
package engine

import "math"

// Evaluate derives the recommended actuator actions, recovery time and efficiency
// score for a reading against a crop profile. It is pure: the same inputs always
// produce the same Result.
func Evaluate(current Reading, optimal Profile) Result {
	ev := evaluation{current: current, deltas: make(map[Dimension]float64, len(controlTable))}
	recs := make([]Recommendation, 0, 4)
	for _, rl := range controlTable {
		v, ok := rl.value(current)
		if !ok {
			continue
		}
		b, ok := rl.bounds(optimal)
		if !ok {
			continue
		}
		delta := v - b.Optimal
		ev.deltas[rl.dim] = delta
		if !fires(rl, delta, ev) {
			continue
		}
		resp := rl.above
		if delta < 0 {
			resp = rl.below
		}
		if resp == nil {
			continue
		}
		recs = appendResponse(recs, rl.dim, resp, math.Abs(delta), b.Optimal, current)
	}

	scores := Scores{
		Temperature: score(100 - math.Abs(ev.deltas[Temperature])*10),
		Humidity:    score(100 - math.Abs(ev.deltas[Humidity])*2),
		CO2:         score(100 - math.Abs(ev.deltas[CO2])/200*100),
		Light:       score(100 - math.Abs(ev.deltas[Light])/100*100),
	}
	return Result{
		Recommendations:       recs,
		EstimatedRecoveryTime: recoveryTime(recs),
		EfficiencyScore:       (scores.Temperature + scores.Humidity + scores.CO2 + scores.Light) / 4,
		Scores:                scores,
	}
}

func fires(rl rule, delta float64, ev evaluation) bool {
	if rl.trigger != nil {
		return rl.trigger(delta, ev)
	}
	return math.Abs(delta) > rl.tolerance
}

func appendResponse(recs []Recommendation, dim Dimension, resp *response, abs, optimal float64, current Reading) []Recommendation {
	recs = append(recs, Recommendation{
		System:          resp.system,
		Dimension:       dim,
		Action:          resp.action,
		Intensity:       clamp(resp.intensity(abs, optimal)),
		EstimatedImpact: resp.impact(abs),
		TimeToEffect:    minutes(resp.tte(abs)),
	})
	f := resp.followUp
	if f == nil || (f.skip != nil && f.skip(current)) {
		return recs
	}
	return append(recs, Recommendation{
		System:          f.system,
		Dimension:       dim,
		Action:          f.action,
		Intensity:       clamp(f.intensity),
		EstimatedImpact: f.impact,
		TimeToEffect:    f.tte,
	})
}

func recoveryTime(recs []Recommendation) float64 {
	var out float64
	for _, r := range recs {
		if r.TimeToEffect > out {
			out = r.TimeToEffect
		}
	}
	return out
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func score(v float64) float64 { return clamp(v) }

// minutes keeps a time-to-effect finite and non-negative. Overflow on huge
// deviations saturates at the largest float.
func minutes(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	}
	return v
}
