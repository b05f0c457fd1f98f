// v1
// internal/catalog/profiles.go
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

// ErrUnknownCrop is returned when a crop id has no optimal-condition profile.
var ErrUnknownCrop = errors.New("unknown crop type")

var defaultSoil = engine.Bounds{Min: 30, Optimal: 50, Max: 70}

var profiles = map[string]engine.Profile{
	"pepper": {
		Temperature: engine.Bounds{Min: 18, Optimal: 24, Max: 28},
		Humidity:    engine.Bounds{Min: 60, Optimal: 70, Max: 80},
		CO2:         engine.Bounds{Min: 800, Optimal: 1000, Max: 1200},
		Light:       engine.Bounds{Min: 200, Optimal: 300, Max: 400},
	},
	"tomato": {
		Temperature: engine.Bounds{Min: 16, Optimal: 22, Max: 26},
		Humidity:    engine.Bounds{Min: 65, Optimal: 75, Max: 85},
		CO2:         engine.Bounds{Min: 800, Optimal: 1000, Max: 1200},
		Light:       engine.Bounds{Min: 250, Optimal: 350, Max: 450},
	},
	"cucumber": {
		Temperature: engine.Bounds{Min: 18, Optimal: 25, Max: 30},
		Humidity:    engine.Bounds{Min: 70, Optimal: 80, Max: 90},
		CO2:         engine.Bounds{Min: 800, Optimal: 1000, Max: 1200},
		Light:       engine.Bounds{Min: 200, Optimal: 300, Max: 400},
	},
	"lettuce": {
		Temperature: engine.Bounds{Min: 12, Optimal: 18, Max: 22},
		Humidity:    engine.Bounds{Min: 50, Optimal: 60, Max: 70},
		CO2:         engine.Bounds{Min: 600, Optimal: 800, Max: 1000},
		Light:       engine.Bounds{Min: 150, Optimal: 250, Max: 350},
	},
}

// NormalizeCrop maps user input onto a catalog key.
func NormalizeCrop(crop string) string {
	return strings.ToLower(strings.TrimSpace(crop))
}

// Profile returns a copy of the optimal-condition profile for the crop.
func Profile(crop string) (engine.Profile, error) {
	p, ok := profiles[NormalizeCrop(crop)]
	if !ok {
		return engine.Profile{}, fmt.Errorf("%w: %s", ErrUnknownCrop, crop)
	}
	soil := defaultSoil
	p.SoilMoisture = &soil
	return p, nil
}

// Crops lists the known crop ids in sorted order.
func Crops() []string {
	out := make([]string, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
