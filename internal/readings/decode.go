// v1
// internal/readings/decode.go
package readings

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

// ErrBadPayload marks a sensor message that cannot be turned into a reading.
var ErrBadPayload = errors.New("bad reading payload")

// wireReading is the JSON sensors publish. gasLevel is accepted for co2.
type wireReading struct {
	ZoneID       string   `json:"zoneId,omitempty"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	CO2          *float64 `json:"co2"`
	GasLevel     *float64 `json:"gasLevel"`
	Light        *float64 `json:"light"`
	SoilMoisture *float64 `json:"soilMoisture"`
	HeatingLevel *float64 `json:"heatingLevel"`
	Timestamp    int64    `json:"timestamp,omitempty"` // unix ms
}

// DecodeSnapshot parses a sensor payload. zone overrides the body zoneId when set.
func DecodeSnapshot(raw []byte, zone, source string) (Snapshot, error) {
	var w wireReading
	if err := json.Unmarshal(raw, &w); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if zone == "" {
		zone = w.ZoneID
	}
	co2 := w.CO2
	if co2 == nil {
		co2 = w.GasLevel
	}
	missing := ""
	switch {
	case zone == "":
		missing = "zoneId"
	case w.Temperature == nil:
		missing = "temperature"
	case w.Humidity == nil:
		missing = "humidity"
	case co2 == nil:
		missing = "co2"
	case w.Light == nil:
		missing = "light"
	}
	if missing != "" {
		return Snapshot{}, fmt.Errorf("%w: missing %s", ErrBadPayload, missing)
	}
	s := Snapshot{
		ZoneID: zone,
		Reading: engine.Reading{
			Temperature:  *w.Temperature,
			Humidity:     *w.Humidity,
			CO2:          *co2,
			Light:        *w.Light,
			SoilMoisture: w.SoilMoisture,
			HeatingLevel: w.HeatingLevel,
		},
		Source: source,
	}
	if w.Timestamp > 0 {
		s.ObservedAt = time.UnixMilli(w.Timestamp).UTC()
	}
	return s, nil
}
