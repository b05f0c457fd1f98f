// v1
// internal/httpapi/simulations.go
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/catalog"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/readings"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
)

const maxSimulationDuration = time.Hour

type startRequest struct {
	Scenario        string          `json:"scenario"`
	DurationSeconds float64         `json:"durationSeconds"`
	Baseline        *engine.Reading `json:"baseline"`
}

// startSimulation runs a scenario on a zone. The baseline is taken from the
// request, then the live snapshot, then the crop optimum.
func (a *api) startSimulation(w http.ResponseWriter, r *http.Request) {
	zone := mux.Vars(r)["zone"]
	crop, err := a.zoneCrop(zone)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	var req startRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(a.Logger, w, err)
		return
	}
	if req.Scenario == "" {
		writeError(a.Logger, w, badRequest("scenario is required"))
		return
	}
	sc, err := catalog.Lookup(req.Scenario)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	profile, err := catalog.Profile(crop)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	duration := a.SimulationDuration
	if req.DurationSeconds != 0 {
		duration = time.Duration(req.DurationSeconds * float64(time.Second))
		if duration <= 0 || duration > maxSimulationDuration {
			writeError(a.Logger, w, badRequest("durationSeconds must be within (0, %.0f]", maxSimulationDuration.Seconds()))
			return
		}
	}
	baseline := req.Baseline
	if baseline == nil {
		snap, err := a.Hub.Snapshot(r.Context(), zone)
		switch {
		case err == nil:
			baseline = &snap.Reading
		case !errors.Is(err, readings.ErrNoSnapshot):
			writeError(a.Logger, w, err)
			return
		}
	}

	s, err := a.Runner.Start(session.Spec{
		ZoneID:   zone,
		CropType: crop,
		Scenario: sc,
		Profile:  profile,
		Baseline: baseline,
		Duration: duration,
	})
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusCreated, s.View(a.Runner.Now()))
}

func (a *api) currentSimulation(w http.ResponseWriter, r *http.Request) {
	s, _, err := a.Runner.Get(mux.Vars(r)["zone"])
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusOK, s.View(a.Runner.Now()))
}

func (a *api) stopSimulation(w http.ResponseWriter, r *http.Request) {
	s, err := a.Runner.Stop(mux.Vars(r)["zone"])
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusOK, s.View(a.Runner.Now()))
}

func (a *api) simulationHistory(w http.ResponseWriter, r *http.Request) {
	zone := mux.Vars(r)["zone"]
	if _, err := a.zoneCrop(zone); err != nil {
		writeError(a.Logger, w, err)
		return
	}
	limit := a.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(a.Logger, w, badRequest("invalid limit %q", raw))
			return
		}
		if n < limit {
			limit = n
		}
	}
	logs, err := a.History.History(r.Context(), zone, limit)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	if logs == nil {
		logs = []session.Log{}
	}
	writeJSON(a.Logger, w, http.StatusOK, logs)
}
