// v1
// internal/httpapi/catalog.go
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/cache"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/catalog"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

type cropView struct {
	Crop    string         `json:"crop"`
	Profile engine.Profile `json:"profile"`
}

func (a *api) listCrops(w http.ResponseWriter, _ *http.Request) {
	ids := catalog.Crops()
	out := make([]cropView, 0, len(ids))
	for _, id := range ids {
		p, _ := catalog.Profile(id)
		out = append(out, cropView{Crop: id, Profile: p})
	}
	writeJSON(a.Logger, w, http.StatusOK, out)
}

func (a *api) getCrop(w http.ResponseWriter, r *http.Request) {
	crop := mux.Vars(r)["crop"]
	p, err := catalog.Profile(crop)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusOK, cropView{Crop: catalog.NormalizeCrop(crop), Profile: p})
}

func (a *api) listScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(a.Logger, w, http.StatusOK, catalog.Scenarios())
}

func (a *api) getScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := catalog.Lookup(mux.Vars(r)["id"])
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusOK, sc)
}

type evaluateRequest struct {
	Crop    string          `json:"crop"`
	Profile *engine.Profile `json:"profile"`
	Reading *engine.Reading `json:"reading"`
}

func validBounds(b engine.Bounds) bool { return b.Min <= b.Optimal && b.Optimal <= b.Max }

func validateProfile(p engine.Profile) error {
	for name, b := range map[string]engine.Bounds{
		"temperature": p.Temperature, "humidity": p.Humidity, "co2": p.CO2, "light": p.Light,
	} {
		if !validBounds(b) {
			return badRequest("profile %s bounds must satisfy min <= optimal <= max", name)
		}
	}
	if p.SoilMoisture != nil && !validBounds(*p.SoilMoisture) {
		return badRequest("profile soilMoisture bounds must satisfy min <= optimal <= max")
	}
	return nil
}

func (a *api) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(a.Logger, w, err)
		return
	}
	if req.Reading == nil {
		writeError(a.Logger, w, badRequest("reading is required"))
		return
	}
	if req.Profile != nil {
		if err := validateProfile(*req.Profile); err != nil {
			writeError(a.Logger, w, err)
			return
		}
		writeJSON(a.Logger, w, http.StatusOK, engine.Evaluate(*req.Reading, *req.Profile))
		return
	}
	if req.Crop == "" {
		writeError(a.Logger, w, badRequest("crop or profile is required"))
		return
	}
	profile, err := catalog.Profile(req.Crop)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	rd := req.Reading
	key := cache.EvaluationKey(req.Crop, &rd.Temperature, &rd.Humidity, &rd.CO2, &rd.Light, rd.SoilMoisture, rd.HeatingLevel)
	if a.EvalCache != nil {
		if res, ok := a.EvalCache.Get(key); ok {
			writeJSON(a.Logger, w, http.StatusOK, res)
			return
		}
	}
	res := engine.Evaluate(*rd, profile)
	if a.EvalCache != nil {
		a.EvalCache.Set(key, res)
	}
	writeJSON(a.Logger, w, http.StatusOK, res)
}
