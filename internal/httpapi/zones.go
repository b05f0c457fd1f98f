// v1
// internal/httpapi/zones.go
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/catalog"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/readings"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/zones"
)

type zoneView struct {
	ZoneID     string             `json:"zoneId"`
	CropType   string             `json:"cropType"`
	Snapshot   *readings.Snapshot `json:"snapshot,omitempty"`
	Simulation *session.Progress  `json:"simulation,omitempty"`
	Unread     int                `json:"unreadNotifications"`
}

// zoneCrop resolves the crop of a configured zone.
func (a *api) zoneCrop(zone string) (string, error) {
	crop, ok := a.Zones.Get(zone)
	if !ok {
		return "", fmt.Errorf("%w: %s", zones.ErrUnknownZone, zone)
	}
	return crop, nil
}

func (a *api) zoneView(ctx context.Context, zone string) (zoneView, error) {
	crop, err := a.zoneCrop(zone)
	if err != nil {
		return zoneView{}, err
	}
	v := zoneView{ZoneID: zone, CropType: crop, Unread: a.Notifications.Unread(zone)}
	snap, err := a.Hub.Snapshot(ctx, zone)
	switch {
	case err == nil:
		v.Snapshot = &snap
	case !errors.Is(err, readings.ErrNoSnapshot):
		return zoneView{}, err
	}
	if _, p, err := a.Runner.Get(zone); err == nil {
		v.Simulation = &p
	}
	return v, nil
}

func (a *api) listZones(w http.ResponseWriter, r *http.Request) {
	ids := a.Zones.Zones()
	out := make([]zoneView, 0, len(ids))
	for _, id := range ids {
		v, err := a.zoneView(r.Context(), id)
		if err != nil {
			writeError(a.Logger, w, err)
			return
		}
		out = append(out, v)
	}
	writeJSON(a.Logger, w, http.StatusOK, out)
}

func (a *api) getZone(w http.ResponseWriter, r *http.Request) {
	v, err := a.zoneView(r.Context(), mux.Vars(r)["zone"])
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusOK, v)
}

func (a *api) setCrop(w http.ResponseWriter, r *http.Request) {
	zone := mux.Vars(r)["zone"]
	var req struct {
		Crop string `json:"crop"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(a.Logger, w, err)
		return
	}
	if req.Crop == "" {
		writeError(a.Logger, w, badRequest("crop is required"))
		return
	}
	crop, err := a.Zones.Set(zone, req.Crop)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	a.Logger.Info("zone_crop_changed", "zone", zone, "crop", crop)
	writeJSON(a.Logger, w, http.StatusOK, map[string]string{"zoneId": zone, "cropType": crop})
}

type zoneEvaluation struct {
	ZoneID   string            `json:"zoneId"`
	CropType string            `json:"cropType"`
	Snapshot readings.Snapshot `json:"snapshot"`
	Result   engine.Result     `json:"result"`
}

func (a *api) zoneEvaluation(w http.ResponseWriter, r *http.Request) {
	zone := mux.Vars(r)["zone"]
	crop, err := a.zoneCrop(zone)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	snap, err := a.Hub.Snapshot(r.Context(), zone)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	profile, err := catalog.Profile(crop)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusOK, zoneEvaluation{
		ZoneID: zone, CropType: crop, Snapshot: snap, Result: engine.Evaluate(snap.Reading, profile),
	})
}

func (a *api) pushReading(w http.ResponseWriter, r *http.Request) {
	zone := mux.Vars(r)["zone"]
	if _, err := a.zoneCrop(zone); err != nil {
		writeError(a.Logger, w, err)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(a.Logger, w, badRequest("read body: %v", err))
		return
	}
	snap, err := readings.DecodeSnapshot(raw, zone, "api")
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	if err := a.Hub.Publish(r.Context(), snap); err != nil {
		writeError(a.Logger, w, err)
		return
	}
	stored, err := a.Hub.Snapshot(r.Context(), zone)
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusAccepted, stored)
}
