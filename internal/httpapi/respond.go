// v2
// internal/httpapi/respond.go
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/catalog"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/notify"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/readings"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/zones"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps package sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, readings.ErrBadPayload),
		errors.Is(err, readings.ErrInvalidSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, zones.ErrUnknownZone),
		errors.Is(err, catalog.ErrUnknownCrop),
		errors.Is(err, catalog.ErrUnknownScenario),
		errors.Is(err, readings.ErrNoSnapshot),
		errors.Is(err, session.ErrNoSession),
		errors.Is(err, notify.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrZoneBusy),
		errors.Is(err, session.ErrNotRunning),
		errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes before writing the header so an unencodable value
// surfaces as a 500 instead of an empty 200.
func writeJSON(lg *slog.Logger, w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		lg.Error("encode_response_failed", slog.Any("err", err))
		status = http.StatusInternalServerError
		b = []byte(`{"error":"response encoding failed"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(b, '\n')); err != nil {
		lg.Error("write_response_failed", slog.Any("err", err))
	}
}

func writeError(lg *slog.Logger, w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		lg.Error("request_failed", slog.Any("err", err))
	}
	writeJSON(lg, w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}
