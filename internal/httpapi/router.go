// v2
// internal/httpapi/router.go
package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/cache"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/notify"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/observability"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/readings"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/storage"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/zones"
)

// Deps are the collaborators the handlers read from and drive.
type Deps struct {
	Logger        *slog.Logger
	AccessLog     io.Writer
	Health        *HealthState
	Zones         *zones.Registry
	Hub           *readings.Hub
	Runner        *session.Runner
	History       storage.HistoryReader
	Notifications *notify.Center
	// EvalCache memoizes POST /evaluate results for catalog crops. Optional.
	EvalCache *cache.Cache[engine.Result]
	// Extra contributes additional fields to GET /status. Optional.
	Extra func() map[string]any
	// Metrics instruments matched routes and serves GET /metrics. Optional.
	Metrics *observability.Metrics

	CORSOrigins        []string
	SimulationDuration time.Duration
	HistoryLimit       int
}

type api struct {
	Deps
	started time.Time
}

// NewRouter builds the routed, logged and CORS-enabled handler.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Health == nil {
		d.Health = NewHealthState()
	}
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = 50
	}
	a := &api{Deps: d, started: time.Now()}

	r := mux.NewRouter()
	r.HandleFunc("/health", a.healthLive).Methods(http.MethodGet)
	r.HandleFunc("/health/live", a.healthLive).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", a.healthReady).Methods(http.MethodGet)

	r.HandleFunc("/crops", a.listCrops).Methods(http.MethodGet)
	r.HandleFunc("/crops/{crop}", a.getCrop).Methods(http.MethodGet)
	r.HandleFunc("/scenarios", a.listScenarios).Methods(http.MethodGet)
	r.HandleFunc("/scenarios/{id}", a.getScenario).Methods(http.MethodGet)
	r.HandleFunc("/evaluate", a.evaluate).Methods(http.MethodPost)

	r.HandleFunc("/zones", a.listZones).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zone}", a.getZone).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zone}/crop", a.setCrop).Methods(http.MethodPut)
	r.HandleFunc("/zones/{zone}/evaluation", a.zoneEvaluation).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zone}/readings", a.pushReading).Methods(http.MethodPost)

	r.HandleFunc("/zones/{zone}/simulations", a.startSimulation).Methods(http.MethodPost)
	r.HandleFunc("/zones/{zone}/simulations/current", a.currentSimulation).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zone}/simulations/current", a.stopSimulation).Methods(http.MethodDelete)
	r.HandleFunc("/zones/{zone}/simulations/history", a.simulationHistory).Methods(http.MethodGet)

	r.HandleFunc("/zones/{zone}/notifications", a.listNotifications).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zone}/notifications", a.clearNotifications).Methods(http.MethodDelete)
	r.HandleFunc("/zones/{zone}/notifications/{id}/read", a.markNotificationRead).Methods(http.MethodPost)

	r.HandleFunc("/status", a.status).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(a.Logger, w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(a.Logger, w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	var h http.Handler = WrapWithLogging(a.Logger, r)
	if d.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(d.AccessLog, h)
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(h)
}

func (a *api) healthLive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (a *api) healthReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !a.Health.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT_READY"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	active := a.Runner.Active()
	running := make([]map[string]string, 0, len(active))
	for _, s := range active {
		running = append(running, map[string]string{"zoneId": s.ZoneID(), "sessionId": s.ID(), "scenarioId": s.Scenario().ID})
	}
	withReadings, err := a.Hub.Zones(r.Context())
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	ready, since := a.Health.State()
	body := map[string]any{
		"ready":             ready,
		"readySince":        since,
		"uptimeSeconds":     time.Since(a.started).Seconds(),
		"zones":             len(a.Zones.Zones()),
		"zonesWithReadings": withReadings,
		"activeSimulations": running,
	}
	if a.Extra != nil {
		for k, v := range a.Extra() {
			body[k] = v
		}
	}
	writeJSON(a.Logger, w, http.StatusOK, body)
}
