// v1
// internal/observability/metrics.go
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/circuitbreaker"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
)

// Metrics owns a private registry so several instances can coexist in one
// process.
type Metrics struct {
	reg *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	cbState           *prometheus.GaugeVec
	sessions          *prometheus.CounterVec
	activations       *prometheus.CounterVec
	zoneEfficiency    *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluation_cache_hits_total",
			Help: "Total evaluation cache hits observed.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluation_cache_misses_total",
			Help: "Total evaluation cache misses observed.",
		}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulation_sessions_total",
			Help: "Simulation session lifecycle events by type.",
		}, []string{"event"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actuator_activations_total",
			Help: "Simulated actuator activations by system.",
		}, []string{"system"}),
		zoneEfficiency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zone_efficiency_score",
			Help: "Latest efficiency score evaluated for each monitored zone.",
		}, []string{"zone"}),
	}

	m.reg.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.cacheHits,
		m.cacheMisses,
		m.cbState,
		m.sessions,
		m.activations,
		m.zoneEfficiency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, ev := range []session.EventType{session.EventStarted, session.EventCompleted, session.EventCancelled} {
		m.sessions.WithLabelValues(string(ev))
	}
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Middleware records request counts and latency labelled by the matched
// gorilla route template. Unmatched requests share the "unmatched" label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) SetCircuitBreakerState(target string, state circuitbreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch state {
	case circuitbreaker.HalfOpen:
		v = 1
	case circuitbreaker.Open:
		v = 2
	}
	m.cbState.WithLabelValues(target).Set(v)
}

// BreakerListener adapts SetCircuitBreakerState to Breaker.OnStateChange.
func (m *Metrics) BreakerListener(target string) func(circuitbreaker.State) {
	return func(s circuitbreaker.State) { m.SetCircuitBreakerState(target, s) }
}

// ZoneEvaluated tracks the latest monitor result per zone.
func (m *Metrics) ZoneEvaluated(zone string, res engine.Result) {
	if m == nil {
		return
	}
	m.zoneEfficiency.WithLabelValues(zone).Set(res.EfficiencyScore)
}

// SessionEvent implements session.Sink.
func (m *Metrics) SessionEvent(_ context.Context, _ session.Session, ev session.Event) {
	if m == nil {
		return
	}
	if ev.Type == session.EventActivated {
		if ev.Activation != nil {
			m.activations.WithLabelValues(string(ev.Activation.System)).Inc()
		}
		return
	}
	m.sessions.WithLabelValues(string(ev.Type)).Inc()
}
