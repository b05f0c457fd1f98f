// v2
// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/bus"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/cache"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/circuitbreaker"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/config"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/httpapi"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/logging"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/notify"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/observability"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/readings"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/storage"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/zones"
)

const connectTimeout = 10 * time.Second

// Application owns every component of the climate service and its lifecycle.
type Application struct {
	cfg    config.Config
	logs   *logging.Logger
	logger *slog.Logger
	server *http.Server
	health *httpapi.HealthState

	zones   *zones.Registry
	hub     *readings.Hub
	runner  *session.Runner
	notes   *notify.Center
	monitor *monitor
	metrics *observability.Metrics
	evals   *cache.Cache[engine.Result]

	breaker     *circuitbreaker.KafkaBreaker
	publisher   *bus.Publisher
	kafkaReader *kafka.Reader
	kafkaIngest *readings.KafkaIngest
	mqttClient  mqtt.Client
	mqttIngest  *readings.MQTTIngest
	redis       *readings.RedisStore
	clickhouse  *storage.ClickHouseRecorder
	influx      *storage.InfluxRecorder
}

// New connects the configured integrations and builds the HTTP server.
// Integrations with an empty address stay disabled. On error every resource
// opened so far is released.
func New(cfg config.Config) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	logs, err := logging.New(cfg.LogFilePath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &Application{cfg: cfg, logs: logs, logger: logs.Logger, health: httpapi.NewHealthState()}
	if err := a.wire(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) component(name string) *slog.Logger {
	return a.logger.With(slog.String("component", name))
}

func (a *Application) wire() error {
	cfg := a.cfg
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	a.metrics = observability.NewMetrics()

	reg, err := zones.New(cfg.Zones, cfg.ZoneCrops)
	if err != nil {
		return fmt.Errorf("zones: %w", err)
	}
	a.zones = reg
	a.logger.Info("zones_configured", slog.Any("zones", reg.All()))

	var store readings.Store = readings.NewMemoryStore(cfg.SnapshotTTL)
	if cfg.RedisAddr != "" {
		rs, err := readings.NewRedisStore(ctx, readings.RedisConfig{
			Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB, TTL: cfg.SnapshotTTL,
		})
		if err != nil {
			return fmt.Errorf("redis snapshot store: %w", err)
		}
		a.redis = rs
		store = rs
		a.logger.Info("redis_store_connected", slog.String("addr", cfg.RedisAddr))
	}
	a.hub = readings.NewHub(store, a.component("readings_hub"))

	var fwd notify.Forwarder
	if cfg.WebhookURL != "" {
		fwd = notify.NewWebhook(cfg.WebhookURL, cfg.WebhookRetries, cfg.WebhookTimeout)
		a.logger.Info("notification_webhook_enabled", slog.String("url", cfg.WebhookURL))
	}
	a.notes = notify.NewCenter(cfg.NotificationLimit, fwd, a.component("notifications"))

	memory := storage.NewMemoryRecorder(cfg.HistoryLimit)
	recorders := storage.SessionRecorders{memory}
	var history storage.HistoryReader = memory
	if cfg.ClickHouseAddr != "" {
		ch, err := storage.NewClickHouseRecorder(ctx, storage.ClickHouseConfig{
			Addr: cfg.ClickHouseAddr, Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername, Password: cfg.ClickHousePassword,
		}, a.component("clickhouse"))
		if err != nil {
			return fmt.Errorf("clickhouse recorder: %w", err)
		}
		a.clickhouse = ch
		recorders = append(recorders, ch)
		history = ch
	}

	a.monitor = newMonitor(reg, a.hub, a.notes, cfg.AlertThreshold, a.component("monitor"))
	a.monitor.observer = a.metrics
	if cfg.InfluxURL != "" {
		a.influx = storage.NewInfluxRecorder(storage.InfluxConfig{
			URL: cfg.InfluxURL, Token: cfg.InfluxToken, Org: cfg.InfluxOrg, Bucket: cfg.InfluxBucket,
		})
		a.monitor.recorder = a.influx
		a.logger.Info("influx_recorder_enabled", slog.String("url", cfg.InfluxURL), slog.String("bucket", cfg.InfluxBucket))
	}

	sink := &sessionSink{notes: a.notes, recorders: recorders, lg: a.component("session_sink")}
	sinks := session.Sinks{sink, a.metrics}

	if len(cfg.KafkaBrokers) > 0 {
		if err := a.wireKafka(&sinks); err != nil {
			return err
		}
	}
	if cfg.MQTTBroker != "" {
		client, err := readings.DialMQTT(readings.MQTTConfig{
			Broker: cfg.MQTTBroker, ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername, Password: cfg.MQTTPassword,
		}, a.component("mqtt"))
		if err != nil {
			return err
		}
		a.mqttClient = client
		a.mqttIngest = readings.NewMQTTIngest(client, cfg.MQTTReadingsTopic, a.hub, a.component("mqtt_ingest"))
		sink.devices = &mqttDevices{client: client, pattern: cfg.MQTTDeviceTopic, timeout: 5 * time.Second}
	}

	a.runner = session.NewRunner(sinks, a.component("session_runner"), session.WithInterval(cfg.TickInterval))

	a.evals = cache.New[engine.Result](cfg.EvaluationCacheTTL, a.metrics).WithLimit(cfg.EvaluationCacheSize)
	router := httpapi.NewRouter(httpapi.Deps{
		Logger:             a.component("http"),
		AccessLog:          a.logs.Writer(),
		Health:             a.health,
		Zones:              reg,
		Hub:                a.hub,
		Runner:             a.runner,
		History:            history,
		Notifications:      a.notes,
		EvalCache:          a.evals,
		Metrics:            a.metrics,
		Extra:              a.statusExtra,
		CORSOrigins:        cfg.CORSOrigins,
		SimulationDuration: cfg.SimulationDuration,
		HistoryLimit:       cfg.HistoryLimit,
	})
	a.server = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPWriteTimeout,
	}
	return nil
}

func (a *Application) wireKafka(sinks *session.Sinks) error {
	cfg := a.cfg
	lg := a.component("kafka")
	check := func(ctx context.Context) error {
		conn, err := kafka.DialContext(ctx, "tcp", cfg.KafkaBrokers[0])
		if err != nil {
			return err
		}
		return conn.Close()
	}
	breaker, err := circuitbreaker.NewKafkaBreaker("kafka", cfg.Breaker, a.component("kafka_breaker"), check)
	if err != nil {
		return fmt.Errorf("kafka breaker: %w", err)
	}
	a.breaker = breaker
	breaker.OnStateChange(a.metrics.BreakerListener("kafka"))
	a.publisher = bus.New(bus.Config{
		Brokers:             cfg.KafkaBrokers,
		RecommendationTopic: cfg.RecommendationTopic,
		SessionTopic:        cfg.SessionTopic,
	}, breaker, lg)
	a.monitor.bus = a.publisher
	*sinks = append(*sinks, a.publisher)

	if cfg.ReadingsTopic != "" {
		a.kafkaReader = readings.NewKafkaReader(cfg.KafkaBrokers, cfg.ReadingsTopic, cfg.ReadingsGroupID)
		a.kafkaIngest = readings.NewKafkaIngest(circuitbreaker.NewReader(a.kafkaReader, breaker), a.hub, a.component("kafka_ingest"))
	}
	lg.Info("kafka_configured",
		slog.String("brokers", strings.Join(cfg.KafkaBrokers, ",")),
		slog.String("recommendation_topic", cfg.RecommendationTopic),
		slog.String("session_topic", cfg.SessionTopic),
		slog.String("readings_topic", cfg.ReadingsTopic),
		slog.Bool("breaker_enabled", breaker.Enabled()),
	)
	return nil
}

func (a *Application) statusExtra() map[string]any {
	integrations := map[string]bool{
		"kafka":      a.publisher != nil,
		"mqtt":       a.mqttClient != nil,
		"redis":      a.redis != nil,
		"clickhouse": a.clickhouse != nil,
		"influx":     a.influx != nil,
	}
	out := map[string]any{
		"integrations":   integrations,
		"monitoredZones": a.monitor.monitoredZones(),
		"zoneEfficiency": a.monitor.scores(),
		"evalCacheSize":  a.evals.Len(),
	}
	if b := a.breaker.Breaker(); b != nil {
		out["kafkaBreaker"] = b.State().String()
	}
	return out
}

// Logger exposes the service logger to main.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

type worker struct {
	name string
	run  func(ctx context.Context) error
}

type workerExit struct {
	name string
	err  error
}

func (a *Application) workers() []worker {
	ws := []worker{
		{name: "http_server", run: func(context.Context) error {
			a.logger.Info("http_server_listen", slog.String("address", a.cfg.ListenAddress))
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}},
		{name: "session_runner", run: a.runner.Run},
		{name: "monitor", run: a.monitor.Run},
		{name: "eval_cache_sweeper", run: func(ctx context.Context) error {
			return a.evals.Run(ctx, a.cfg.EvaluationCacheTTL)
		}},
	}
	if a.kafkaIngest != nil {
		ws = append(ws, worker{name: "kafka_ingest", run: a.kafkaIngest.Run})
	}
	return ws
}

// Run starts the HTTP server and background loops and blocks until ctx is
// cancelled or one of them exits. Shutdown waits at most ShutdownTimeout.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.mqttIngest != nil {
		if err := a.mqttIngest.Start(); err != nil {
			return err
		}
		defer a.mqttIngest.Stop()
	}

	ws := a.workers()
	exits := make(chan workerExit, len(ws))
	for _, w := range ws {
		go func(w worker) {
			exits <- workerExit{name: w.name, err: w.run(ctx)}
		}(w)
	}
	a.health.SetReady(true)

	var runErr error
	pending := len(ws)
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown_signal")
	case exit := <-exits:
		pending--
		if exit.err != nil {
			a.logger.Error("worker_failed", slog.String("worker", exit.name), slog.Any("err", exit.err))
			runErr = fmt.Errorf("%s: %w", exit.name, exit.err)
		} else {
			a.logger.Warn("worker_exited", slog.String("worker", exit.name))
		}
	}

	a.health.SetReady(false)
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server_shutdown_failed", slog.Any("err", err))
		if runErr == nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	}
	for ; pending > 0; pending-- {
		select {
		case exit := <-exits:
			if exit.err != nil && !errors.Is(exit.err, context.Canceled) {
				a.logger.Error("worker_shutdown_error", slog.String("worker", exit.name), slog.Any("err", exit.err))
				if runErr == nil {
					runErr = fmt.Errorf("%s: %w", exit.name, exit.err)
				}
			}
		case <-shutdownCtx.Done():
			a.logger.Error("shutdown_timeout", slog.Int("pending_workers", pending))
			if runErr == nil {
				runErr = fmt.Errorf("shutdown: %w", shutdownCtx.Err())
			}
			return runErr
		}
	}
	a.logger.Info("shutdown_complete")
	return runErr
}

// Close releases connections, drains the notification forwarder and closes
// the log file last.
func (a *Application) Close() error {
	var errs []error
	if a.runner != nil {
		a.runner.Close()
	}
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.kafkaReader != nil {
		errs = append(errs, a.kafkaReader.Close())
	}
	if a.mqttClient != nil {
		a.mqttClient.Disconnect(250)
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.clickhouse != nil {
		errs = append(errs, a.clickhouse.Close())
	}
	if a.influx != nil {
		a.influx.Close()
	}
	if a.notes != nil {
		a.notes.Close()
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("close_failed", slog.Any("err", err))
		errs = []error{err}
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
		a.logs = nil
	}
	return errors.Join(errs...)
}
