// v1
// cmd/climate/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/app"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/config"
)

func main() {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("config_load_failed", slog.Any("err", err))
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		bootstrap.Error("app_init_failed", slog.Any("err", err))
		os.Exit(1)
	}

	logger := application.Logger()
	logger.Info("service_boot",
		slog.String("listen_address", cfg.ListenAddress),
		slog.String("log_path", cfg.LogFilePath),
		slog.String("properties_path", cfg.PropertiesPath),
		slog.String("zones", strings.Join(cfg.Zones, ",")),
		slog.String("default_crop", cfg.DefaultCrop),
		slog.String("kafka_brokers", strings.Join(cfg.KafkaBrokers, ",")),
		slog.String("mqtt_broker", cfg.MQTTBroker),
		slog.Duration("simulation_duration", cfg.SimulationDuration),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := application.Run(ctx)
	stop()

	if cerr := application.Close(); cerr != nil {
		bootstrap.Error("app_close_failed", slog.Any("err", cerr))
	}
	if runErr != nil {
		bootstrap.Error("service_terminated", slog.Any("err", runErr))
		os.Exit(1)
	}
	bootstrap.Info("service_stopped")
}
