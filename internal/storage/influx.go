// v1
// internal/storage/influx.go
package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

// InfluxConfig locates the bucket receiving efficiency points.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxRecorder writes measurement "efficiency" tagged by zone and crop.
type InfluxRecorder struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

func NewInfluxRecorder(cfg InfluxConfig) *InfluxRecorder {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxRecorder{client: client, write: client.WriteAPIBlocking(cfg.Org, cfg.Bucket)}
}

func (r *InfluxRecorder) RecordEvaluation(ctx context.Context, zone, crop string, res engine.Result, at time.Time) error {
	p := influxdb2.NewPoint(
		"efficiency",
		map[string]string{"zone": zone, "crop": crop},
		map[string]interface{}{
			"score":             res.EfficiencyScore,
			"recovery_minutes":  res.EstimatedRecoveryTime,
			"recommendations":   len(res.Recommendations),
			"temperature_score": res.Scores.Temperature,
			"humidity_score":    res.Scores.Humidity,
			"co2_score":         res.Scores.CO2,
			"light_score":       res.Scores.Light,
		},
		at,
	)
	if err := r.write.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write efficiency point %s: %w", zone, err)
	}
	return nil
}

func (r *InfluxRecorder) Close() { r.client.Close() }
