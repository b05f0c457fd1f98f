// v1
// internal/storage/clickhouse.go
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
)

const simulationLogsTable = `
CREATE TABLE IF NOT EXISTS simulation_logs (
	id String,
	zone_id String,
	timestamp DateTime64(3),
	scenario String,
	crop_type String,
	duration_seconds Float64,
	start_temperature Float64,
	start_humidity Float64,
	start_soil_moisture Float64,
	start_gas_level Float64,
	end_temperature Float64,
	end_humidity Float64,
	end_soil_moisture Float64,
	end_gas_level Float64,
	actuator_actions Array(String),
	efficiency_score Float64,
	status LowCardinality(String)
) ENGINE = MergeTree()
ORDER BY (zone_id, timestamp)
`

// ClickHouseConfig selects the server and database holding session logs.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseRecorder stores session logs in simulation_logs.
type ClickHouseRecorder struct {
	conn driver.Conn
	lg   *slog.Logger
}

// NewClickHouseRecorder connects, pings and creates the table when missing.
func NewClickHouseRecorder(ctx context.Context, cfg ClickHouseConfig, lg *slog.Logger) (*ClickHouseRecorder, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse %s: %w", cfg.Addr, err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse %s: %w", cfg.Addr, err)
	}
	if err := conn.Exec(ctx, simulationLogsTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create simulation_logs: %w", err)
	}
	lg.Info("clickhouse_connected", "addr", cfg.Addr, "database", cfg.Database)
	return &ClickHouseRecorder{conn: conn, lg: lg}, nil
}

func (c *ClickHouseRecorder) RecordSession(ctx context.Context, l session.Log) error {
	const q = `INSERT INTO simulation_logs (id, zone_id, timestamp, scenario, crop_type, duration_seconds,
		start_temperature, start_humidity, start_soil_moisture, start_gas_level,
		end_temperature, end_humidity, end_soil_moisture, end_gas_level,
		actuator_actions, efficiency_score, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	err := c.conn.Exec(ctx, q,
		l.ID, l.ZoneID, l.Timestamp, l.Scenario, l.CropType, l.DurationSeconds,
		l.StartConditions.Temperature, l.StartConditions.Humidity, l.StartConditions.SoilMoisture, l.StartConditions.GasLevel,
		l.EndConditions.Temperature, l.EndConditions.Humidity, l.EndConditions.SoilMoisture, l.EndConditions.GasLevel,
		l.ActuatorActions, l.EfficiencyScore, string(l.Status),
	)
	if err != nil {
		return fmt.Errorf("insert simulation log %s: %w", l.ID, err)
	}
	return nil
}

func (c *ClickHouseRecorder) History(ctx context.Context, zone string, limit int) ([]session.Log, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.conn.Query(ctx, `SELECT id, zone_id, timestamp, scenario, crop_type, duration_seconds,
		start_temperature, start_humidity, start_soil_moisture, start_gas_level,
		end_temperature, end_humidity, end_soil_moisture, end_gas_level,
		actuator_actions, efficiency_score, status
		FROM simulation_logs WHERE zone_id = ? ORDER BY timestamp DESC LIMIT ?`, zone, limit)
	if err != nil {
		return nil, fmt.Errorf("query simulation logs %s: %w", zone, err)
	}
	defer rows.Close()
	var out []session.Log
	for rows.Next() {
		var (
			l      session.Log
			status string
		)
		if err := rows.Scan(&l.ID, &l.ZoneID, &l.Timestamp, &l.Scenario, &l.CropType, &l.DurationSeconds,
			&l.StartConditions.Temperature, &l.StartConditions.Humidity, &l.StartConditions.SoilMoisture, &l.StartConditions.GasLevel,
			&l.EndConditions.Temperature, &l.EndConditions.Humidity, &l.EndConditions.SoilMoisture, &l.EndConditions.GasLevel,
			&l.ActuatorActions, &l.EfficiencyScore, &status); err != nil {
			return nil, fmt.Errorf("scan simulation log: %w", err)
		}
		l.Type = "simulation"
		l.Status = session.LogStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (c *ClickHouseRecorder) Close() error { return c.conn.Close() }
