// v1
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/circuitbreaker"
)

// Config captures every runtime setting of the climate service. Values come
// from defaults, a properties file, a .env file and the environment, in
// increasing order of precedence. Empty connection strings disable the
// matching integration.
type Config struct {
	ListenAddress    string
	LogFilePath      string
	LogLevel         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration
	PropertiesPath   string
	CORSOrigins      []string

	// Zones lists the greenhouse zones, ZoneCrops the crop grown in each.
	Zones       []string
	ZoneCrops   map[string]string
	DefaultCrop string

	SimulationDuration time.Duration
	TickInterval       time.Duration
	SnapshotTTL        time.Duration
	EvaluationCacheTTL time.Duration
	// EvaluationCacheSize caps memoized /evaluate results.
	EvaluationCacheSize int
	// AlertThreshold raises an alert when a live efficiency score drops below it.
	AlertThreshold float64
	HistoryLimit   int

	NotificationLimit int
	WebhookURL        string
	WebhookRetries    int
	WebhookTimeout    time.Duration

	KafkaBrokers        []string
	RecommendationTopic string
	SessionTopic        string
	ReadingsTopic       string
	ReadingsGroupID     string
	Breaker             circuitbreaker.Settings

	MQTTBroker        string
	MQTTClientID      string
	MQTTUsername      string
	MQTTPassword      string
	MQTTReadingsTopic string
	MQTTDeviceTopic   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

const (
	defaultListenAddress = ":8090"
	defaultLogFile       = "logs/climate.log"
	defaultPropsPath     = "climate.properties"
	defaultDotenvPath    = ".env"
	defaultCrop          = "pepper"
	defaultZone          = "zone-A"
)

func defaults() Config {
	return Config{
		ListenAddress:       defaultListenAddress,
		LogFilePath:         filepath.Clean(defaultLogFile),
		LogLevel:            "info",
		HTTPReadTimeout:     5 * time.Second,
		HTTPWriteTimeout:    10 * time.Second,
		ShutdownTimeout:     5 * time.Second,
		CORSOrigins:         []string{"*"},
		Zones:               []string{defaultZone},
		ZoneCrops:           map[string]string{},
		DefaultCrop:         defaultCrop,
		SimulationDuration:  10 * time.Second,
		TickInterval:        100 * time.Millisecond,
		SnapshotTTL:         time.Minute,
		EvaluationCacheTTL:  30 * time.Second,
		EvaluationCacheSize: 1024,
		AlertThreshold:      60,
		HistoryLimit:        50,
		NotificationLimit:   100,
		WebhookRetries:      2,
		WebhookTimeout:      5 * time.Second,
		RecommendationTopic: "greenhouse.recommendations",
		SessionTopic:        "greenhouse.sessions",
		ReadingsTopic:       "greenhouse.readings",
		ReadingsGroupID:     "climate-readings",
		Breaker:             circuitbreaker.DefaultSettings(),
		MQTTClientID:        "climate-engine",
		MQTTReadingsTopic:   "greenhouse/+/readings",
		MQTTDeviceTopic:     "greenhouse/%s/simulation",
		ClickHouseDatabase:  "greenhouse",
		ClickHouseUsername:  "default",
		InfluxOrg:           "greenhouse",
		InfluxBucket:        "climate",
	}
}

// envKeys maps each property key to the environment variable overriding it.
var envKeys = []struct{ prop, env string }{
	{"listen_address", "CLIMATE_LISTEN_ADDRESS"},
	{"log_path", "CLIMATE_LOG_PATH"},
	{"log_level", "CLIMATE_LOG_LEVEL"},
	{"http_read_timeout_ms", "CLIMATE_HTTP_READ_TIMEOUT_MS"},
	{"http_write_timeout_ms", "CLIMATE_HTTP_WRITE_TIMEOUT_MS"},
	{"shutdown_timeout_ms", "CLIMATE_SHUTDOWN_TIMEOUT_MS"},
	{"cors_origins", "CLIMATE_CORS_ORIGINS"},
	{"zones", "CLIMATE_ZONES"},
	{"crop", "CLIMATE_CROP"},
	{"simulation_duration_ms", "CLIMATE_SIMULATION_DURATION_MS"},
	{"tick_interval_ms", "CLIMATE_TICK_INTERVAL_MS"},
	{"snapshot_ttl_ms", "CLIMATE_SNAPSHOT_TTL_MS"},
	{"evaluation_cache_ttl_ms", "CLIMATE_EVALUATION_CACHE_TTL_MS"},
	{"evaluation_cache_size", "CLIMATE_EVALUATION_CACHE_SIZE"},
	{"alert_threshold", "CLIMATE_ALERT_THRESHOLD"},
	{"history_limit", "CLIMATE_HISTORY_LIMIT"},
	{"notification_limit", "CLIMATE_NOTIFICATION_LIMIT"},
	{"webhook_url", "CLIMATE_WEBHOOK_URL"},
	{"webhook_retries", "CLIMATE_WEBHOOK_RETRIES"},
	{"webhook_timeout_ms", "CLIMATE_WEBHOOK_TIMEOUT_MS"},
	{"kafka_brokers", "KAFKA_BROKERS"},
	{"kafka_brokers", "CLIMATE_KAFKA_BROKERS"},
	{"recommendation_topic", "CLIMATE_RECOMMENDATION_TOPIC"},
	{"session_topic", "CLIMATE_SESSION_TOPIC"},
	{"readings_topic", "CLIMATE_READINGS_TOPIC"},
	{"readings_group_id", "CLIMATE_READINGS_GROUP"},
	{"cb_enabled", "CB_ENABLED"},
	{"cb_kafka_failure_threshold", "CB_KAFKA_FAILURE_THRESHOLD"},
	{"cb_kafka_success_threshold", "CB_KAFKA_SUCCESS_THRESHOLD"},
	{"cb_kafka_open_seconds", "CB_KAFKA_OPEN_SECONDS"},
	{"cb_kafka_timeout_ms", "CB_KAFKA_TIMEOUT_MS"},
	{"cb_kafka_backoff_ms", "CB_KAFKA_BACKOFF_MS"},
	{"mqtt_broker", "CLIMATE_MQTT_BROKER"},
	{"mqtt_client_id", "CLIMATE_MQTT_CLIENT_ID"},
	{"mqtt_username", "CLIMATE_MQTT_USERNAME"},
	{"mqtt_password", "CLIMATE_MQTT_PASSWORD"},
	{"mqtt_readings_topic", "CLIMATE_MQTT_READINGS_TOPIC"},
	{"mqtt_device_topic", "CLIMATE_MQTT_DEVICE_TOPIC"},
	{"redis_addr", "CLIMATE_REDIS_ADDR"},
	{"redis_password", "CLIMATE_REDIS_PASSWORD"},
	{"redis_db", "CLIMATE_REDIS_DB"},
	{"clickhouse_addr", "CLIMATE_CLICKHOUSE_ADDR"},
	{"clickhouse_database", "CLIMATE_CLICKHOUSE_DATABASE"},
	{"clickhouse_username", "CLIMATE_CLICKHOUSE_USERNAME"},
	{"clickhouse_password", "CLIMATE_CLICKHOUSE_PASSWORD"},
	{"influx_url", "CLIMATE_INFLUX_URL"},
	{"influx_token", "CLIMATE_INFLUX_TOKEN"},
	{"influx_org", "CLIMATE_INFLUX_ORG"},
	{"influx_bucket", "CLIMATE_INFLUX_BUCKET"},
}

// Load layers defaults, the properties file (CLIMATE_PROPERTIES_PATH), the
// .env file (CLIMATE_DOTENV_PATH) and the environment.
func Load() (Config, error) {
	cfg := defaults()

	propsPath := strings.TrimSpace(os.Getenv("CLIMATE_PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath
	if err := applyProperties(&cfg, propsPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	dotenv := strings.TrimSpace(os.Getenv("CLIMATE_DOTENV_PATH"))
	if dotenv == "" {
		dotenv = defaultDotenvPath
	}
	// godotenv never overrides variables already present in the environment.
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.fillZoneCrops()
	if err := cfg.Breaker.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// CropFor returns the configured crop of zone, falling back to the default crop.
func (c Config) CropFor(zone string) string {
	if crop, ok := c.ZoneCrops[zone]; ok {
		return crop
	}
	return c.DefaultCrop
}

func (c *Config) fillZoneCrops() {
	for _, zone := range c.Zones {
		if _, ok := c.ZoneCrops[zone]; !ok {
			c.ZoneCrops[zone] = c.DefaultCrop
		}
	}
}

func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	for _, k := range envKeys {
		v, ok := lookupEnvTrimmed(k.env)
		if !ok {
			continue
		}
		if err := setProperty(cfg, k.prop, v); err != nil {
			return fmt.Errorf("%s: %w", k.env, err)
		}
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	if zone, ok := strings.CutPrefix(key, "crop."); ok {
		zone = strings.TrimSpace(zone)
		if zone == "" || value == "" {
			return errors.New("zone crop needs a zone and a crop")
		}
		cfg.ZoneCrops[zone] = value
		return nil
	}
	var err error
	switch key {
	case "listen_address":
		err = nonEmpty(&cfg.ListenAddress, value)
	case "log_path":
		if err = nonEmpty(&cfg.LogFilePath, value); err == nil {
			cfg.LogFilePath = filepath.Clean(cfg.LogFilePath)
		}
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(value)
		default:
			err = fmt.Errorf("unknown log level %q", value)
		}
	case "http_read_timeout_ms":
		cfg.HTTPReadTimeout, err = parsePositiveMillis(value)
	case "http_write_timeout_ms":
		cfg.HTTPWriteTimeout, err = parsePositiveMillis(value)
	case "shutdown_timeout_ms":
		cfg.ShutdownTimeout, err = parsePositiveMillis(value)
	case "cors_origins":
		err = nonEmptyList(&cfg.CORSOrigins, value)
	case "zones":
		err = nonEmptyList(&cfg.Zones, value)
	case "crop":
		err = nonEmpty(&cfg.DefaultCrop, value)
	case "simulation_duration_ms":
		cfg.SimulationDuration, err = parsePositiveMillis(value)
	case "tick_interval_ms":
		cfg.TickInterval, err = parsePositiveMillis(value)
	case "snapshot_ttl_ms":
		cfg.SnapshotTTL, err = parsePositiveMillis(value)
	case "evaluation_cache_ttl_ms":
		cfg.EvaluationCacheTTL, err = parsePositiveMillis(value)
	case "evaluation_cache_size":
		cfg.EvaluationCacheSize, err = parsePositiveInt(value)
	case "alert_threshold":
		cfg.AlertThreshold, err = parseScore(value)
	case "history_limit":
		cfg.HistoryLimit, err = parsePositiveInt(value)
	case "notification_limit":
		cfg.NotificationLimit, err = parsePositiveInt(value)
	case "webhook_url":
		cfg.WebhookURL = value
	case "webhook_retries":
		cfg.WebhookRetries, err = parseNonNegativeInt(value)
	case "webhook_timeout_ms":
		cfg.WebhookTimeout, err = parsePositiveMillis(value)
	case "kafka_brokers":
		cfg.KafkaBrokers = splitAndTrim(value)
	case "recommendation_topic":
		err = nonEmpty(&cfg.RecommendationTopic, value)
	case "session_topic":
		err = nonEmpty(&cfg.SessionTopic, value)
	case "readings_topic":
		cfg.ReadingsTopic = value
	case "readings_group_id":
		err = nonEmpty(&cfg.ReadingsGroupID, value)
	case "cb_enabled":
		cfg.Breaker.Enabled, err = strconv.ParseBool(value)
	case "cb_kafka_failure_threshold":
		cfg.Breaker.FailureThreshold, err = parsePositiveInt(value)
	case "cb_kafka_success_threshold":
		cfg.Breaker.SuccessThreshold, err = parsePositiveInt(value)
	case "cb_kafka_open_seconds":
		var secs float64
		if secs, err = strconv.ParseFloat(value, 64); err == nil {
			cfg.Breaker.OpenFor = time.Duration(secs * float64(time.Second))
		}
	case "cb_kafka_timeout_ms":
		var ms int
		if ms, err = parseNonNegativeInt(value); err == nil {
			cfg.Breaker.AttemptTimeout = time.Duration(ms) * time.Millisecond
		}
	case "cb_kafka_backoff_ms":
		var ms int
		if ms, err = parseNonNegativeInt(value); err == nil {
			cfg.Breaker.Backoff = time.Duration(ms) * time.Millisecond
		}
	case "mqtt_broker":
		cfg.MQTTBroker = value
	case "mqtt_client_id":
		err = nonEmpty(&cfg.MQTTClientID, value)
	case "mqtt_username":
		cfg.MQTTUsername = value
	case "mqtt_password":
		cfg.MQTTPassword = value
	case "mqtt_readings_topic":
		err = nonEmpty(&cfg.MQTTReadingsTopic, value)
	case "mqtt_device_topic":
		if !strings.Contains(value, "%s") {
			return errors.New("mqtt_device_topic must contain %s for the zone")
		}
		cfg.MQTTDeviceTopic = value
	case "redis_addr":
		cfg.RedisAddr = value
	case "redis_password":
		cfg.RedisPassword = value
	case "redis_db":
		cfg.RedisDB, err = parseNonNegativeInt(value)
	case "clickhouse_addr":
		cfg.ClickHouseAddr = value
	case "clickhouse_database":
		err = nonEmpty(&cfg.ClickHouseDatabase, value)
	case "clickhouse_username":
		cfg.ClickHouseUsername = value
	case "clickhouse_password":
		cfg.ClickHousePassword = value
	case "influx_url":
		cfg.InfluxURL = value
	case "influx_token":
		cfg.InfluxToken = value
	case "influx_org":
		err = nonEmpty(&cfg.InfluxOrg, value)
	case "influx_bucket":
		err = nonEmpty(&cfg.InfluxBucket, value)
	default:
		// Unknown keys are ignored to keep the loader forward-compatible.
	}
	return err
}

func nonEmpty(dst *string, v string) error {
	if v == "" {
		return errors.New("value cannot be empty")
	}
	*dst = v
	return nil
}

func nonEmptyList(dst *[]string, v string) error {
	items := splitAndTrim(v)
	if len(items) == 0 {
		return errors.New("list cannot be empty")
	}
	*dst = items
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitAndTrim(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parsePositiveMillis(v string) (time.Duration, error) {
	ms, err := parsePositiveInt(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parsePositiveInt(v string) (int, error) {
	n, err := parseNonNegativeInt(v)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return n, nil
}

func parseNonNegativeInt(v string) (int, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errors.New("value cannot be empty")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return 0, errors.New("value must not be negative")
	}
	return n, nil
}

func parseScore(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 || f > 100 {
		return 0, errors.New("score must be within 0..100")
	}
	return f, nil
}
