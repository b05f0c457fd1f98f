// v1
// internal/readings/mqtt.go
package readings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultMQTTTopic carries one JSON reading per message, zone in the second level.
const DefaultMQTTTopic = "greenhouse/+/readings"

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// DialMQTT connects a paho client with auto reconnect.
func DialMQTT(cfg MQTTConfig, lg *slog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) { lg.Info("mqtt_connected", "broker", cfg.Broker) })
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) { lg.Warn("mqtt_connection_lost", "error", err) })

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	return client, nil
}

// MQTTIngest feeds sensor messages into the hub.
type MQTTIngest struct {
	client mqtt.Client
	topic  string
	hub    *Hub
	lg     *slog.Logger
}

func NewMQTTIngest(client mqtt.Client, topic string, hub *Hub, lg *slog.Logger) *MQTTIngest {
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	return &MQTTIngest{client: client, topic: topic, hub: hub, lg: lg}
}

func (m *MQTTIngest) Start() error {
	token := m.client.Subscribe(m.topic, 1, m.handle)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", m.topic, token.Error())
	}
	m.lg.Info("mqtt_subscribed", "topic", m.topic)
	return nil
}

func (m *MQTTIngest) Stop() {
	if token := m.client.Unsubscribe(m.topic); token.WaitTimeout(2*time.Second) && token.Error() != nil {
		m.lg.Warn("mqtt_unsubscribe_failed", "topic", m.topic, "error", token.Error())
	}
}

func (m *MQTTIngest) handle(_ mqtt.Client, msg mqtt.Message) {
	zone := zoneFromTopic(msg.Topic())
	if zone == "" {
		m.lg.Warn("mqtt_topic_without_zone", "topic", msg.Topic())
		return
	}
	s, err := DecodeSnapshot(msg.Payload(), zone, "mqtt")
	if err != nil {
		m.lg.Warn("mqtt_payload_rejected", "topic", msg.Topic(), "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.hub.Publish(ctx, s); err != nil {
		m.lg.Error("mqtt_publish_failed", "zone", zone, "error", err)
	}
}

// zoneFromTopic extracts the zone from greenhouse/{zone}/readings.
func zoneFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
