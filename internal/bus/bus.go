// v1
// internal/bus/bus.go
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/circuitbreaker"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
)

// Config names the topics the publisher writes to.
type Config struct {
	Brokers             []string
	RecommendationTopic string
	SessionTopic        string
}

// EvaluationMessage is published for every live evaluation.
type EvaluationMessage struct {
	ZoneID   string        `json:"zoneId"`
	CropType string        `json:"cropType"`
	At       time.Time     `json:"at"`
	Result   engine.Result `json:"result"`
}

// SessionMessage wraps a session event. Log is set on terminal events.
type SessionMessage struct {
	session.Event
	Log *session.Log `json:"log,omitempty"`
}

// Publisher writes zone keyed JSON messages to Kafka.
type Publisher struct {
	lg              *slog.Logger
	recommendations circuitbreaker.MessageWriter
	sessions        circuitbreaker.MessageWriter
	closers         []func() error
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

// New builds the Kafka writers, each guarded by breaker.
func New(cfg Config, breaker *circuitbreaker.KafkaBreaker, lg *slog.Logger) *Publisher {
	rec := newWriter(cfg.Brokers, cfg.RecommendationTopic)
	ses := newWriter(cfg.Brokers, cfg.SessionTopic)
	p := NewWithWriters(circuitbreaker.NewWriter(rec, breaker), circuitbreaker.NewWriter(ses, breaker), lg)
	p.closers = []func() error{rec.Close, ses.Close}
	return p
}

// NewWithWriters accepts prebuilt writers.
func NewWithWriters(recommendations, sessions circuitbreaker.MessageWriter, lg *slog.Logger) *Publisher {
	if lg == nil {
		lg = slog.Default()
	}
	return &Publisher{lg: lg.With("component", "kafka-bus"), recommendations: recommendations, sessions: sessions}
}

func (p *Publisher) write(ctx context.Context, w circuitbreaker.MessageWriter, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: raw, Time: time.Now().UTC()})
}

func (p *Publisher) PublishEvaluation(ctx context.Context, zone, crop string, res engine.Result, at time.Time) error {
	msg := EvaluationMessage{ZoneID: zone, CropType: crop, At: at.UTC(), Result: res}
	if err := p.write(ctx, p.recommendations, zone, msg); err != nil {
		return fmt.Errorf("publish evaluation %s: %w", zone, err)
	}
	return nil
}

func (p *Publisher) PublishSessionEvent(ctx context.Context, s session.Session, ev session.Event) error {
	msg := SessionMessage{Event: ev}
	if lg, ok := s.Log(); ok && (ev.Type == session.EventCompleted || ev.Type == session.EventCancelled) {
		msg.Log = &lg
	}
	if err := p.write(ctx, p.sessions, ev.ZoneID, msg); err != nil {
		return fmt.Errorf("publish session event %s: %w", ev.SessionID, err)
	}
	return nil
}

// SessionEvent implements session.Sink. Failures are logged.
func (p *Publisher) SessionEvent(ctx context.Context, s session.Session, ev session.Event) {
	if err := p.PublishSessionEvent(ctx, s, ev); err != nil {
		p.lg.Warn("session_event_publish_failed", "zone", ev.ZoneID, "type", string(ev.Type), "error", err)
	}
}

func (p *Publisher) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
