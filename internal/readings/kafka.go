// v1
// internal/readings/kafka.go
package readings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/circuitbreaker"
)

// NewKafkaReader builds a consumer-group reader for the readings topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
}

// KafkaIngest consumes readings keyed by zone and publishes them to the hub.
type KafkaIngest struct {
	reader  circuitbreaker.MessageReader
	hub     *Hub
	lg      *slog.Logger
	backoff time.Duration
}

func NewKafkaIngest(reader circuitbreaker.MessageReader, hub *Hub, lg *slog.Logger) *KafkaIngest {
	return &KafkaIngest{reader: reader, hub: hub, lg: lg, backoff: time.Second}
}

// Run blocks until ctx is cancelled. Undecodable messages are committed and skipped.
func (k *KafkaIngest) Run(ctx context.Context) error {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, circuitbreaker.ErrOpen) {
				k.lg.Warn("kafka_readings_breaker_open")
			} else {
				k.lg.Error("kafka_readings_fetch_failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(k.backoff):
			}
			continue
		}
		k.handle(ctx, msg)
		if err := k.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			k.lg.Warn("kafka_readings_commit_failed", "offset", msg.Offset, "error", err)
		}
	}
}

func (k *KafkaIngest) handle(ctx context.Context, msg kafka.Message) {
	s, err := DecodeSnapshot(msg.Value, string(msg.Key), "kafka")
	if err != nil {
		k.lg.Warn("kafka_reading_rejected", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		return
	}
	if s.ObservedAt.IsZero() && !msg.Time.IsZero() {
		s.ObservedAt = msg.Time.UTC()
	}
	if err := k.hub.Publish(ctx, s); err != nil {
		k.lg.Error("kafka_reading_publish_failed", "zone", s.ZoneID, "error", err)
	}
}
