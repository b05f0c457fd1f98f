// v4
// internal/circuitbreaker/kafka.go
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of kafka.Writer guarded by the breaker.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageReader is the subset of kafka.Reader guarded by the breaker.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Settings are the breaker tunables loaded from configuration.
type Settings struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	OpenFor          time.Duration
	AttemptTimeout   time.Duration
	Backoff          time.Duration
}

// DefaultSettings mirrors the values used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenFor:          30 * time.Second,
		AttemptTimeout:   3 * time.Second,
		Backoff:          200 * time.Millisecond,
	}
}

// Validate rejects thresholds and durations the breaker cannot work with.
func (s Settings) Validate() error {
	switch {
	case s.FailureThreshold < 1:
		return fmt.Errorf("breaker failure threshold must be >= 1")
	case s.SuccessThreshold < 1:
		return fmt.Errorf("breaker success threshold must be >= 1")
	case s.OpenFor <= 0:
		return fmt.Errorf("breaker open duration must be > 0")
	case s.AttemptTimeout < 0 || s.Backoff < 0:
		return fmt.Errorf("breaker timeout and backoff must be >= 0")
	}
	return nil
}

// KafkaBreaker applies retry and fast-fail policy around Kafka calls.
type KafkaBreaker struct {
	settings Settings
	breaker  *Breaker
}

func NewKafkaBreaker(name string, s Settings, lg *slog.Logger, check func(ctx context.Context) error) (*KafkaBreaker, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	kb := &KafkaBreaker{settings: s}
	if s.Enabled {
		kb.breaker = New(name, Config{
			MaxFailures:      s.FailureThreshold,
			ResetTimeout:     s.OpenFor,
			SuccessesToClose: s.SuccessThreshold,
		}, lg, check)
	}
	return kb, nil
}

func (k *KafkaBreaker) Enabled() bool { return k != nil && k.settings.Enabled && k.breaker != nil }

func (k *KafkaBreaker) Breaker() *Breaker {
	if k == nil {
		return nil
	}
	return k.breaker
}

// OnStateChange forwards to the inner breaker; disabled breakers never
// report a transition.
func (k *KafkaBreaker) OnStateChange(fn func(State)) {
	if b := k.Breaker(); b != nil {
		b.OnStateChange(fn)
	}
}

// do retries op up to FailureThreshold times. An open breaker fails fast.
func (k *KafkaBreaker) do(ctx context.Context, op func(ctx context.Context) error) error {
	if !k.Enabled() {
		return op(ctx)
	}
	var lastErr error
	for attempt := 1; attempt <= k.settings.FailureThreshold; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		attemptCtx, cancel := k.attemptContext(ctx)
		err := k.breaker.Execute(attemptCtx, op)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrOpen) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		if attempt < k.settings.FailureThreshold {
			if werr := k.waitBackoff(ctx); werr != nil {
				return werr
			}
		}
	}
	return lastErr
}

func (k *KafkaBreaker) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if k.settings.AttemptTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, k.settings.AttemptTimeout)
}

func (k *KafkaBreaker) waitBackoff(ctx context.Context) error {
	if k.settings.Backoff <= 0 {
		return nil
	}
	timer := time.NewTimer(k.settings.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Writer guards a kafka writer.
type Writer struct {
	breaker *KafkaBreaker
	inner   MessageWriter
}

func NewWriter(inner MessageWriter, breaker *KafkaBreaker) *Writer {
	return &Writer{inner: inner, breaker: breaker}
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w == nil || w.inner == nil {
		return errors.New("nil kafka writer")
	}
	return w.breaker.do(ctx, func(c context.Context) error { return w.inner.WriteMessages(c, msgs...) })
}

// Reader guards a kafka reader. Fetches are never bounded by the attempt
// timeout since they block until a message arrives.
type Reader struct {
	breaker *KafkaBreaker
	inner   MessageReader
}

func NewReader(inner MessageReader, breaker *KafkaBreaker) *Reader {
	return &Reader{inner: inner, breaker: breaker}
}

func (r *Reader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r == nil || r.inner == nil {
		return kafka.Message{}, errors.New("nil kafka reader")
	}
	if !r.breaker.Enabled() {
		return r.inner.FetchMessage(ctx)
	}
	var msg kafka.Message
	err := r.breaker.breaker.Execute(ctx, func(c context.Context) error {
		var ferr error
		msg, ferr = r.inner.FetchMessage(c)
		return ferr
	})
	return msg, err
}

func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if r == nil || r.inner == nil {
		return errors.New("nil kafka reader")
	}
	return r.breaker.do(ctx, func(c context.Context) error { return r.inner.CommitMessages(c, msgs...) })
}
