// v1
// internal/bus/bus_test.go
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/catalog"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
)

type stubWriter struct {
	msgs []kafka.Message
	err  error
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPublishEvaluationKeyedByZone(t *testing.T) {
	rec := &stubWriter{}
	p := NewWithWriters(rec, &stubWriter{}, quiet())
	profile, _ := catalog.Profile("tomato")
	res := engine.Evaluate(engine.Reading{Temperature: 30, Humidity: 75, CO2: 1000, Light: 350}, profile)
	at := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)
	if err := p.PublishEvaluation(context.Background(), "zone-A", "tomato", res, at); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(rec.msgs) != 1 || string(rec.msgs[0].Key) != "zone-A" {
		t.Fatalf("unexpected messages: %+v", rec.msgs)
	}
	var got EvaluationMessage
	if err := json.Unmarshal(rec.msgs[0].Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CropType != "tomato" || !got.At.Equal(at) || len(got.Result.Recommendations) != len(res.Recommendations) {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSessionSinkAttachesLogOnTerminalEvents(t *testing.T) {
	ses := &stubWriter{}
	p := NewWithWriters(&stubWriter{}, ses, quiet())
	sc, _ := catalog.Lookup("coldsnap")
	profile, _ := catalog.Profile("pepper")
	t0 := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)

	s, evs, err := session.New(session.Spec{ZoneID: "zone-A", CropType: "pepper", Scenario: sc, Profile: profile}).Start(t0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, ev := range evs {
		p.SessionEvent(context.Background(), s, ev)
	}
	s, evs, _ = s.Cancel(t0.Add(time.Second))
	for _, ev := range evs {
		p.SessionEvent(context.Background(), s, ev)
	}
	if len(ses.msgs) != 2 {
		t.Fatalf("expected started and cancelled messages, got %d", len(ses.msgs))
	}
	var started, cancelled SessionMessage
	_ = json.Unmarshal(ses.msgs[0].Value, &started)
	_ = json.Unmarshal(ses.msgs[1].Value, &cancelled)
	if started.Type != session.EventStarted || started.Log != nil {
		t.Fatalf("unexpected started message: %+v", started)
	}
	if cancelled.Type != session.EventCancelled || cancelled.Log == nil || cancelled.Log.Status != session.LogAborted {
		t.Fatalf("unexpected cancelled message: %+v", cancelled)
	}
}

func TestPublishErrorsAreWrapped(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := NewWithWriters(&stubWriter{err: boom}, &stubWriter{err: boom}, quiet())
	if err := p.PublishEvaluation(context.Background(), "zone-A", "tomato", engine.Result{}, time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
