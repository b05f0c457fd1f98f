// v1
// internal/readings/hub_test.go
package readings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestHubPublishNotifiesAndStores(t *testing.T) {
	h := NewHub(NewMemoryStore(time.Minute), quiet())
	var got []Snapshot
	cancel := h.OnChange(func(s Snapshot) { got = append(got, s) })

	soil := 40.0
	in := Snapshot{ZoneID: " zone-A ", Reading: engine.Reading{Temperature: 30, Humidity: 70, CO2: 1000, Light: 300, SoilMoisture: &soil}}
	if err := h.Publish(context.Background(), in); err != nil {
		t.Fatalf("publish: %v", err)
	}
	soil = 99
	if len(got) != 1 || got[0].ZoneID != "zone-A" || got[0].Source != "api" || got[0].ObservedAt.IsZero() {
		t.Fatalf("unexpected notification: %+v", got)
	}
	s, err := h.Snapshot(context.Background(), "zone-A")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if *s.Reading.SoilMoisture != 40 {
		t.Fatalf("stored snapshot must not alias caller memory, got %v", *s.Reading.SoilMoisture)
	}

	cancel()
	cancel()
	_ = h.Publish(context.Background(), Snapshot{ZoneID: "zone-A"})
	if len(got) != 1 {
		t.Fatalf("cancelled subscriber still notified")
	}
}

func TestHubRejectsEmptyZone(t *testing.T) {
	h := NewHub(NewMemoryStore(0), quiet())
	if err := h.Publish(context.Background(), Snapshot{}); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
}

func TestStaleSnapshotIsMissing(t *testing.T) {
	store := NewMemoryStore(time.Second)
	now := time.Unix(0, 0)
	store.c.WithClock(func() time.Time { return now })
	h := NewHub(store, quiet())
	_ = h.Publish(context.Background(), Snapshot{ZoneID: "zone-A"})
	now = now.Add(5 * time.Second)
	if _, err := h.Snapshot(context.Background(), "zone-A"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	if zones, _ := h.Zones(context.Background()); len(zones) != 0 {
		t.Fatalf("stale zone listed: %v", zones)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	s, err := DecodeSnapshot([]byte(`{"temperature":25,"humidity":60,"gasLevel":900,"light":300,"timestamp":1720612800000}`), "zone-B", "mqtt")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.ZoneID != "zone-B" || s.Reading.CO2 != 900 || s.ObservedAt.UnixMilli() != 1720612800000 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if s.Reading.SoilMoisture != nil {
		t.Fatalf("absent soil moisture must stay nil")
	}
	if _, err := DecodeSnapshot([]byte(`{"temperature":25}`), "zone-B", "mqtt"); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
	if _, err := DecodeSnapshot([]byte(`not json`), "zone-B", "mqtt"); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

var _ mqtt.Message = fakeMessage{}

func TestMQTTHandleUsesTopicZone(t *testing.T) {
	h := NewHub(NewMemoryStore(0), quiet())
	ing := NewMQTTIngest(nil, "", h, quiet())
	ing.handle(nil, fakeMessage{topic: "greenhouse/zone-C/readings", payload: []byte(`{"zoneId":"other","temperature":20,"humidity":50,"co2":800,"light":200}`)})
	s, err := h.Snapshot(context.Background(), "zone-C")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if s.Source != "mqtt" || s.Reading.Temperature != 20 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	ing.handle(nil, fakeMessage{topic: "greenhouse", payload: []byte(`{}`)})
	if zones, _ := h.Zones(context.Background()); len(zones) != 1 {
		t.Fatalf("malformed topic must be ignored, got %v", zones)
	}
}

type fakeReader struct {
	msgs      []kafka.Message
	committed int
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed += len(msgs)
	return nil
}

func TestKafkaIngestConsumesAndCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(NewMemoryStore(0), quiet())
	at := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)
	r := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		{Key: []byte("zone-D"), Value: []byte(`{"temperature":31,"humidity":55,"co2":700,"light":410}`), Time: at},
		{Key: []byte("zone-D"), Value: []byte(`garbage`)},
	}}
	if err := NewKafkaIngest(r, h, quiet()).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.committed != 2 {
		t.Fatalf("both messages should be committed, got %d", r.committed)
	}
	s, err := h.Snapshot(context.Background(), "zone-D")
	if err != nil || !s.ObservedAt.Equal(at) || s.Source != "kafka" {
		t.Fatalf("unexpected snapshot %+v err=%v", s, err)
	}
}
