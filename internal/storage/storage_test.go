// v1
// internal/storage/storage_test.go
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
)

func TestMemoryRecorderNewestFirstAndBounded(t *testing.T) {
	m := NewMemoryRecorder(2)
	for _, id := range []string{"a", "b", "c"} {
		if err := m.RecordSession(context.Background(), session.Log{ID: id, ZoneID: "zone-A"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	_ = m.RecordSession(context.Background(), session.Log{ID: "x", ZoneID: "zone-B"})
	got, _ := m.History(context.Background(), "zone-A", 0)
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected history: %+v", got)
	}
	one, _ := m.History(context.Background(), "zone-A", 1)
	if len(one) != 1 || one[0].ID != "c" {
		t.Fatalf("limit not applied: %+v", one)
	}
	none, _ := m.History(context.Background(), "zone-C", 5)
	if len(none) != 0 {
		t.Fatalf("expected empty history")
	}
}

type failingRecorder struct{ err error }

func (f failingRecorder) RecordSession(context.Context, session.Log) error { return f.err }

func TestSessionRecordersJoinErrors(t *testing.T) {
	boom := errors.New("clickhouse down")
	mem := NewMemoryRecorder(0)
	rs := SessionRecorders{failingRecorder{boom}, nil, mem}
	err := rs.RecordSession(context.Background(), session.Log{ID: "a", ZoneID: "zone-A"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if got, _ := mem.History(context.Background(), "zone-A", 0); len(got) != 1 {
		t.Fatalf("a failing recorder must not stop the others")
	}
}

func TestInfluxRecorderWritesLineProtocol(t *testing.T) {
	var (
		mu   sync.Mutex
		body string
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		body, path = string(raw), r.URL.String()
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rec := NewInfluxRecorder(InfluxConfig{URL: srv.URL, Token: "t", Org: "greenhouse", Bucket: "climate"})
	defer rec.Close()
	res := engine.Result{EfficiencyScore: 82.5, EstimatedRecoveryTime: 12, Recommendations: make([]engine.Recommendation, 3)}
	at := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)
	if err := rec.RecordEvaluation(context.Background(), "zone-A", "tomato", res, at); err != nil {
		t.Fatalf("record: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(path, "bucket=climate") || !strings.Contains(path, "org=greenhouse") {
		t.Fatalf("unexpected write path %q", path)
	}
	if !strings.HasPrefix(body, "efficiency,crop=tomato,zone=zone-A ") {
		t.Fatalf("unexpected line protocol %q", body)
	}
	if !strings.Contains(body, "score=82.5") || !strings.Contains(body, "recommendations=3i") {
		t.Fatalf("missing fields in %q", body)
	}
}
