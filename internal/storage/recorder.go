// v1
// internal/storage/recorder.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/engine"
	"github.com/buildWitKulture/kultivate-greenhouse-climate-control/internal/session"
)

// SessionRecorder persists finished session logs.
type SessionRecorder interface {
	RecordSession(ctx context.Context, lg session.Log) error
}

// HistoryReader returns the latest session logs of a zone, newest first.
type HistoryReader interface {
	History(ctx context.Context, zone string, limit int) ([]session.Log, error)
}

// EfficiencyRecorder stores one point per live evaluation.
type EfficiencyRecorder interface {
	RecordEvaluation(ctx context.Context, zone, crop string, res engine.Result, at time.Time) error
}

// SessionRecorders fans one log out to several recorders, joining their errors.
type SessionRecorders []SessionRecorder

func (rs SessionRecorders) RecordSession(ctx context.Context, lg session.Log) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.RecordSession(ctx, lg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
