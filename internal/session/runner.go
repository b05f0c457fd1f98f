// v2
// internal/session/runner.go
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrZoneBusy is returned when a zone already has a running session.
var ErrZoneBusy = errors.New("zone already has a running simulation")

// ErrNoSession is returned when a zone has no session to act on.
var ErrNoSession = errors.New("no simulation for zone")

// DefaultTickInterval drives the countdown of live sessions.
const DefaultTickInterval = 100 * time.Millisecond

// Sink receives every emitted event together with the session state right after it.
// Events of one session are delivered in order from a dedicated goroutine, so a
// slow sink never holds up Get, Stop or Active.
type Sink interface {
	SessionEvent(ctx context.Context, s Session, ev Event)
}

// Sinks fans events out to several sinks in order.
type Sinks []Sink

func (ss Sinks) SessionEvent(ctx context.Context, s Session, ev Event) {
	for _, sink := range ss {
		if sink != nil {
			sink.SessionEvent(ctx, s, ev)
		}
	}
}

type live struct {
	mu       sync.Mutex
	s        Session
	out      *outbox
	stop     chan struct{}
	stopOnce sync.Once
}

func (l *live) halt() { l.stopOnce.Do(func() { close(l.stop) }) }

// Runner drives live sessions, one ticker per session. Sessions in different
// zones never share state.
type Runner struct {
	mu       sync.Mutex
	zones    map[string]*live
	interval time.Duration
	now      func() time.Time
	sink     Sink
	lg       *slog.Logger
	base     context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Option customizes a Runner.
type Option func(*Runner)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

func NewRunner(sink Sink, lg *slog.Logger, opts ...Option) *Runner {
	base, cancel := context.WithCancel(context.Background())
	r := &Runner{
		zones:    map[string]*live{},
		interval: DefaultTickInterval,
		now:      time.Now,
		sink:     sink,
		lg:       lg,
		base:     base,
		cancel:   cancel,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start builds a session from spec and runs it until it completes or is stopped.
func (r *Runner) Start(spec Spec) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.base.Err() != nil {
		return Session{}, fmt.Errorf("runner stopped: %w", r.base.Err())
	}
	if cur, ok := r.zones[spec.ZoneID]; ok {
		cur.mu.Lock()
		busy := !cur.s.Status().Terminal()
		cur.mu.Unlock()
		if busy {
			return Session{}, fmt.Errorf("%w: %s", ErrZoneBusy, spec.ZoneID)
		}
	}
	s, events, err := New(spec).Start(r.now())
	if err != nil {
		return Session{}, err
	}
	l := &live{s: s, out: newOutbox(), stop: make(chan struct{})}
	r.zones[spec.ZoneID] = l
	l.out.push(s, events)
	r.lg.Info("session_started", "zone", spec.ZoneID, "session", s.ID(), "scenario", spec.Scenario.ID,
		"duration", s.Duration().String(), "activations", len(s.plan))
	r.wg.Add(2)
	go r.deliver(l.out)
	go r.drive(l)
	return s, nil
}

func (r *Runner) deliver(out *outbox) {
	defer r.wg.Done()
	out.drain(context.WithoutCancel(r.base), r.sink)
}

func (r *Runner) drive(l *live) {
	defer r.wg.Done()
	defer l.out.close()
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-r.base.Done():
			l.mu.Lock()
			next, events, err := l.s.Cancel(r.now())
			if err == nil {
				l.s = next
				l.out.push(next, events)
				r.lg.Info("session_cancelled_on_shutdown", "zone", next.ZoneID(), "session", next.ID())
			}
			l.mu.Unlock()
			return
		case <-t.C:
			l.mu.Lock()
			next, _, events := l.s.Tick(r.now())
			l.s = next
			l.out.push(next, events)
			l.mu.Unlock()
			if next.Status().Terminal() {
				r.lg.Info("session_finished", "zone", next.ZoneID(), "session", next.ID(), "status", string(next.Status()))
				return
			}
		}
	}
}

// Stop cancels the running session of a zone.
func (r *Runner) Stop(zone string) (Session, error) {
	r.mu.Lock()
	l, ok := r.zones[zone]
	r.mu.Unlock()
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNoSession, zone)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	next, events, err := l.s.Cancel(r.now())
	if err != nil {
		return l.s, err
	}
	l.s = next
	l.out.push(next, events)
	l.halt()
	r.lg.Info("session_stopped", "zone", zone, "session", next.ID(), "status", string(next.Status()))
	return next, nil
}

// Get returns the latest session of a zone and its progress as of now.
func (r *Runner) Get(zone string) (Session, Progress, error) {
	r.mu.Lock()
	l, ok := r.zones[zone]
	r.mu.Unlock()
	if !ok {
		return Session{}, Progress{}, fmt.Errorf("%w: %s", ErrNoSession, zone)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s, l.s.Progress(r.now()), nil
}

// Active lists the running sessions ordered by zone.
func (r *Runner) Active() []Session {
	r.mu.Lock()
	lives := make([]*live, 0, len(r.zones))
	for _, l := range r.zones {
		lives = append(lives, l)
	}
	r.mu.Unlock()
	out := make([]Session, 0, len(lives))
	for _, l := range lives {
		l.mu.Lock()
		if l.s.Status() == StatusRunning {
			out = append(out, l.s)
		}
		l.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZoneID() < out[j].ZoneID() })
	return out
}

// Now exposes the runner clock so callers render progress on the same timeline.
func (r *Runner) Now() time.Time { return r.now() }

// Run blocks until ctx is done, then cancels every live session and waits for
// their goroutines.
func (r *Runner) Run(ctx context.Context) error {
	<-ctx.Done()
	r.Close()
	return nil
}

// Close cancels all live sessions and waits for them to exit.
func (r *Runner) Close() {
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
}
