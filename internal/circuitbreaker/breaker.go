// v4
// internal/circuitbreaker/breaker.go
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	MaxFailures      int           // consecutive failures before opening
	ResetTimeout     time.Duration // wait before probing again
	SuccessesToClose int           // successes required in HalfOpen before closing
}

type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	recentFails int
	halfOpenOK  int
	openedAt    time.Time
	now         func() time.Time
	onChange    func(State)

	check func(ctx context.Context) error
}

// New builds a closed breaker. check, when set, is run before the first
// operation after the reset timeout.
func New(name string, cfg Config, lg *slog.Logger, check func(ctx context.Context) error) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 1
	}
	if cfg.SuccessesToClose < 1 {
		cfg.SuccessesToClose = 1
	}
	if lg == nil {
		lg = slog.Default()
	}
	b := &Breaker{name: name, cfg: cfg, logger: lg, state: Closed, check: check, now: time.Now}
	b.logger.Info("breaker_created", "name", name, "state", b.state.String(), "maxFailures", cfg.MaxFailures, "resetTimeout", cfg.ResetTimeout.String())
	return b
}

// OnStateChange registers fn to be called on every transition. fn runs with
// the breaker locked and must not call back into it.
func (b *Breaker) OnStateChange(fn func(State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
	if fn != nil {
		fn(b.state)
	}
}

func (b *Breaker) setLocked(s State) {
	if b.state == s {
		return
	}
	b.state = s
	if b.onChange != nil {
		b.onChange(s)
	}
}

// Execute runs op unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	if b.state == Open {
		if since := b.now().Sub(b.openedAt); since < b.cfg.ResetTimeout {
			b.mu.Unlock()
			b.logger.Warn("breaker_fast_fail", "name", b.name, "since_open", since.String())
			return ErrOpen
		}
		b.setLocked(HalfOpen)
		b.halfOpenOK = 0
		b.logger.Info("breaker_half_open", "name", b.name, "previous_failures", b.recentFails)
		if b.check != nil {
			b.mu.Unlock()
			if err := b.check(ctx); err != nil {
				b.logger.Warn("breaker_check_failed", "name", b.name, "error", err.Error())
				b.trip()
				return ErrOpen
			}
			b.mu.Lock()
		}
	}
	b.mu.Unlock()

	if err := op(ctx); err != nil {
		b.onFailure(err)
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setLocked(Open)
	b.openedAt = b.now()
	b.logger.Error("breaker_opened", "name", b.name, "failures", b.recentFails)
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.halfOpenOK++
		if b.halfOpenOK >= b.cfg.SuccessesToClose {
			b.setLocked(Closed)
			b.recentFails = 0
			b.logger.Info("breaker_closed", "name", b.name)
		}
	default:
		b.recentFails = 0
	}
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	b.recentFails++
	b.logger.Warn("operation_failure", "name", b.name, "failures", b.recentFails, "error", err.Error())
	reopen := b.state == HalfOpen || b.recentFails >= b.cfg.MaxFailures
	b.mu.Unlock()
	if reopen {
		b.trip()
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
