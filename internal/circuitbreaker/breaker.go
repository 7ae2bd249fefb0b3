// v0
// internal/circuitbreaker/breaker.go
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"nrgchamp/cracfuzzy/internal/logging"
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
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	MaxFailures      int           // consecutive failures before opening
	ResetTimeout     time.Duration // how long to stay open before probing
	SuccessesToClose int           // successes required in HalfOpen before closing

	// OnStateChange, when set, is called after every transition outside the
	// breaker lock.
	OnStateChange func(name string, from, to State)
}

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger
	probe  func(ctx context.Context) error
	now    func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// New builds a breaker. probe, when non-nil, runs before the first
// operation after the open period expires.
func New(name string, cfg Config, logger *slog.Logger, probe func(ctx context.Context) error) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 1
	}
	if cfg.SuccessesToClose < 1 {
		cfg.SuccessesToClose = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	b := &Breaker{name: name, cfg: cfg, logger: logger, probe: probe, now: time.Now}
	b.logger.Info("breaker_created", "name", name, "maxFailures", cfg.MaxFailures, "resetTimeout", cfg.ResetTimeout.String(), "successesToClose", cfg.SuccessesToClose)
	return b
}

// Execute runs op unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	if b.state == Open {
		since := b.now().Sub(b.openedAt)
		if since < b.cfg.ResetTimeout {
			b.mu.Unlock()
			b.logger.Debug("breaker_fast_fail", "name", b.name, "sinceOpen", since.String())
			return ErrOpen
		}
		b.mu.Unlock()
		b.transition(HalfOpen)
		if b.probe != nil {
			if err := b.probe(ctx); err != nil {
				b.logger.Warn("breaker_probe_failed", "name", b.name, "err", err)
				b.trip()
				return ErrOpen
			}
			b.logger.Info("breaker_probe_ok", "name", b.name)
		}
	} else {
		b.mu.Unlock()
	}

	err := op(ctx)
	if err == nil {
		b.onSuccess()
		return nil
	}
	if b.onFailure(err) {
		return ErrOpen
	}
	return err
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	switch b.state {
	case HalfOpen:
		b.successes++
		if b.successes < b.cfg.SuccessesToClose {
			b.mu.Unlock()
			return
		}
	case Closed:
		b.failures = 0
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.transition(Closed)
}

// onFailure reports whether the failure opened the breaker.
func (b *Breaker) onFailure(err error) bool {
	b.mu.Lock()
	b.failures++
	n, st := b.failures, b.state
	b.mu.Unlock()
	b.logger.Warn("operation_failure", "name", b.name, "failures", n, "err", err)
	if st == HalfOpen || n >= b.cfg.MaxFailures {
		b.trip()
		return true
	}
	return false
}

func (b *Breaker) trip() {
	b.transition(Open)
}

func (b *Breaker) transition(to State) {
	b.mu.Lock()
	from := b.state
	b.state = to
	switch to {
	case Open:
		b.openedAt = b.now()
		b.successes = 0
	case HalfOpen:
		b.successes = 0
	case Closed:
		b.failures = 0
		b.successes = 0
	}
	b.mu.Unlock()
	if from == to {
		return
	}
	b.logger.Info("breaker_state_changed", "name", b.name, "from", from.String(), "to", to.String())
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Name() string { return b.name }
