// Package circuitbreaker guards the exchange collaborator: after a run
// of consecutive call failures the breaker opens and callers fall back
// to cached and synthetic data instead of hammering a dead feed. After a
// cooldown one probe call is let through; its outcome decides whether
// the breaker closes again.
package circuitbreaker

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	cooldown         time.Duration

	state               state
	consecutiveFailures int
	openedAt            time.Time

	logger *zap.Logger
	now    func() time.Time
}

// Config holds circuit breaker configuration.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before allowing a
	// probe call.
	Cooldown time.Duration
	Logger   *zap.Logger
}

// Status holds current breaker status for the debug surface.
type Status struct {
	Open                bool
	ConsecutiveFailures int
	OpenedAt            time.Time
}

// New creates a circuit breaker.
func New(cfg *Config) (*Breaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive")
	}
	if cfg.Cooldown <= 0 {
		return nil, fmt.Errorf("cooldown must be positive")
	}

	BreakerOpen.Set(0)

	return &Breaker{
		failureThreshold: cfg.FailureThreshold,
		cooldown:         cfg.Cooldown,
		logger:           cfg.Logger,
		now:              time.Now,
	}, nil
}

// SetClock overrides the time source. Test hook.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Allow reports whether a call may proceed. While open it returns false
// until the cooldown elapses, then lets exactly one probe through.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateHalfOpen:
		// A probe is already in flight.
		return false
	default:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = stateHalfOpen
		BreakerProbesTotal.Inc()
		b.logger.Info("circuit-breaker-probing")
		return true
	}
}

// RecordSuccess notes a successful call, closing the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != stateClosed {
		b.logger.Info("circuit-breaker-closed",
			zap.Int("failures-before-recovery", b.consecutiveFailures))
	}
	b.state = stateClosed
	b.consecutiveFailures = 0
	BreakerOpen.Set(0)
}

// RecordFailure notes a failed call. Crossing the threshold, or failing
// the half-open probe, opens the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++

	shouldOpen := b.state == stateHalfOpen || (b.state == stateClosed && b.consecutiveFailures >= b.failureThreshold)
	if !shouldOpen {
		return
	}

	b.state = stateOpen
	b.openedAt = b.now()
	BreakerOpen.Set(1)
	BreakerTripsTotal.Inc()
	b.logger.Warn("circuit-breaker-opened",
		zap.Int("consecutive-failures", b.consecutiveFailures),
		zap.Duration("cooldown", b.cooldown))
}

// Status returns the current breaker state.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Open:                b.state != stateClosed,
		ConsecutiveFailures: b.consecutiveFailures,
		OpenedAt:            b.openedAt,
	}
}
