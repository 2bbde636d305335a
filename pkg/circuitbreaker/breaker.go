// Package circuitbreaker isolates failing external dependencies.
// It wraps sony/gobreaker with consecutive-failure tripping and a single
// half-open probe, which is the behavior the AI advisor integration needs:
// stop calling a failing service, then test it with exactly one request
// after the cooldown.
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	apperrors "github.com/scriptcycle/rxrecommender/pkg/errors"
)

// State represents the circuit breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config holds circuit breaker configuration
type Config struct {
	// Name identifies the protected dependency
	Name string
	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold uint32
	// Cooldown is how long the circuit stays open before allowing a probe
	Cooldown time.Duration
}

// DefaultConfig returns defaults suitable for the AI advisor dependency
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// Breaker gates calls to a single external dependency. One Breaker is
// shared by every caller for the process lifetime of the dependency.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger zerolog.Logger
}

// New creates a new circuit breaker
func New(cfg Config, logger zerolog.Logger) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}

	b := &Breaker{
		name:   cfg.Name,
		logger: logger,
	}

	settings := gobreaker.Settings{
		Name: cfg.Name,
		// A single probe request is allowed through in half-open state.
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.logger.Warn().
				Str("breaker", name).
				Str("from", string(mapState(from))).
				Str("to", string(mapState(to))).
				Msg("circuit breaker state changed")
		},
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

// Execute runs fn through the circuit breaker. When the circuit is open,
// or the half-open probe slot is taken, it returns a CIRCUIT_OPEN error
// without invoking fn.
func (b *Breaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewCircuitOpenError(b.name + " circuit is open")
		}
		return nil, err
	}
	return result, nil
}

// ExecuteWithFallback runs fn through the breaker and invokes fallback
// for every failure, passing the original error through.
func (b *Breaker) ExecuteWithFallback(
	ctx context.Context,
	fn func() (interface{}, error),
	fallback func(error) (interface{}, error),
) (interface{}, error) {
	result, err := b.Execute(ctx, fn)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindCircuitOpen) {
			b.logger.Warn().Str("breaker", b.name).Msg("circuit open, using fallback")
		}
		return fallback(err)
	}
	return result, nil
}

// State returns the current circuit breaker state
func (b *Breaker) State() State {
	return mapState(b.cb.State())
}

// ConsecutiveFailures returns the current consecutive failure count
func (b *Breaker) ConsecutiveFailures() uint32 {
	return b.cb.Counts().ConsecutiveFailures
}

// Name returns the name of the protected dependency
func (b *Breaker) Name() string {
	return b.name
}

func mapState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
