package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jademcosta/courier/pkg/config"
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// MaxRequestsWhenHalfOpen is how many calls are let through to probe a
// recovering backend.
const MaxRequestsWhenHalfOpen = 1

type CircuitBreaker interface {
	Execute(func() (interface{}, error)) (interface{}, error)
}

// New builds the breaker that guards name. A single failure opens it for the
// configured interval. Cancelled calls do not count as failures.
func New(
	l *slog.Logger,
	metricRegistry *prometheus.Registry,
	conf config.CircuitBreakerConfig,
	name string,
) CircuitBreaker {

	if !conf.TurnOn {
		l.Warn("circuit breaker is turned off", "name", name)
		return NewDummyCircuitBreaker()
	}

	o11y := NewObservability(metricRegistry, l, name)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: MaxRequestsWhenHalfOpen,
		Timeout:     conf.OpenIntervalAsDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
			o11y.stateChanged(to)
		},
	})
}

func isSuccessful(err error) bool {
	return err == nil ||
		domain.IsCancellation(err) ||
		errors.Is(err, context.Canceled)
}

// IsOpen reports whether err means the breaker refused the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
