package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

type Settings struct {
	Name             string        `mapstructure:"name"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	return &CircuitBreaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        settings.Name,
			MaxRequests: settings.MaxRequests,
			Interval:    settings.Interval,
			Timeout:     settings.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				var abandoned *abandonedError
				return err == nil || errors.As(err, &abandoned)
			},
		}),
	}
}

// Execute runs fn unless the breaker is open. Failures returned by fn count
// towards tripping the breaker.
func (c *CircuitBreaker) Execute(fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

// abandonedError marks a failure caused by the caller giving up, which says
// nothing about the health of the protected dependency.
type abandonedError struct {
	err error
}

func (e *abandonedError) Error() string { return e.err.Error() }

func (e *abandonedError) Unwrap() error { return e.err }

// ExecuteContext is Execute for calls bound to ctx. Errors returned after ctx
// is done do not count towards tripping the breaker.
func (c *CircuitBreaker) ExecuteContext(ctx context.Context, fn func(ctx context.Context) error) error {
	err := c.Execute(func() error {
		err := fn(ctx)
		if err != nil && ctx.Err() != nil {
			return &abandonedError{err: err}
		}
		return err
	})
	var abandoned *abandonedError
	if errors.As(err, &abandoned) {
		return abandoned.err
	}
	return err
}

func (c *CircuitBreaker) State() string {
	return c.cb.State().String()
}
