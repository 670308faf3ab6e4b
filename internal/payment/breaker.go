package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Breaker guards a Provider with a circuit breaker. While the circuit is open
// calls fail fast with ErrUnavailable.
type Breaker struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Provider, logger *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        "PaymentProvider",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	return execute(b.cb, func() (*Session, error) {
		return b.next.CreateCheckoutSession(ctx, req)
	})
}

func (b *Breaker) CheckoutSessionPaid(ctx context.Context, sessionID string) (bool, error) {
	return execute(b.cb, func() (bool, error) {
		return b.next.CheckoutSessionPaid(ctx, sessionID)
	})
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return *new(T), ErrUnavailable
		}
		return *new(T), err
	}

	return res.(T), nil
}
