package binance

import (
	"context"
	"errors"
	"sync"

	drepo "Sentinel/internal/domain/repository"
	"Sentinel/pkg/config"
	applogger "Sentinel/pkg/logger"

	"github.com/sony/gobreaker"
)

// breakers holds one circuit breaker per endpoint family, so a failing
// endpoint does not block the others.
type breakers struct {
	mu       sync.Mutex
	cfg      config.Exchange
	logger   *applogger.Logger
	breakers map[string]*gobreaker.CircuitBreaker
}

func newBreakers(cfg config.Exchange, logger *applogger.Logger) *breakers {
	return &breakers{
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (b *breakers) get(name string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[name]; ok {
		return cb
	}
	maxFailures := b.cfg.Breaker.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    b.cfg.Breaker.Interval,
		Timeout:     b.cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// the exchange answered; the caller just gave up or got nothing
			return err == nil ||
				errors.Is(err, drepo.ErrNoData) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("exchange circuit state change",
				applogger.String("endpoint", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	})
	b.breakers[name] = cb
	return cb
}

// State reports the breaker state for name; unknown names are closed.
func (b *breakers) State(name string) gobreaker.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[name]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}
