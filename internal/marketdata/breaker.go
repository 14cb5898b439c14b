package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/eddiefleurent/optionsim/internal/models"
)

// BreakerProvider wraps the premium and strike lookup paths with a circuit
// breaker. When a backing store is degraded (repeated lookup errors), the
// breaker opens and lookups fail fast with ErrNotFound, which routes pricing
// to the estimator fallback instead of stalling the simulation on every leg.
//
// GetSeries is deliberately not wrapped: a failed series fetch is a fatal
// DataUnavailable outcome for the run, not something to mask.
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
}

// Compile-time interface check.
var _ Provider = (*BreakerProvider)(nil)

// BreakerSettings configures circuit breaker behavior.
type BreakerSettings struct {
	MaxRequests  uint32        // max requests allowed when half-open
	Interval     time.Duration // counts reset interval
	Timeout      time.Duration // how long the circuit stays open
	MinRequests  uint32        // minimum requests before tripping
	FailureRatio float64       // failure ratio threshold
}

// NewBreakerProvider wraps inner with sensible defaults.
func NewBreakerProvider(inner Provider, logger *logrus.Logger) *BreakerProvider {
	return NewBreakerProviderWithSettings(inner, logger, BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	})
}

// NewBreakerProviderWithSettings wraps inner with custom breaker settings.
func NewBreakerProviderWithSettings(inner Provider, logger *logrus.Logger, settings BreakerSettings) *BreakerProvider {
	if logger == nil {
		logger = logrus.New()
	}
	gbSettings := gobreaker.Settings{
		Name:        "MarketDataLookups",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// A clean miss is not a store failure.
			return err == nil || errors.Is(err, ErrNotFound)
		},
	}
	return &BreakerProvider{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// execBreaker is a generic helper for circuit breaker wrapper methods.
func execBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Fail fast into the estimator fallback path.
			return zero, fmt.Errorf("lookup circuit open: %w", ErrNotFound)
		}
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// GetSeries passes through to the inner provider.
func (b *BreakerProvider) GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	return b.inner.GetSeries(ctx, symbol, start, end)
}

// GetRecordedPremium wraps the inner lookup with the circuit breaker.
func (b *BreakerProvider) GetRecordedPremium(ctx context.Context, symbol string, strike float64,
	class models.OptionClass, date, expiry time.Time) (float64, error) {
	return execBreaker(b.breaker, func() (float64, error) {
		return b.inner.GetRecordedPremium(ctx, symbol, strike, class, date, expiry)
	})
}

// GetStrikes wraps the inner lookup with the circuit breaker.
func (b *BreakerProvider) GetStrikes(ctx context.Context, symbol string, expiry time.Time,
	class models.OptionClass) ([]float64, error) {
	return execBreaker(b.breaker, func() ([]float64, error) {
		return b.inner.GetStrikes(ctx, symbol, expiry, class)
	})
}
