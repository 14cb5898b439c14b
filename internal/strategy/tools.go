package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/optionsim/internal/marketdata"
	"github.com/eddiefleurent/optionsim/internal/models"
	"github.com/eddiefleurent/optionsim/internal/pricing"
)

// MarketTools bundles the shared, read-only pricing services a strategy (and
// the engine's position manager) uses to turn leg specs into priced legs:
// strike ladders, strike resolution, and the recorded-or-estimated quoter.
// All methods are safe for concurrent use across isolated backtests.
type MarketTools struct {
	Symbol          string
	Quoter          *pricing.Quoter
	Provider        marketdata.Provider // ladder source; may be nil
	StrikeStep      float64
	StrikeTolerance float64
	LadderWidth     int
	Logger          *logrus.Logger
}

// Ladder returns the tradable strike ladder for an expiry: the provider's
// recorded ladder when one exists, otherwise a synthesized ladder around spot.
func (t *MarketTools) Ladder(ctx context.Context, spot float64, expiry time.Time, class models.OptionClass) ([]float64, error) {
	if t.Provider != nil {
		ladder, err := t.Provider.GetStrikes(ctx, t.Symbol, expiry, class)
		if err == nil && len(ladder) > 0 {
			return ladder, nil
		}
		if err != nil && !errors.Is(err, marketdata.ErrNotFound) {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			t.Logger.WithError(err).Debug("strike ladder lookup failed, synthesizing")
		}
	}
	ladder := pricing.SynthesizeLadder(spot, t.StrikeStep, t.LadderWidth)
	if len(ladder) == 0 {
		return nil, fmt.Errorf("cannot synthesize strike ladder for spot %.2f step %.2f", spot, t.StrikeStep)
	}
	return ladder, nil
}

// BuildLegs resolves and prices every requested leg, atomically: any single
// failure aborts the whole construction and no legs are returned. This is
// the all-legs-or-none entry rule.
func (t *MarketTools) BuildLegs(ctx context.Context, specs []models.LegSpec, spot, volProxy float64,
	date, expiry time.Time) ([]models.Leg, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no legs requested")
	}
	daysToExpiry := daysBetween(date, expiry)
	if daysToExpiry < 1 {
		daysToExpiry = 1
	}

	legs := make([]models.Leg, 0, len(specs))
	for i, spec := range specs {
		ladder, err := t.Ladder(ctx, spot, expiry, spec.Class)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		strike, err := pricing.ResolveStrike(spec, spot, ladder, t.StrikeTolerance)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		quote, err := t.Quoter.Premium(ctx, t.Symbol, strike, spec.Class, spot, volProxy, date, expiry, daysToExpiry)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		legs = append(legs, models.Leg{
			Strike:         strike,
			Class:          spec.Class,
			Side:           spec.Side,
			Quantity:       spec.Quantity,
			EntryPremium:   quote.Premium,
			CurrentPremium: quote.Premium,
		})
	}
	return legs, nil
}

// Reprice updates every leg's CurrentPremium in place for the given bar.
func (t *MarketTools) Reprice(ctx context.Context, legs []models.Leg, spot, volProxy float64,
	date, expiry time.Time) error {
	daysToExpiry := daysBetween(date, expiry)
	if daysToExpiry < 1 {
		daysToExpiry = 1
	}
	for i := range legs {
		quote, err := t.Quoter.Premium(ctx, t.Symbol, legs[i].Strike, legs[i].Class,
			spot, volProxy, date, expiry, daysToExpiry)
		if err != nil {
			return fmt.Errorf("repricing leg %d: %w", i, err)
		}
		legs[i].CurrentPremium = quote.Premium
	}
	return nil
}

// daysBetween returns whole days from a to b, truncated to calendar days.
func daysBetween(a, b time.Time) int {
	from := a.UTC().Truncate(24 * time.Hour)
	to := b.UTC().Truncate(24 * time.Hour)
	return int(to.Sub(from).Hours() / 24)
}
