// Package pricing provides premium estimation, strike resolution, and the
// recorded-premium-preferred quoter used for leg pricing and mark-to-market.
// Everything in this package is a pure function over its inputs and safe to
// share across concurrently running backtests.
package pricing

import (
	"math"

	"github.com/eddiefleurent/optionsim/internal/models"
)

// Estimator defaults. The reference horizon scales the volatility proxy to
// the option's remaining life; the decay constant discounts time value as the
// strike moves away from spot.
const (
	DefaultReferenceHorizonDays = 5.0
	DefaultMoneynessDecay       = 2.0
)

// Estimator approximates an option premium from a volatility proxy (typically
// ATR) when no recorded market premium is available. It is documented as an
// approximation, not a calibrated pricing model: time value scales with
// sqrt(time) and decays exponentially with moneyness.
type Estimator struct {
	// ReferenceHorizonDays normalizes daysToExpiry inside the sqrt term.
	ReferenceHorizonDays float64
	// MoneynessDecay controls how fast time value dies off away from spot.
	MoneynessDecay float64
}

// NewEstimator returns an Estimator with the default constants.
func NewEstimator() *Estimator {
	return &Estimator{
		ReferenceHorizonDays: DefaultReferenceHorizonDays,
		MoneynessDecay:       DefaultMoneynessDecay,
	}
}

// Estimate returns an estimated premium, floored at zero.
//
// intrinsic = max(0, spot-strike) for calls, max(0, strike-spot) for puts
// time value = volProxy * sqrt(days/horizon) * exp(-moneyness*decay)
func (e *Estimator) Estimate(strike float64, class models.OptionClass, spot, volProxy float64, daysToExpiry int) float64 {
	if spot <= 0 || strike <= 0 || daysToExpiry <= 0 {
		return 0
	}

	var intrinsic float64
	switch class {
	case models.OptionCall:
		intrinsic = math.Max(0, spot-strike)
	case models.OptionPut:
		intrinsic = math.Max(0, strike-spot)
	default:
		return 0
	}

	horizon := e.ReferenceHorizonDays
	if horizon <= 0 {
		horizon = DefaultReferenceHorizonDays
	}
	moneyness := math.Abs(spot-strike) / spot
	timeValue := volProxy * math.Sqrt(float64(daysToExpiry)/horizon) * math.Exp(-moneyness*e.MoneynessDecay)

	premium := intrinsic + timeValue
	if premium < 0 {
		return 0
	}
	return premium
}
