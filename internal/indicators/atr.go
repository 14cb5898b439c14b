// Package indicators provides streaming technical indicators used by the
// simulation. All indicators are O(1) per bar after warmup.
package indicators

import (
	"fmt"
	"math"

	"github.com/eddiefleurent/optionsim/internal/models"
)

// ATR is a streaming Average True Range indicator using Wilder's smoothing.
// It serves as the volatility proxy for premium estimation; it is an
// approximation of implied volatility, not a calibrated pricing input.
type ATR struct {
	period      int
	atr         float64
	count       int
	warmupSum   float64
	prevBar     models.Bar
	hasPrevious bool
}

// NewATR creates an Average True Range indicator with the given period.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Name identifies the indicator including its period.
func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

// Warmup returns the number of bars needed before Value is meaningful.
// TR requires the previous bar, hence period+1.
func (a *ATR) Warmup() int {
	return a.period + 1
}

// Reset clears all accumulated state.
func (a *ATR) Reset() {
	a.atr = 0
	a.count = 0
	a.warmupSum = 0
	a.hasPrevious = false
}

// Update feeds one bar into the indicator.
func (a *ATR) Update(b models.Bar) {
	if !a.hasPrevious {
		a.prevBar = b
		a.hasPrevious = true
		return
	}

	tr := trueRange(b, a.prevBar)

	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
	} else {
		// Wilder's smoothing
		a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
	}

	a.prevBar = b
}

// Ready reports whether the warmup period has completed.
func (a *ATR) Ready() bool {
	return a.count >= a.period
}

// Value returns the current ATR, or 0 before warmup completes.
func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

// trueRange calculates the True Range for a bar given the previous bar.
func trueRange(current, previous models.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
