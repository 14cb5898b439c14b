package engine

import (
	"math"

	"github.com/eddiefleurent/optionsim/internal/models"
)

// Accountant owns the cash balance and applies transaction costs. Brokerage
// is charged on notional (strike times quantity) on both entry and exit;
// slippage is charged against the premium actually transacted, per leg.
// RealizedPnL in settled exit entries is net of the full round-trip costs, so
// the sum of all cash effects equals the sum of net realized P&L.
type Accountant struct {
	brokerageRate float64
	slippageRate  float64

	cash           float64
	totalBrokerage float64
	totalSlippage  float64

	// entry costs held back per open position until its exit settles
	pendingEntry map[string]float64
}

// NewAccountant creates an accountant starting from the initial cash balance.
func NewAccountant(initialCash, brokerageRate, slippageRate float64) *Accountant {
	return &Accountant{
		brokerageRate: brokerageRate,
		slippageRate:  slippageRate,
		cash:          initialCash,
		pendingEntry:  make(map[string]float64),
	}
}

// Cash returns the current balance.
func (a *Accountant) Cash() float64 { return a.cash }

// TotalBrokerage returns brokerage charged so far.
func (a *Accountant) TotalBrokerage() float64 { return a.totalBrokerage }

// TotalSlippage returns slippage charged so far.
func (a *Accountant) TotalSlippage() float64 { return a.totalSlippage }

// SettleEntry fills costs and cash effect on an ENTER entry and applies it
// to the balance. The entry's NetEntryCost and Legs must already be set.
func (a *Accountant) SettleEntry(e *models.TradeLogEntry) {
	brokerage, slippage := a.legCosts(e.Legs, func(l models.Leg) float64 { return l.EntryPremium })
	e.Brokerage = brokerage
	e.Slippage = slippage
	e.CashEffect = e.NetEntryCost - brokerage - slippage

	a.cash += e.CashEffect
	a.totalBrokerage += brokerage
	a.totalSlippage += slippage
	a.pendingEntry[e.PositionID] = brokerage + slippage
}

// SettleExit fills costs, cash effect, and the net realized P&L on an EXIT
// entry and applies it to the balance. The realized figure subtracts both
// this exit's costs and the position's entry costs.
func (a *Accountant) SettleExit(e *models.TradeLogEntry) {
	brokerage, slippage := a.legCosts(e.Legs, func(l models.Leg) float64 { return l.CurrentPremium })
	e.Brokerage = brokerage
	e.Slippage = slippage

	liquidation := legValue(e.Legs)
	e.CashEffect = liquidation - brokerage - slippage

	entryCosts := a.pendingEntry[e.PositionID]
	delete(a.pendingEntry, e.PositionID)

	e.RealizedPnL = liquidation + e.NetEntryCost - brokerage - slippage - entryCosts
	if d := math.Abs(e.NetEntryCost); d > 0 {
		e.PnLPercent = e.RealizedPnL / d
	} else {
		e.PnLPercent = 0
	}

	a.cash += e.CashEffect
	a.totalBrokerage += brokerage
	a.totalSlippage += slippage
}

func (a *Accountant) legCosts(legs []models.Leg, premium func(models.Leg) float64) (brokerage, slippage float64) {
	for _, l := range legs {
		q := float64(l.Quantity)
		brokerage += a.brokerageRate * l.Strike * q
		slippage += a.slippageRate * premium(l) * q
	}
	return brokerage, slippage
}

// legValue sums the signed mark-to-market value of legs at current premiums.
func legValue(legs []models.Leg) float64 {
	var v float64
	for i := range legs {
		v += legs[i].Value(legs[i].CurrentPremium)
	}
	return v
}
