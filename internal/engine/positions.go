package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/optionsim/internal/config"
	"github.com/eddiefleurent/optionsim/internal/models"
	"github.com/eddiefleurent/optionsim/internal/strategy"
)

// positionManager owns the single live position for a bar-by-bar run: it
// turns OPEN signals into priced positions, marks them to market each bar,
// evaluates exits in strict priority, and drives the state machine through
// every transition. All trade log entries it produces are settled through
// the accountant before being returned.
type positionManager struct {
	cfg    *config.Config
	tools  *strategy.MarketTools
	acct   *Accountant
	logger *logrus.Logger

	current *models.Position
	expiry  time.Time
}

func newPositionManager(cfg *config.Config, tools *strategy.MarketTools, acct *Accountant, logger *logrus.Logger) *positionManager {
	return &positionManager{cfg: cfg, tools: tools, acct: acct, logger: logger}
}

// hasOpen reports whether a position is currently live.
func (m *positionManager) hasOpen() bool { return m.current != nil }

// view builds the read-only snapshot handed to strategies. Strategies never
// see the position itself.
func (m *positionManager) view(now time.Time) strategy.PositionView {
	if m.current == nil {
		return strategy.PositionView{}
	}
	pnl := m.current.UnrealizedPnL()
	return strategy.PositionView{
		Open:          true,
		Kind:          m.current.Kind,
		DaysHeld:      m.current.DaysHeld(now),
		UnrealizedPnL: pnl,
		PnLPercent:    m.current.PnLPercent(pnl),
	}
}

// markValue is the live position's mark-to-market value, zero when flat.
func (m *positionManager) markValue() float64 {
	if m.current == nil {
		return 0
	}
	return m.current.CurrentValue()
}

// open prices the signal's legs and opens the position atomically: if any
// leg cannot be resolved or priced the whole entry is abandoned and the run
// continues flat. Only context cancellation is escalated.
func (m *positionManager) open(ctx context.Context, sig models.Signal, bar models.Bar, volProxy float64) (models.TradeLogEntry, bool, error) {
	if m.current != nil {
		return models.TradeLogEntry{}, false, NewFailure(FailureStrategyFault,
			fmt.Errorf("strategy signaled OPEN with position %s still open", m.current.ID))
	}
	if len(sig.Legs) == 0 {
		return models.TradeLogEntry{}, false, NewFailure(FailureStrategyFault,
			errors.New("strategy signaled OPEN with no legs"))
	}

	expiry := bar.Date.AddDate(0, 0, m.cfg.Strategy.HoldDays)
	legs, err := m.tools.BuildLegs(ctx, sig.Legs, bar.Close, volProxy, bar.Date, expiry)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.TradeLogEntry{}, false, NewFailure(FailureCanceled, err)
		}
		m.logger.WithError(err).WithField("date", bar.Date.Format("2006-01-02")).
			Warn("entry aborted, no legs opened")
		return models.TradeLogEntry{}, false, nil
	}

	pos := models.NewPosition(uuid.NewString(), sig.Kind, m.cfg.Symbol, bar.Date, bar.Close, legs)
	if err := pos.TransitionState(models.StateOpen, "position_opened", bar.Date); err != nil {
		return models.TradeLogEntry{}, false, NewFailure(FailureStrategyFault, err)
	}
	m.current = pos
	m.expiry = expiry

	entry := models.TradeLogEntry{
		PositionID:   pos.ID,
		Kind:         pos.Kind,
		Action:       models.ActionEnter,
		Date:         bar.Date,
		Spot:         bar.Close,
		Legs:         append([]models.Leg(nil), legs...),
		NetEntryCost: pos.NetEntryCost,
	}
	m.acct.SettleEntry(&entry)

	m.logger.WithFields(logrus.Fields{
		"position": pos.ID,
		"kind":     pos.Kind,
		"date":     bar.Date.Format("2006-01-02"),
		"cost":     pos.NetEntryCost,
	}).Info("position opened")
	return entry, true, nil
}

// markToMarket reprices the live position's legs for this bar.
func (m *positionManager) markToMarket(ctx context.Context, bar models.Bar, volProxy float64) error {
	if m.current == nil {
		return nil
	}
	if err := m.tools.Reprice(ctx, m.current.Legs, bar.Close, volProxy, bar.Date, m.expiry); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return NewFailure(FailureCanceled, err)
		}
		return NewFailure(FailureDataUnavailable, err)
	}
	return nil
}

// evaluateExit checks the threshold exits in strict priority: profit target,
// then stop loss, then time expiry. On the final bar any still-open position
// is closed as end-of-data.
func (m *positionManager) evaluateExit(bar models.Bar, lastBar bool) (models.ExitReason, bool) {
	if m.current == nil {
		return "", false
	}
	pnl := m.current.UnrealizedPnL()
	pct := m.current.PnLPercent(pnl)

	switch {
	case pct >= m.cfg.Strategy.ProfitTargetPct:
		return models.ExitProfitTarget, true
	case pct <= -m.cfg.Strategy.StopLossPct:
		return models.ExitStopLoss, true
	case m.current.DaysHeld(bar.Date) >= m.cfg.Strategy.HoldDays:
		return models.ExitTimeExpiry, true
	case lastBar:
		return models.ExitEndOfData, true
	}
	return "", false
}

// close liquidates the live position at current premiums and settles the
// exit entry. The position must have been marked to market for this bar.
func (m *positionManager) close(reason models.ExitReason, bar models.Bar) (models.TradeLogEntry, error) {
	pos := m.current
	if pos == nil {
		return models.TradeLogEntry{}, NewFailure(FailureStrategyFault,
			errors.New("close requested with no open position"))
	}
	if err := pos.TransitionState(models.StateClosed, string(reason), bar.Date); err != nil {
		return models.TradeLogEntry{}, NewFailure(FailureStrategyFault, err)
	}
	pos.ExitDate = bar.Date
	pos.ExitSpot = bar.Close
	pos.ExitReason = reason

	entry := models.TradeLogEntry{
		PositionID:   pos.ID,
		Kind:         pos.Kind,
		Action:       models.ActionExit,
		Date:         bar.Date,
		Spot:         bar.Close,
		Legs:         append([]models.Leg(nil), pos.Legs...),
		NetEntryCost: pos.NetEntryCost,
		DaysHeld:     pos.DaysHeld(bar.Date),
		ExitReason:   reason,
	}
	m.acct.SettleExit(&entry)
	pos.RealizedPnL = entry.RealizedPnL

	if err := pos.ValidateState(); err != nil {
		return models.TradeLogEntry{}, NewFailure(FailureStrategyFault, err)
	}

	m.logger.WithFields(logrus.Fields{
		"position": pos.ID,
		"reason":   reason,
		"pnl":      entry.RealizedPnL,
		"days":     entry.DaysHeld,
	}).Info("position closed")

	m.current = nil
	return entry, nil
}
