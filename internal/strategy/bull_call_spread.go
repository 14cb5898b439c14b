package strategy

import (
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/optionsim/internal/config"
	"github.com/eddiefleurent/optionsim/internal/indicators"
	"github.com/eddiefleurent/optionsim/internal/models"
)

// KindBullCallSpread tags positions opened by the bull call spread strategy.
const KindBullCallSpread = "bull-call-spread"

// minWindowBars is the minimum trailing history before any entry is considered.
const minWindowBars = 100

// BullCallSpread is a bar-by-bar debit strategy: buy the ATM call, sell a
// call one strike-spacing higher, same expiry. Limited profit (spread width
// minus debit), limited loss (the debit). Entries require the configured
// weekday, positive momentum, and a volatility regime at or above its longer
// -run average. Exits are left to the engine's threshold evaluation.
type BullCallSpread struct {
	cfg    config.StrategyConfig
	logger *logrus.Logger

	atr     *indicators.ATR // volatility over the configured period
	slowATR *indicators.ATR // 3x period baseline for the regime gate
}

// Compile-time capability check.
var _ BarStrategy = (*BullCallSpread)(nil)

func init() {
	Register(KindBullCallSpread, func(cfg config.StrategyConfig, _ *MarketTools, logger *logrus.Logger) (Strategy, error) {
		return NewBullCallSpread(cfg, logger), nil
	})
}

// NewBullCallSpread creates the strategy from validated configuration.
func NewBullCallSpread(cfg config.StrategyConfig, logger *logrus.Logger) *BullCallSpread {
	if logger == nil {
		logger = logrus.New()
	}
	return &BullCallSpread{
		cfg:     cfg,
		logger:  logger,
		atr:     indicators.NewATR(cfg.ATRPeriod),
		slowATR: indicators.NewATR(cfg.ATRPeriod * 3),
	}
}

// Name returns the registered strategy name.
func (s *BullCallSpread) Name() string { return KindBullCallSpread }

// OnBar updates indicators and decides whether to open a spread. While a
// position is open the strategy stays silent; profit target, stop loss and
// time expiry are evaluated by the engine.
func (s *BullCallSpread) OnBar(bar models.Bar, window []models.Bar, pos PositionView) (models.Signal, error) {
	s.atr.Update(bar)
	s.slowATR.Update(bar)

	if pos.Open {
		return models.None(), nil
	}
	if len(window) < minWindowBars || !s.atr.Ready() {
		return models.None(), nil
	}
	if bar.Date.Weekday() != s.cfg.EntryWeekday() {
		return models.None(), nil
	}
	if s.momentum(window) < s.cfg.MomentumThreshold {
		return models.None(), nil
	}
	if !s.volatilityOK() {
		return models.None(), nil
	}

	spot := bar.Close
	if spot <= 0 {
		return models.None(), nil
	}
	// The short call sits one strike-spacing above ATM, expressed as a
	// relative offset so strike resolution stays symbolic.
	offset := s.cfg.StrikeSpacing / spot

	legs := []models.LegSpec{
		{Select: models.StrikeATM, Class: models.OptionCall, Side: models.SideLong, Quantity: s.cfg.LotSize},
		{Select: models.StrikeOTM, OffsetPct: offset, Class: models.OptionCall, Side: models.SideShort, Quantity: s.cfg.LotSize},
	}
	s.logger.WithFields(logrus.Fields{
		"date": bar.Date.Format("2006-01-02"),
		"spot": spot,
	}).Debug("bull call spread entry signal")
	return models.Open(KindBullCallSpread, legs), nil
}

// momentum is the fractional close-to-close change over the lookback.
func (s *BullCallSpread) momentum(window []models.Bar) float64 {
	lb := s.cfg.MomentumLookback
	if len(window) <= lb {
		return 0
	}
	past := window[len(window)-1-lb].Close
	if past == 0 {
		return 0
	}
	return (window[len(window)-1].Close - past) / past
}

// volatilityOK gates entries on the current ATR relative to its longer-run
// baseline. Before the slow baseline is warm the gate passes.
func (s *BullCallSpread) volatilityOK() bool {
	if !s.slowATR.Ready() {
		return true
	}
	base := s.slowATR.Value()
	if base == 0 {
		return true
	}
	return s.atr.Value()/base >= s.cfg.VolatilityThreshold
}
