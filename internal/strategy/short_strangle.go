package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/optionsim/internal/config"
	"github.com/eddiefleurent/optionsim/internal/indicators"
	"github.com/eddiefleurent/optionsim/internal/models"
)

// KindShortStrangle tags positions opened by the short strangle strategy.
const KindShortStrangle = "short-strangle"

// ShortStrangle is a batch-mode credit strategy: sell an OTM call and an OTM
// put at symmetric percentage offsets, collect the combined premium, and buy
// both back on profit target, stop loss, or hold-period expiry. It walks the
// full series itself and emits the complete pre-cost trade log; the engine
// replays the log and applies brokerage and slippage.
type ShortStrangle struct {
	cfg    config.StrategyConfig
	tools  *MarketTools
	logger *logrus.Logger
}

// Compile-time capability check.
var _ BatchStrategy = (*ShortStrangle)(nil)

func init() {
	Register(KindShortStrangle, func(cfg config.StrategyConfig, tools *MarketTools, logger *logrus.Logger) (Strategy, error) {
		if tools == nil {
			return nil, fmt.Errorf("short strangle requires market tools")
		}
		return NewShortStrangle(cfg, tools, logger), nil
	})
}

// NewShortStrangle creates the strategy from validated configuration.
func NewShortStrangle(cfg config.StrategyConfig, tools *MarketTools, logger *logrus.Logger) *ShortStrangle {
	if logger == nil {
		logger = logrus.New()
	}
	return &ShortStrangle{cfg: cfg, tools: tools, logger: logger}
}

// Name returns the registered strategy name.
func (s *ShortStrangle) Name() string { return KindShortStrangle }

// openStrangle tracks the in-flight position during the batch walk.
type openStrangle struct {
	id       string
	entryBar models.Bar
	legs     []models.Leg
	netECost float64 // signed: credit positive
	daysHeld int
}

// Run walks the whole series and returns the pre-cost trade log. Entries are
// taken on the configured weekday once ATR is warm and its percentile rank
// clears the volatility threshold; exits are checked each bar in strict
// priority: profit target, then stop loss, then time expiry. Anything still
// open on the final bar is closed as end-of-data.
func (s *ShortStrangle) Run(ctx context.Context, series []models.Bar) ([]models.TradeLogEntry, error) {
	atr := indicators.NewATR(s.cfg.ATRPeriod)
	var log []models.TradeLogEntry
	var open *openStrangle

	var ranker volRanker
	rank := 0.0

	for i := range series {
		if err := ctx.Err(); err != nil {
			return log, err
		}
		bar := series[i]
		atr.Update(bar)
		if atr.Ready() {
			rank = ranker.Observe(atr.Value())
		}
		lastBar := i == len(series)-1

		if open != nil {
			entry, closed, err := s.manageOpen(ctx, open, bar, atr.Value(), lastBar)
			if err != nil {
				return log, err
			}
			if closed {
				log = append(log, entry)
				open = nil
			} else {
				open.daysHeld++
			}
		}

		if open == nil && !lastBar && atr.Ready() &&
			bar.Date.Weekday() == s.cfg.EntryWeekday() && bar.Close > 0 &&
			rank >= s.cfg.VolatilityThreshold {
			pos, entry, err := s.enter(ctx, bar, atr.Value())
			if err != nil {
				// A strangle is all-or-none: an unresolvable strike or
				// premium skips this entry rather than failing the run.
				s.logger.WithError(err).WithField("date", bar.Date.Format("2006-01-02")).
					Warn("strangle entry aborted")
				continue
			}
			log = append(log, entry)
			open = pos
		}
	}
	return log, nil
}

// enter sells the call and put at the configured OTM offsets, same expiry.
func (s *ShortStrangle) enter(ctx context.Context, bar models.Bar, volProxy float64) (*openStrangle, models.TradeLogEntry, error) {
	expiry := bar.Date.AddDate(0, 0, s.cfg.HoldDays)
	specs := []models.LegSpec{
		{Select: models.StrikeOTM, OffsetPct: s.cfg.OTMPct, Class: models.OptionCall, Side: models.SideShort, Quantity: s.cfg.LotSize},
		{Select: models.StrikeOTM, OffsetPct: s.cfg.OTMPct, Class: models.OptionPut, Side: models.SideShort, Quantity: s.cfg.LotSize},
	}
	legs, err := s.tools.BuildLegs(ctx, specs, bar.Close, volProxy, bar.Date, expiry)
	if err != nil {
		return nil, models.TradeLogEntry{}, err
	}

	var entryValue float64
	for i := range legs {
		entryValue += legs[i].Value(legs[i].EntryPremium)
	}
	pos := &openStrangle{
		id:       uuid.NewString(),
		entryBar: bar,
		legs:     legs,
		netECost: -entryValue,
	}
	s.logger.WithFields(logrus.Fields{
		"date":   bar.Date.Format("2006-01-02"),
		"spot":   bar.Close,
		"credit": pos.netECost,
	}).Debug("short strangle entered")

	return pos, models.TradeLogEntry{
		PositionID:   pos.id,
		Kind:         KindShortStrangle,
		Action:       models.ActionEnter,
		Date:         bar.Date,
		Spot:         bar.Close,
		Legs:         snapshotLegs(legs),
		NetEntryCost: pos.netECost,
	}, nil
}

// manageOpen reprices the strangle and checks exits in priority order. The
// returned entry is valid only when closed is true.
func (s *ShortStrangle) manageOpen(ctx context.Context, pos *openStrangle, bar models.Bar,
	volProxy float64, lastBar bool) (models.TradeLogEntry, bool, error) {
	expiry := pos.entryBar.Date.AddDate(0, 0, s.cfg.HoldDays)
	if err := s.tools.Reprice(ctx, pos.legs, bar.Close, volProxy, bar.Date, expiry); err != nil {
		return models.TradeLogEntry{}, false, err
	}

	var currentValue float64
	for i := range pos.legs {
		currentValue += pos.legs[i].Value(pos.legs[i].CurrentPremium)
	}
	pnl := currentValue + pos.netECost
	pnlPct := 0.0
	if d := math.Abs(pos.netECost); d > 0 {
		pnlPct = pnl / d
	}

	var reason models.ExitReason
	switch {
	case pnlPct >= s.cfg.ProfitTargetPct:
		reason = models.ExitProfitTarget
	case pnlPct <= -s.cfg.StopLossPct:
		reason = models.ExitStopLoss
	case pos.daysHeld >= s.cfg.HoldDays:
		reason = models.ExitTimeExpiry
	case lastBar:
		reason = models.ExitEndOfData
	default:
		return models.TradeLogEntry{}, false, nil
	}

	s.logger.WithFields(logrus.Fields{
		"date":   bar.Date.Format("2006-01-02"),
		"reason": reason,
		"pnl":    pnl,
	}).Debug("short strangle exit")

	return models.TradeLogEntry{
		PositionID:   pos.id,
		Kind:         KindShortStrangle,
		Action:       models.ActionExit,
		Date:         bar.Date,
		Spot:         bar.Close,
		Legs:         snapshotLegs(pos.legs),
		NetEntryCost: pos.netECost,
		RealizedPnL:  pnl,
		PnLPercent:   pnlPct,
		DaysHeld:     pos.daysHeld,
		ExitReason:   reason,
	}, true, nil
}

// volRankLookback caps the ranking window at roughly one trading year.
// Percentile rank is meaningful against recent volatility, not the whole
// history, and the cap keeps per-bar work bounded.
const volRankLookback = 252

// volRanker ranks each new ATR reading against a rolling window of prior
// readings. A sorted copy is kept alongside the chronological window so each
// observation is a binary search plus a bounded shift, never a rescan of the
// accumulated history. Selling premium is only worthwhile when volatility
// sits high in its own range; the configured threshold is compared against
// this rank.
type volRanker struct {
	window []float64 // chronological, oldest first
	sorted []float64 // same samples, ascending
}

// Observe records v and returns its percentile rank: the fraction of the
// prior window at or below v. The first sample ranks 0; one reading has no
// range to rank against.
func (r *volRanker) Observe(v float64) float64 {
	rank := 0.0
	if n := len(r.sorted); n > 0 {
		below := sort.Search(n, func(i int) bool { return r.sorted[i] > v })
		rank = float64(below) / float64(n)
	}
	if len(r.window) == volRankLookback {
		oldest := r.window[0]
		r.window = r.window[1:]
		at := sort.SearchFloat64s(r.sorted, oldest)
		r.sorted = append(r.sorted[:at], r.sorted[at+1:]...)
	}
	r.window = append(r.window, v)
	at := sort.SearchFloat64s(r.sorted, v)
	r.sorted = append(r.sorted, 0)
	copy(r.sorted[at+1:], r.sorted[at:])
	r.sorted[at] = v
	return rank
}

// snapshotLegs detaches the log's leg copies from the live slice.
func snapshotLegs(legs []models.Leg) []models.Leg {
	out := make([]models.Leg, len(legs))
	copy(out, legs)
	return out
}
