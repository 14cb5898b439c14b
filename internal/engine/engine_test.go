package engine

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/optionsim/internal/config"
	"github.com/eddiefleurent/optionsim/internal/marketdata"
	"github.com/eddiefleurent/optionsim/internal/models"
	"github.com/eddiefleurent/optionsim/internal/pricing"
	"github.com/eddiefleurent/optionsim/internal/strategy"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// weekdayBars builds n weekday bars starting Monday 2023-01-02 with a flat
// close, so option P&L is driven purely by the scripted premiums.
func weekdayBars(n int, close float64) []models.Bar {
	bars := make([]models.Bar, 0, n)
	d := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for len(bars) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			bars = append(bars, models.Bar{
				Date: d, Open: close, High: close + 20, Low: close - 20, Close: close, Volume: 1000,
			})
		}
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

// scriptProvider serves a canned series and per-date recorded premiums.
type scriptProvider struct {
	series    []models.Bar
	premiums  map[string]float64
	seriesErr error
}

func premiumKey(strike float64, class models.OptionClass, date time.Time) string {
	return fmt.Sprintf("%.0f|%s|%s", strike, class, date.Format("2006-01-02"))
}

func (p *scriptProvider) GetSeries(_ context.Context, _ string, _, _ time.Time) ([]models.Bar, error) {
	if p.seriesErr != nil {
		return nil, p.seriesErr
	}
	return p.series, nil
}

func (p *scriptProvider) GetRecordedPremium(_ context.Context, _ string, strike float64,
	class models.OptionClass, date, _ time.Time) (float64, error) {
	if prem, ok := p.premiums[premiumKey(strike, class, date)]; ok {
		return prem, nil
	}
	return 0, marketdata.ErrNotFound
}

func (p *scriptProvider) GetStrikes(_ context.Context, _ string, _ time.Time,
	_ models.OptionClass) ([]float64, error) {
	return nil, marketdata.ErrNotFound
}

// scriptedBar drives the bar-by-bar path from a closure.
type scriptedBar struct {
	fn func(bar models.Bar, window []models.Bar, pos strategy.PositionView) (models.Signal, error)
}

func (s *scriptedBar) Name() string { return "scripted-bar" }
func (s *scriptedBar) OnBar(bar models.Bar, window []models.Bar, pos strategy.PositionView) (models.Signal, error) {
	return s.fn(bar, window, pos)
}

// scriptedBatch replays a canned pre-cost trade log.
type scriptedBatch struct {
	log []models.TradeLogEntry
	err error
}

func (s *scriptedBatch) Name() string { return "scripted-batch" }
func (s *scriptedBatch) Run(_ context.Context, _ []models.Bar) ([]models.TradeLogEntry, error) {
	return s.log, s.err
}

func engineConfig(t testing.TB) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Symbol:            "NIFTY",
		StartDate:         "2023-01-02",
		EndDate:           "2023-12-29",
		InitialCash:       100000,
		EquitySampleEvery: 1,
		Strategy: config.StrategyConfig{
			Name:             strategy.KindShortStrangle,
			EntryDay:         "monday",
			HoldDays:         5,
			ProfitTargetPct:  0.4,
			StopLossPct:      0.6,
			StrikeStep:       50,
			StrikeSpacing:    100,
			OTMPct:           0.03,
			LotSize:          1,
			ATRPeriod:        3,
			MomentumLookback: 5,
		},
		Data: config.DataConfig{Source: "synthetic", Seed: 42},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func engineTools(provider marketdata.Provider, cfg *config.Config) *strategy.MarketTools {
	var src pricing.RecordedPremiumSource
	if provider != nil {
		src = provider
	}
	return &strategy.MarketTools{
		Symbol:          cfg.Symbol,
		Quoter:          pricing.NewQuoter(src, pricing.NewEstimator(), quietLogger()),
		Provider:        provider,
		StrikeStep:      cfg.Strategy.StrikeStep,
		StrikeTolerance: cfg.StrikeTolerance,
		LadderWidth:     cfg.LadderWidth,
		Logger:          quietLogger(),
	}
}

// spreadOpener signals a 17500/17600 call spread entry on the given date, once.
func spreadOpener(entryDate time.Time) *scriptedBar {
	opened := false
	return &scriptedBar{fn: func(bar models.Bar, _ []models.Bar, pos strategy.PositionView) (models.Signal, error) {
		if opened || pos.Open || !bar.Date.Equal(entryDate) {
			return models.None(), nil
		}
		opened = true
		return models.Open("call-spread", []models.LegSpec{
			{Select: models.StrikeATM, Class: models.OptionCall, Side: models.SideLong, Quantity: 1},
			{Select: models.StrikeOTM, OffsetPct: 100.0 / 17500.0, Class: models.OptionCall, Side: models.SideShort, Quantity: 1},
		}), nil
	}}
}

// spreadPremiums records 120/50 on the spread strikes through cutoff and
// then 180/80, so the position gains exactly 30 pre-cost.
func spreadPremiums(series []models.Bar, cutoff int) map[string]float64 {
	prems := make(map[string]float64)
	for i, bar := range series {
		long, short := 120.0, 50.0
		if i > cutoff {
			long, short = 180, 80
		}
		prems[premiumKey(17500, models.OptionCall, bar.Date)] = long
		prems[premiumKey(17600, models.OptionCall, bar.Date)] = short
	}
	return prems
}

func TestRun_CallSpreadProfitTarget(t *testing.T) {
	cfg := engineConfig(t)
	series := weekdayBars(10, 17500)
	provider := &scriptProvider{series: series, premiums: spreadPremiums(series, 4)}

	runner := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(spreadOpener(series[4].Date))
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	// Net debit 70, marked at 100 on the next bar: +30 is 42.9% of the
	// debit, clearing the 40% profit target.
	require.Len(t, summary.TradeLog, 2)
	enter, exit := summary.TradeLog[0], summary.TradeLog[1]
	assert.InDelta(t, -70, enter.NetEntryCost, 1e-9)
	assert.Equal(t, models.ExitProfitTarget, exit.ExitReason)
	assert.InDelta(t, 30, exit.RealizedPnL, 1e-9)
	assert.InDelta(t, 30.0/70, exit.PnLPercent, 1e-9)

	assert.Equal(t, 1, summary.TotalTrades)
	assert.Equal(t, 1, summary.Wins)
	assert.Equal(t, 1, summary.DebitTrades)
	assert.Equal(t, 1, summary.ExitCounts[models.ExitProfitTarget])
	assert.InDelta(t, 30, summary.NetPnL, 1e-9)
	assert.InDelta(t, 100030, summary.FinalEquity, 1e-9)
	assert.True(t, math.IsInf(summary.ProfitFactor, 1))
	assert.Equal(t, len(series), summary.Bars)
	assert.NotEmpty(t, summary.RunID)
}

func TestRun_StopLossBeforeExpiry(t *testing.T) {
	cfg := engineConfig(t)
	cfg.Strategy.StopLossPct = 0.5
	series := weekdayBars(10, 17500)
	prems := make(map[string]float64)
	for i, bar := range series {
		long, short := 120.0, 50.0
		if i > 4 {
			long, short = 40, 10 // spread collapses to 30 against the 70 debit
		}
		prems[premiumKey(17500, models.OptionCall, bar.Date)] = long
		prems[premiumKey(17600, models.OptionCall, bar.Date)] = short
	}
	provider := &scriptProvider{series: series, premiums: prems}

	runner := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(spreadOpener(series[4].Date))
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.TradeLog, 2)
	exit := summary.TradeLog[1]
	assert.Equal(t, models.ExitStopLoss, exit.ExitReason)
	assert.InDelta(t, -40, exit.RealizedPnL, 1e-9)
	assert.Equal(t, 1, summary.Losses)
}

func TestRun_TimeExpiryAtHoldDays(t *testing.T) {
	cfg := engineConfig(t)
	series := weekdayBars(12, 17500)
	provider := &scriptProvider{series: series, premiums: spreadPremiums(series, len(series))}

	runner := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(spreadOpener(series[4].Date))
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.TradeLog, 2)
	exit := summary.TradeLog[1]
	assert.Equal(t, models.ExitTimeExpiry, exit.ExitReason)
	assert.GreaterOrEqual(t, exit.DaysHeld, cfg.Strategy.HoldDays)
	// Flat premiums: the round trip washes out.
	assert.InDelta(t, 0, exit.RealizedPnL, 1e-9)
}

func TestRun_EndOfDataClosesOpenPosition(t *testing.T) {
	cfg := engineConfig(t)
	cfg.Strategy.HoldDays = 50
	series := weekdayBars(8, 17500)
	provider := &scriptProvider{series: series, premiums: spreadPremiums(series, len(series))}

	runner := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(spreadOpener(series[4].Date))
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.TradeLog, 2)
	exit := summary.TradeLog[1]
	assert.Equal(t, models.ExitEndOfData, exit.ExitReason)
	assert.Equal(t, series[len(series)-1].Date, exit.Date)
}

func TestRun_StrategyCloseSignal(t *testing.T) {
	cfg := engineConfig(t)
	series := weekdayBars(10, 17500)
	provider := &scriptProvider{series: series, premiums: spreadPremiums(series, len(series))}

	opened := false
	strat := &scriptedBar{fn: func(bar models.Bar, _ []models.Bar, pos strategy.PositionView) (models.Signal, error) {
		switch {
		case !opened && bar.Date.Equal(series[2].Date):
			opened = true
			return models.Open("call-spread", []models.LegSpec{
				{Select: models.StrikeATM, Class: models.OptionCall, Side: models.SideLong, Quantity: 1},
			}), nil
		case pos.Open && bar.Date.Equal(series[4].Date):
			return models.Close(models.ExitStrategyClose), nil
		}
		return models.None(), nil
	}}

	summary, err := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(strat).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.TradeLog, 2)
	assert.Equal(t, models.ExitStrategyClose, summary.TradeLog[1].ExitReason)
}

func TestRun_AbortedEntryContinuesFlat(t *testing.T) {
	cfg := engineConfig(t)
	series := weekdayBars(10, 17500)
	provider := &scriptProvider{series: series}
	tools := engineTools(provider, cfg)
	tools.StrikeTolerance = 1e-9 // the offset strike lands between rungs

	strat := &scriptedBar{fn: func(_ models.Bar, _ []models.Bar, pos strategy.PositionView) (models.Signal, error) {
		if pos.Open {
			return models.None(), nil
		}
		return models.Open("call-spread", []models.LegSpec{
			{Select: models.StrikeOTM, OffsetPct: 0.0013, Class: models.OptionCall, Side: models.SideLong, Quantity: 1},
		}), nil
	}}

	summary, err := New(cfg, provider, tools, quietLogger()).WithStrategy(strat).Run(context.Background())
	require.NoError(t, err, "an unresolvable entry is skipped, not fatal")
	assert.Equal(t, 0, summary.TotalTrades)
	assert.InDelta(t, cfg.InitialCash, summary.FinalEquity, 1e-9)
}

func TestRun_StrategyErrorIsFault(t *testing.T) {
	cfg := engineConfig(t)
	provider := &scriptProvider{series: weekdayBars(10, 17500)}
	strat := &scriptedBar{fn: func(_ models.Bar, _ []models.Bar, _ strategy.PositionView) (models.Signal, error) {
		return models.Signal{}, fmt.Errorf("indicator blew up")
	}}

	_, err := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(strat).Run(context.Background())
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, FailureStrategyFault, kind)
}

func TestRun_StrategyFaultKeepsPartialLog(t *testing.T) {
	cfg := engineConfig(t)
	series := weekdayBars(10, 17500)
	provider := &scriptProvider{series: series, premiums: spreadPremiums(series, len(series))}

	// One clean round trip, then the strategy blows up mid-run.
	opened := false
	strat := &scriptedBar{fn: func(bar models.Bar, _ []models.Bar, pos strategy.PositionView) (models.Signal, error) {
		switch {
		case !opened && bar.Date.Equal(series[2].Date):
			opened = true
			return models.Open("call-spread", []models.LegSpec{
				{Select: models.StrikeATM, Class: models.OptionCall, Side: models.SideLong, Quantity: 1},
			}), nil
		case pos.Open && bar.Date.Equal(series[4].Date):
			return models.Close(models.ExitStrategyClose), nil
		case bar.Date.Equal(series[6].Date):
			return models.Signal{}, fmt.Errorf("indicator blew up")
		}
		return models.None(), nil
	}}

	summary, err := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(strat).Run(context.Background())
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, FailureStrategyFault, kind)
	require.NotNil(t, summary, "trades completed before the fault are still reported")
	require.Len(t, summary.TradeLog, 2)
	assert.Equal(t, models.ExitStrategyClose, summary.TradeLog[1].ExitReason)
	assert.Equal(t, 1, summary.TotalTrades)
}

func TestRun_UnknownSignalTypeIsFault(t *testing.T) {
	cfg := engineConfig(t)
	provider := &scriptProvider{series: weekdayBars(10, 17500)}
	strat := &scriptedBar{fn: func(_ models.Bar, _ []models.Bar, _ strategy.PositionView) (models.Signal, error) {
		return models.Signal{Type: "REBALANCE"}, nil
	}}

	_, err := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(strat).Run(context.Background())
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, FailureStrategyFault, kind)
}

func TestRun_DataUnavailable(t *testing.T) {
	cfg := engineConfig(t)
	provider := &scriptProvider{seriesErr: marketdata.ErrNoData}

	summary, err := New(cfg, provider, engineTools(provider, cfg), quietLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, summary)
	kind, _ := KindOf(err)
	assert.Equal(t, FailureDataUnavailable, kind)
}

func TestRun_InvalidDateConfig(t *testing.T) {
	cfg := engineConfig(t)
	cfg.StartDate = "not-a-date"
	provider := &scriptProvider{series: weekdayBars(5, 17500)}

	_, err := New(cfg, provider, engineTools(provider, cfg), quietLogger()).Run(context.Background())
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, FailureInvalidConfiguration, kind)
}

func TestRun_UnknownStrategyName(t *testing.T) {
	cfg := engineConfig(t)
	cfg.Strategy.Name = "iron-condor"
	provider := &scriptProvider{series: weekdayBars(5, 17500)}

	_, err := New(cfg, provider, engineTools(provider, cfg), quietLogger()).Run(context.Background())
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, FailureInvalidConfiguration, kind)
}

func TestRun_CanceledReturnsPartialSummary(t *testing.T) {
	cfg := engineConfig(t)
	provider := &scriptProvider{series: weekdayBars(10, 17500)}
	strat := &scriptedBar{fn: func(_ models.Bar, _ []models.Bar, _ strategy.PositionView) (models.Signal, error) {
		return models.None(), nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(strat).Run(ctx)
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, FailureCanceled, kind)
	require.NotNil(t, summary, "a canceled run still reports what it saw")
	assert.Equal(t, 0, summary.TotalTrades)
}

func TestRun_ProgressIsBoundedAndMonotonic(t *testing.T) {
	cfg := engineConfig(t)
	provider := &scriptProvider{series: weekdayBars(300, 17500)}
	strat := &scriptedBar{fn: func(_ models.Bar, _ []models.Bar, _ strategy.PositionView) (models.Signal, error) {
		return models.None(), nil
	}}

	var percents []int
	runner := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(strat).
		WithProgress(func(percent int, _ string) { percents = append(percents, percent) })
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, percents)
	assert.LessOrEqual(t, len(percents), 101, "at most one callback per whole percent")
	for i := 1; i < len(percents); i++ {
		assert.Greater(t, percents[i], percents[i-1])
	}
	assert.Equal(t, phaseLoading, percents[0])
	assert.Equal(t, phaseDone, percents[len(percents)-1])
}

func TestRun_BatchReplaySettlesCosts(t *testing.T) {
	cfg := engineConfig(t)
	series := weekdayBars(10, 17500)
	provider := &scriptProvider{series: series}

	entryLegs := []models.Leg{
		{Strike: 18000, Class: models.OptionCall, Side: models.SideShort, Quantity: 1, EntryPremium: 60, CurrentPremium: 60},
		{Strike: 17000, Class: models.OptionPut, Side: models.SideShort, Quantity: 1, EntryPremium: 40, CurrentPremium: 40},
	}
	exitLegs := append([]models.Leg(nil), entryLegs...)
	exitLegs[0].CurrentPremium = 30
	exitLegs[1].CurrentPremium = 20

	strat := &scriptedBatch{log: []models.TradeLogEntry{
		{PositionID: "b-1", Kind: "strangle", Action: models.ActionEnter, Date: series[2].Date,
			Spot: 17500, Legs: entryLegs, NetEntryCost: 100},
		{PositionID: "b-1", Kind: "strangle", Action: models.ActionExit, Date: series[5].Date,
			Spot: 17500, Legs: exitLegs, NetEntryCost: 100, DaysHeld: 3, ExitReason: models.ExitTimeExpiry},
	}}

	summary, err := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(strat).Run(context.Background())
	require.NoError(t, err)

	// Collected 100, bought back for 50: the replay settles a net +50.
	require.Len(t, summary.TradeLog, 2)
	assert.InDelta(t, 50, summary.TradeLog[1].RealizedPnL, 1e-9)
	assert.Equal(t, 1, summary.TotalTrades)
	assert.Equal(t, 1, summary.CreditTrades)
	assert.InDelta(t, 50, summary.NetPnL, 1e-9)
	assert.InDelta(t, cfg.InitialCash+50, summary.FinalEquity, 1e-9)
	assert.Equal(t, 1, summary.ExitCounts[models.ExitTimeExpiry])
}

func TestRun_BatchRejectsMalformedLog(t *testing.T) {
	cfg := engineConfig(t)
	series := weekdayBars(6, 17500)
	provider := &scriptProvider{series: series}
	strat := &scriptedBatch{log: []models.TradeLogEntry{
		{PositionID: "b-1", Action: models.ActionEnter, Date: series[1].Date,
			Legs: []models.Leg{{Strike: 17500, Quantity: 1}}, NetEntryCost: 10},
		// never exited
	}}

	_, err := New(cfg, provider, engineTools(provider, cfg), quietLogger()).
		WithStrategy(strat).Run(context.Background())
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, FailureStrategyFault, kind)
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	cfg := engineConfig(t)
	cfg.EndDate = "2023-06-30"
	cfg.Strategy.EntryDay = "thursday"
	provider := marketdata.NewSyntheticProvider(cfg.Data.Seed)
	tools := engineTools(provider, cfg)

	first, err := New(cfg, provider, tools, quietLogger()).Run(context.Background())
	require.NoError(t, err)
	second, err := New(cfg, provider, tools, quietLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Bars, second.Bars)
	assert.Equal(t, first.TotalTrades, second.TotalTrades)
	assert.Equal(t, len(first.TradeLog), len(second.TradeLog))
	assert.InDelta(t, first.FinalEquity, second.FinalEquity, 1e-9)
	assert.InDelta(t, first.NetPnL, second.NetPnL, 1e-9)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestValidateBatchLog(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2023, 6, d, 0, 0, 0, 0, time.UTC) }
	leg := []models.Leg{{Strike: 17500, Quantity: 1}}
	enter := func(id string, d int) models.TradeLogEntry {
		return models.TradeLogEntry{PositionID: id, Action: models.ActionEnter, Date: day(d), Legs: leg}
	}
	exit := func(id string, d int, reason models.ExitReason) models.TradeLogEntry {
		return models.TradeLogEntry{PositionID: id, Action: models.ActionExit, Date: day(d),
			Legs: leg, ExitReason: reason}
	}

	tests := []struct {
		name    string
		log     []models.TradeLogEntry
		wantErr string
	}{
		{"empty", nil, ""},
		{"round trip", []models.TradeLogEntry{
			enter("a", 1), exit("a", 5, models.ExitTimeExpiry),
			enter("b", 8), exit("b", 9, models.ExitProfitTarget),
		}, ""},
		{"dates go backwards", []models.TradeLogEntry{
			enter("a", 5), exit("a", 1, models.ExitTimeExpiry),
		}, "precedes"},
		{"enter while open", []models.TradeLogEntry{
			enter("a", 1), enter("b", 2),
		}, "ENTER while position"},
		{"exit mismatch", []models.TradeLogEntry{
			enter("a", 1), exit("b", 2, models.ExitTimeExpiry),
		}, "EXIT for"},
		{"invalid exit reason", []models.TradeLogEntry{
			enter("a", 1), exit("a", 2, "rebalance"),
		}, "invalid exit reason"},
		{"enter without legs", []models.TradeLogEntry{
			{PositionID: "a", Action: models.ActionEnter, Date: day(1)},
		}, "no legs"},
		{"unknown action", []models.TradeLogEntry{
			{PositionID: "a", Action: "HOLD", Date: day(1), Legs: leg},
		}, "unknown action"},
		{"dangling open", []models.TradeLogEntry{
			enter("a", 1),
		}, "still open"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateBatchLog(tc.log)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestLoopPercent(t *testing.T) {
	assert.Equal(t, loopStart, loopPercent(0, 100))
	assert.Equal(t, loopEnd, loopPercent(99, 100))
	assert.Equal(t, loopEnd, loopPercent(0, 1))
	for i := 1; i < 100; i++ {
		assert.GreaterOrEqual(t, loopPercent(i, 100), loopPercent(i-1, 100))
	}
}

func TestFailureKindOf(t *testing.T) {
	err := NewFailure(FailureDataUnavailable, fmt.Errorf("no bars"))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, FailureDataUnavailable, kind)

	wrapped := fmt.Errorf("run failed: %w", err)
	kind, ok = KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, FailureDataUnavailable, kind)

	_, ok = KindOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}

// noopBar ignores every bar. Used to time the engine loop itself.
func noopBar() *scriptedBar {
	return &scriptedBar{fn: func(_ models.Bar, _ []models.Bar, _ strategy.PositionView) (models.Signal, error) {
		return models.None(), nil
	}}
}

// measureRun times one full Run over n flat weekday bars. A nil strat runs
// the configured strategy through the registry.
func measureRun(tb testing.TB, n int, strat strategy.Strategy) time.Duration {
	cfg := engineConfig(tb)
	provider := &scriptProvider{series: weekdayBars(n, 17500)}
	runner := New(cfg, provider, engineTools(provider, cfg), quietLogger())
	if strat != nil {
		runner.WithStrategy(strat)
	}
	start := time.Now()
	_, err := runner.Run(context.Background())
	require.NoError(tb, err)
	return time.Since(start)
}

// Doubling the series must roughly double the runtime: per-bar work has to
// stay constant, with no rescans of the accumulated history.
func TestRun_ScalesLinearlyWithSeriesLength(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	const n = 20000
	bestOf := func(bars int, strat func() strategy.Strategy) time.Duration {
		best := time.Duration(math.MaxInt64)
		for i := 0; i < 7; i++ {
			var s strategy.Strategy
			if strat != nil {
				s = strat()
			}
			if d := measureRun(t, bars, s); d < best {
				best = d
			}
		}
		return best
	}

	noop := func() strategy.Strategy { return noopBar() }
	small, large := bestOf(n, noop), bestOf(2*n, noop)
	assert.Less(t, float64(large)/float64(small), 2.2,
		"bar loop: %v for %d bars vs %v for %d", small, n, large, 2*n)

	// The shipped strangle walks, ranks volatility, and trades; it has to
	// scale the same way.
	small, large = bestOf(n, nil), bestOf(2*n, nil)
	assert.Less(t, float64(large)/float64(small), 2.2,
		"short strangle: %v for %d bars vs %v for %d", small, n, large, 2*n)
}

func BenchmarkRunBars(b *testing.B) {
	for _, n := range []int{2000, 8000} {
		b.Run(fmt.Sprintf("bars=%d", n), func(b *testing.B) {
			cfg := engineConfig(b)
			provider := &scriptProvider{series: weekdayBars(n, 17500)}
			tools := engineTools(provider, cfg)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := New(cfg, provider, tools, quietLogger()).
					WithStrategy(noopBar()).Run(context.Background())
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRunShortStrangle(b *testing.B) {
	for _, n := range []int{2000, 8000} {
		b.Run(fmt.Sprintf("bars=%d", n), func(b *testing.B) {
			cfg := engineConfig(b)
			provider := &scriptProvider{series: weekdayBars(n, 17500)}
			tools := engineTools(provider, cfg)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := New(cfg, provider, tools, quietLogger()).Run(context.Background())
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
