package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/optionsim/internal/config"
	"github.com/eddiefleurent/optionsim/internal/indicators"
	"github.com/eddiefleurent/optionsim/internal/marketdata"
	"github.com/eddiefleurent/optionsim/internal/models"
	"github.com/eddiefleurent/optionsim/internal/results"
	"github.com/eddiefleurent/optionsim/internal/strategy"
)

// Progress phase boundaries, in percent. The simulation loop spans the range
// between loopStart and loopEnd.
const (
	phaseLoading   = 5
	phaseValidated = 15
	loopStart      = 20
	loopEnd        = 90
	phaseSummary   = 95
	phaseDone      = 100
)

// ProgressFunc receives bounded-cadence progress updates: the callback fires
// at most once per whole-percent step, never once per bar.
type ProgressFunc func(percent int, phase string)

// Runner executes one backtest. A Runner is single-use state-free: Run may
// be called repeatedly and concurrently, each call is an isolated simulation.
type Runner struct {
	cfg      *config.Config
	provider marketdata.Provider
	tools    *strategy.MarketTools
	logger   *logrus.Logger
	progress ProgressFunc
	strategy strategy.Strategy
}

// New creates a runner over the given data provider and market tools.
func New(cfg *config.Config, provider marketdata.Provider, tools *strategy.MarketTools, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{cfg: cfg, provider: provider, tools: tools, logger: logger}
}

// WithProgress sets the progress callback and returns the runner.
func (r *Runner) WithProgress(fn ProgressFunc) *Runner {
	r.progress = fn
	return r
}

// WithStrategy bypasses the registry lookup and runs the given strategy
// instance instead. The config's strategy parameters are ignored.
func (r *Runner) WithStrategy(s strategy.Strategy) *Runner {
	r.strategy = s
	return r
}

// Run executes the full backtest and returns its summary. Errors are always
// a *Failure carrying the classification; cancellations and strategy faults
// return the partial summary alongside the error.
func (r *Runner) Run(ctx context.Context) (*results.Summary, error) {
	report := r.reporter()
	report(phaseLoading, "loading market data")

	start, err := r.cfg.ParseStartDate()
	if err != nil {
		return nil, NewFailure(FailureInvalidConfiguration, err)
	}
	end, err := r.cfg.ParseEndDate()
	if err != nil {
		return nil, NewFailure(FailureInvalidConfiguration, err)
	}

	series, err := r.provider.GetSeries(ctx, r.cfg.Symbol, start, end)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, NewFailure(FailureCanceled, err)
		}
		return nil, NewFailure(FailureDataUnavailable, fmt.Errorf("fetching series: %w", err))
	}
	if err := models.ValidateSeries(series); err != nil {
		return nil, NewFailure(FailureDataUnavailable, err)
	}

	strat := r.strategy
	if strat == nil {
		strat, err = strategy.New(r.cfg.Strategy, r.tools, r.logger)
		if err != nil {
			return nil, NewFailure(FailureInvalidConfiguration, err)
		}
	}
	report(phaseValidated, "series validated")

	summary := &results.Summary{
		RunID:    newRunID(),
		Symbol:   r.cfg.Symbol,
		Strategy: strat.Name(),
		Start:    series[0].Date,
		End:      series[len(series)-1].Date,
		Bars:     len(series),
	}
	acct := NewAccountant(r.cfg.InitialCash, r.cfg.BrokerageRate, r.cfg.SlippageRate)
	agg := results.NewAggregator(r.cfg.InitialCash, r.cfg.EquitySampleEvery, len(series))

	// Capability resolution: a strategy that can run in batch does, it owns
	// its own walk and the engine only replays its log. Everything else is
	// driven bar by bar.
	var log []models.TradeLogEntry
	var runErr error
	if batch, ok := strat.(strategy.BatchStrategy); ok {
		log, runErr = r.runBatch(ctx, batch, series, acct, agg, report)
	} else if bar, ok := strat.(strategy.BarStrategy); ok {
		log, runErr = r.runBars(ctx, bar, series, acct, agg, report)
	} else {
		return nil, NewFailure(FailureInvalidConfiguration,
			fmt.Errorf("strategy %q implements neither execution mode", strat.Name()))
	}
	// Cancellation and strategy faults keep the trade log accumulated up to
	// the stopping point; data and configuration failures have nothing worth
	// aggregating.
	if runErr != nil && !keepsPartialLog(runErr) {
		return nil, runErr
	}

	report(phaseSummary, "aggregating results")
	agg.Finalize(summary, log)
	// Finalize counts costs from the log; the accountant is authoritative.
	summary.TotalBrokerage = acct.TotalBrokerage()
	summary.TotalSlippage = acct.TotalSlippage()

	if runErr != nil {
		return summary, runErr
	}
	report(phaseDone, "done")
	return summary, nil
}

// runBars drives a bar-by-bar strategy through the series.
func (r *Runner) runBars(ctx context.Context, strat strategy.BarStrategy, series []models.Bar,
	acct *Accountant, agg *results.Aggregator, report ProgressFunc) ([]models.TradeLogEntry, error) {

	pm := newPositionManager(r.cfg, r.tools, acct, r.logger)
	atr := indicators.NewATR(r.cfg.Strategy.ATRPeriod)
	log := make([]models.TradeLogEntry, 0, 64)

	for i := range series {
		if err := ctx.Err(); err != nil {
			return log, NewFailure(FailureCanceled, err)
		}
		bar := series[i]
		lastBar := i == len(series)-1
		atr.Update(bar)

		// Trailing window: a re-slice of the series, never a copy.
		lo := i + 1 - r.cfg.WindowSize
		if lo < 0 {
			lo = 0
		}
		window := series[lo : i+1]

		if pm.hasOpen() {
			if err := pm.markToMarket(ctx, bar, atr.Value()); err != nil {
				return log, err
			}
			if reason, ok := pm.evaluateExit(bar, lastBar); ok {
				entry, err := pm.close(reason, bar)
				if err != nil {
					return log, err
				}
				log = append(log, entry)
			}
		}

		sig, err := strat.OnBar(bar, window, pm.view(bar.Date))
		if err != nil {
			return log, NewFailure(FailureStrategyFault, fmt.Errorf("bar %d (%s): %w",
				i, bar.Date.Format("2006-01-02"), err))
		}
		switch sig.Type {
		case models.SignalOpen:
			if !pm.hasOpen() && !lastBar {
				entry, opened, err := pm.open(ctx, sig, bar, atr.Value())
				if err != nil {
					return log, err
				}
				if opened {
					log = append(log, entry)
				}
			}
		case models.SignalClose:
			if pm.hasOpen() {
				entry, err := pm.close(models.ExitStrategyClose, bar)
				if err != nil {
					return log, err
				}
				log = append(log, entry)
			}
		case models.SignalNone:
			// nothing to do
		default:
			return log, NewFailure(FailureStrategyFault,
				fmt.Errorf("unknown signal type %q", sig.Type))
		}

		agg.Observe(i, lastBar, bar.Date, acct.Cash()+pm.markValue(), acct.Cash())
		report(loopPercent(i, len(series)), "simulating")
	}
	return log, nil
}

// runBatch lets the strategy walk the series itself, then replays its
// pre-cost trade log through the accountant bar by bar so costs and the
// equity curve line up with trade dates.
func (r *Runner) runBatch(ctx context.Context, strat strategy.BatchStrategy, series []models.Bar,
	acct *Accountant, agg *results.Aggregator, report ProgressFunc) ([]models.TradeLogEntry, error) {

	raw, err := strat.Run(ctx, series)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, NewFailure(FailureCanceled, err)
		}
		return nil, NewFailure(FailureStrategyFault, err)
	}
	if err := validateBatchLog(raw); err != nil {
		return nil, NewFailure(FailureStrategyFault, err)
	}

	log := make([]models.TradeLogEntry, 0, len(raw))
	next := 0
	for i := range series {
		if err := ctx.Err(); err != nil {
			return log, NewFailure(FailureCanceled, err)
		}
		bar := series[i]
		lastBar := i == len(series)-1

		for next < len(raw) && !raw[next].Date.After(bar.Date) {
			entry := raw[next]
			next++
			switch entry.Action {
			case models.ActionEnter:
				acct.SettleEntry(&entry)
			case models.ActionExit:
				acct.SettleExit(&entry)
			}
			log = append(log, entry)
		}

		agg.Observe(i, lastBar, bar.Date, acct.Cash(), acct.Cash())
		report(loopPercent(i, len(series)), "replaying trades")
	}
	return log, nil
}

// validateBatchLog enforces the entry/exit pairing a batch strategy must
// produce: dates never go backwards and every exit matches the open position.
func validateBatchLog(log []models.TradeLogEntry) error {
	var openID string
	var last time.Time
	for i := range log {
		e := &log[i]
		if e.Date.Before(last) {
			return fmt.Errorf("trade log entry %d: date %s precedes %s",
				i, e.Date.Format("2006-01-02"), last.Format("2006-01-02"))
		}
		last = e.Date
		switch e.Action {
		case models.ActionEnter:
			if openID != "" {
				return fmt.Errorf("trade log entry %d: ENTER while position %s open", i, openID)
			}
			if len(e.Legs) == 0 {
				return fmt.Errorf("trade log entry %d: ENTER with no legs", i)
			}
			openID = e.PositionID
		case models.ActionExit:
			if e.PositionID != openID {
				return fmt.Errorf("trade log entry %d: EXIT for %s but %q is open",
					i, e.PositionID, openID)
			}
			if !e.ExitReason.Valid() {
				return fmt.Errorf("trade log entry %d: invalid exit reason %q", i, e.ExitReason)
			}
			openID = ""
		default:
			return fmt.Errorf("trade log entry %d: unknown action %q", i, e.Action)
		}
	}
	if openID != "" {
		return fmt.Errorf("trade log ends with position %s still open", openID)
	}
	return nil
}

// reporter wraps the progress callback with cadence bounding: one emission
// per whole-percent step at most.
func (r *Runner) reporter() ProgressFunc {
	if r.progress == nil {
		return func(int, string) {}
	}
	last := -1
	return func(percent int, phase string) {
		if percent <= last {
			return
		}
		last = percent
		r.progress(percent, phase)
	}
}

// loopPercent maps a bar index onto the simulation loop's progress range.
func loopPercent(i, n int) int {
	if n <= 1 {
		return loopEnd
	}
	return loopStart + (loopEnd-loopStart)*i/(n-1)
}

func keepsPartialLog(err error) bool {
	kind, ok := KindOf(err)
	return ok && (kind == FailureCanceled || kind == FailureStrategyFault)
}

// newRunID returns a lexically sortable run identifier.
func newRunID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0) // #nosec G404 -- IDs, not secrets
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
