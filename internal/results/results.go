// Package results aggregates a finished backtest's trade log and equity
// curve into summary statistics.
package results

import (
	"math"
	"time"

	"github.com/eddiefleurent/optionsim/internal/models"
)

// tradingDaysPerYear annualizes the Sharpe ratio from daily samples.
const tradingDaysPerYear = 252

// Summary is the complete outcome of one backtest run.
type Summary struct {
	RunID    string    `json:"run_id"`
	Symbol   string    `json:"symbol"`
	Strategy string    `json:"strategy"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Bars     int       `json:"bars"`

	InitialCash    float64 `json:"initial_cash"`
	FinalEquity    float64 `json:"final_equity"`
	NetPnL         float64 `json:"net_pnl"`
	TotalReturnPct float64 `json:"total_return_pct"`

	TotalTrades  int     `json:"total_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`

	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`
	LargestWin  float64 `json:"largest_win"`
	LargestLoss float64 `json:"largest_loss"`

	CreditTrades int `json:"credit_trades"`
	DebitTrades  int `json:"debit_trades"`

	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`

	TotalBrokerage float64 `json:"total_brokerage"`
	TotalSlippage  float64 `json:"total_slippage"`

	ExitCounts map[models.ExitReason]int `json:"exit_counts"`

	Equity   []models.EquityPoint   `json:"equity"`
	TradeLog []models.TradeLogEntry `json:"trade_log"`
}

// Aggregator accumulates equity samples during the run and computes the
// summary once the trade log is final. Equity is sampled every k-th bar plus
// the final bar, so the curve stays bounded for long series.
type Aggregator struct {
	initialCash float64
	sampleEvery int
	equity      []models.EquityPoint
}

// NewAggregator sizes the equity buffer up front from the bar count.
func NewAggregator(initialCash float64, sampleEvery, bars int) *Aggregator {
	if sampleEvery < 1 {
		sampleEvery = 1
	}
	capacity := bars/sampleEvery + 2
	return &Aggregator{
		initialCash: initialCash,
		sampleEvery: sampleEvery,
		equity:      make([]models.EquityPoint, 0, capacity),
	}
}

// Observe records the equity at bar index i when the sampling cadence hits
// or the series ends.
func (a *Aggregator) Observe(i int, lastBar bool, date time.Time, equity, cash float64) {
	if i%a.sampleEvery != 0 && !lastBar {
		return
	}
	a.equity = append(a.equity, models.EquityPoint{Date: date, Equity: equity, Cash: cash})
}

// Equity returns the samples collected so far.
func (a *Aggregator) Equity() []models.EquityPoint { return a.equity }

// Finalize computes every summary statistic from the completed trade log and
// the sampled equity curve. The trade log is not modified.
func (a *Aggregator) Finalize(s *Summary, log []models.TradeLogEntry) {
	s.InitialCash = a.initialCash
	s.Equity = a.equity
	s.TradeLog = log
	s.ExitCounts = make(map[models.ExitReason]int)

	s.FinalEquity = a.initialCash
	if n := len(a.equity); n > 0 {
		s.FinalEquity = a.equity[n-1].Equity
	}
	s.NetPnL = s.FinalEquity - a.initialCash
	if a.initialCash > 0 {
		s.TotalReturnPct = s.NetPnL / a.initialCash
	}

	var grossProfit, grossLoss float64
	for i := range log {
		e := &log[i]
		switch e.Action {
		case models.ActionEnter:
			if e.NetEntryCost > 0 {
				s.CreditTrades++
			} else {
				s.DebitTrades++
			}
		case models.ActionExit:
			s.TotalTrades++
			s.ExitCounts[e.ExitReason]++
			pnl := e.RealizedPnL
			if pnl > 0 {
				s.Wins++
				grossProfit += pnl
				if pnl > s.LargestWin {
					s.LargestWin = pnl
				}
			} else {
				s.Losses++
				grossLoss += -pnl
				if pnl < s.LargestLoss {
					s.LargestLoss = pnl
				}
			}
		}
		s.TotalBrokerage += e.Brokerage
		s.TotalSlippage += e.Slippage
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalTrades)
	}
	if s.Wins > 0 {
		s.AvgWin = grossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = -grossLoss / float64(s.Losses)
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		s.ProfitFactor = math.Inf(1)
	}

	s.MaxDrawdownPct = maxDrawdown(a.equity)
	s.SharpeRatio = sharpe(a.equity)
}

// maxDrawdown is the largest peak-to-trough fall, as a fraction of the peak.
func maxDrawdown(curve []models.EquityPoint) float64 {
	var peak, worst float64
	for i := range curve {
		eq := curve[i].Equity
		if eq > peak {
			peak = eq
		}
		if peak > 0 {
			if dd := (peak - eq) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpe is the annualized mean/stddev of sample-to-sample returns. Fewer
// than three samples cannot produce a meaningful ratio and yield zero.
func sharpe(curve []models.EquityPoint) float64 {
	if len(curve) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}
