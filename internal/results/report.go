package results

import (
	"fmt"
	"io"
	"math"

	"github.com/eddiefleurent/optionsim/internal/models"
)

// WriteText renders the summary as a plain-text report.
func WriteText(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "Backtest %s\n", s.RunID)
	fmt.Fprintf(w, "  %s / %s, %s to %s (%d bars)\n",
		s.Symbol, s.Strategy,
		s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"), s.Bars)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Initial cash     %14.2f\n", s.InitialCash)
	fmt.Fprintf(w, "  Final equity     %14.2f\n", s.FinalEquity)
	fmt.Fprintf(w, "  Net P&L          %14.2f  (%.2f%%)\n", s.NetPnL, s.TotalReturnPct*100)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Trades           %6d  (%d credit, %d debit)\n",
		s.TotalTrades, s.CreditTrades, s.DebitTrades)
	fmt.Fprintf(w, "  Win rate         %6.1f%%  (%d wins, %d losses)\n",
		s.WinRate*100, s.Wins, s.Losses)
	if math.IsInf(s.ProfitFactor, 1) {
		fmt.Fprintf(w, "  Profit factor       inf\n")
	} else {
		fmt.Fprintf(w, "  Profit factor    %6.2f\n", s.ProfitFactor)
	}
	fmt.Fprintf(w, "  Avg win / loss   %10.2f / %10.2f\n", s.AvgWin, s.AvgLoss)
	fmt.Fprintf(w, "  Largest win/loss %10.2f / %10.2f\n", s.LargestWin, s.LargestLoss)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Max drawdown     %6.2f%%\n", s.MaxDrawdownPct*100)
	fmt.Fprintf(w, "  Sharpe ratio     %6.2f\n", s.SharpeRatio)
	fmt.Fprintf(w, "  Brokerage        %10.2f\n", s.TotalBrokerage)
	fmt.Fprintf(w, "  Slippage         %10.2f\n", s.TotalSlippage)

	if len(s.ExitCounts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Exits")
		for _, reason := range []models.ExitReason{
			models.ExitProfitTarget, models.ExitStopLoss, models.ExitTimeExpiry,
			models.ExitStrategyClose, models.ExitEndOfData,
		} {
			if n := s.ExitCounts[reason]; n > 0 {
				fmt.Fprintf(w, "    %-16s %4d\n", reason, n)
			}
		}
	}
}
