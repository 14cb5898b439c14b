package models

import "time"

// TradeAction tags a trade log entry.
type TradeAction string

const (
	// ActionEnter records a position opening
	ActionEnter TradeAction = "ENTER"
	// ActionExit records a position closing
	ActionExit TradeAction = "EXIT"
)

// TradeLogEntry is the append-only record emitted on every open/close
// transition. Exit-only fields are zero on ENTER entries. The trade log is
// the single source of truth for the results aggregator and is never mutated
// after append.
type TradeLogEntry struct {
	PositionID string      `json:"position_id"`
	Kind       string      `json:"kind"`
	Action     TradeAction `json:"action"`
	Date       time.Time   `json:"date"`
	Spot       float64     `json:"spot"`
	Legs       []Leg       `json:"legs"` // snapshot, detached from the live position
	// NetEntryCost is signed: credit positive, debit negative.
	NetEntryCost float64 `json:"net_entry_cost"`
	Brokerage    float64 `json:"brokerage"`
	Slippage     float64 `json:"slippage"`
	// CashEffect is the signed change applied to the cash balance by this entry.
	CashEffect float64 `json:"cash_effect"`

	// Exit-only fields.
	RealizedPnL float64    `json:"realized_pnl,omitempty"`
	PnLPercent  float64    `json:"pnl_percent,omitempty"`
	DaysHeld    int        `json:"days_held,omitempty"`
	ExitReason  ExitReason `json:"exit_reason,omitempty"`
}

// EquityPoint is one (timestamp, cash + mark-to-market) sample of the equity
// curve. Samples are taken at a fixed cadence, the final bar always included.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
	Cash   float64   `json:"cash"`
}
