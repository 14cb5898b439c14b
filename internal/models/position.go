package models

import (
	"fmt"
	"math"
	"time"
)

// Position is a single simulated trade: one leg for directional option buys,
// two or more for spreads and combinations. Legs are fixed at construction;
// adjustments are out of scope (close and re-enter instead). Positions are
// owned by the simulation's position manager and referenced by ID elsewhere.
type Position struct {
	StateMachine *StateMachine `json:"-"`     // runtime only, excluded from JSON
	State        PositionState `json:"state"` // canonical persisted state
	ID           string        `json:"id"`
	Kind         string        `json:"kind"` // strategy-assigned, e.g. "bull-call-spread"
	Symbol       string        `json:"symbol"`
	EntryDate    time.Time     `json:"entry_date"`
	EntrySpot    float64       `json:"entry_spot"`
	Legs         []Leg         `json:"legs"`
	// NetEntryCost is the signed cash effect of entry before costs:
	// positive for credit (premium received), negative for debit (premium paid).
	NetEntryCost float64    `json:"net_entry_cost"`
	ExitDate     time.Time  `json:"exit_date,omitempty"`
	ExitSpot     float64    `json:"exit_spot,omitempty"`
	ExitReason   ExitReason `json:"exit_reason,omitempty"`
	RealizedPnL  float64    `json:"realized_pnl"`
}

// NewPosition constructs an open-pending position from fully priced legs.
// NetEntryCost is derived from the legs: buying subtracts cash, selling adds.
func NewPosition(id, kind, symbol string, entryDate time.Time, entrySpot float64, legs []Leg) *Position {
	p := &Position{
		ID:           id,
		Kind:         kind,
		Symbol:       symbol,
		EntryDate:    entryDate,
		EntrySpot:    entrySpot,
		Legs:         legs,
		StateMachine: NewStateMachine(),
		State:        StateIdle,
	}
	p.NetEntryCost = -p.entryValue()
	return p
}

// entryValue is the position's value priced at entry premiums.
func (p *Position) entryValue() float64 {
	var v float64
	for i := range p.Legs {
		v += p.Legs[i].Value(p.Legs[i].EntryPremium)
	}
	return v
}

// CurrentValue is the position's value priced at current premiums.
func (p *Position) CurrentValue() float64 {
	var v float64
	for i := range p.Legs {
		v += p.Legs[i].Value(p.Legs[i].CurrentPremium)
	}
	return v
}

// UnrealizedPnL is the signed gain since entry. The convention is uniform for
// credit and debit positions: value at current premiums minus value at entry
// premiums (equivalently CurrentValue + NetEntryCost).
func (p *Position) UnrealizedPnL() float64 {
	return p.CurrentValue() + p.NetEntryCost
}

// PnLPercent expresses pnl as a fraction of |NetEntryCost|, not of notional.
// Credit positions measure against net credit received (see DESIGN.md).
func (p *Position) PnLPercent(pnl float64) float64 {
	denom := math.Abs(p.NetEntryCost)
	if denom == 0 {
		return 0
	}
	return pnl / denom
}

// IsCredit reports whether the position netted cash in at entry.
func (p *Position) IsCredit() bool {
	return p.NetEntryCost > 0
}

// DaysHeld returns whole days between entry and the given time, clamped at 0.
func (p *Position) DaysHeld(now time.Time) int {
	d := int(now.Sub(p.EntryDate).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// TransitionState moves the position to a new state, keeping the canonical
// State field in sync with the runtime machine.
func (p *Position) TransitionState(to PositionState, condition string, at time.Time) error {
	if err := p.ensureMachine().Transition(to, condition, at); err != nil {
		return fmt.Errorf("position %s state transition failed: %w", p.ID, err)
	}
	p.State = to
	return nil
}

// ensureMachine ensures the StateMachine is initialized from persisted state.
func (p *Position) ensureMachine() *StateMachine {
	if p.StateMachine == nil {
		p.StateMachine = NewStateMachineFromState(p.State)
	}
	return p.StateMachine
}

// GetCurrentState returns the canonical persisted state.
func (p *Position) GetCurrentState() PositionState {
	return p.State
}

// ValidateState ensures position data is consistent with its lifecycle state.
func (p *Position) ValidateState() error {
	if err := p.ensureMachine().ValidateStateConsistency(); err != nil {
		return fmt.Errorf("position %s state validation failed: %w", p.ID, err)
	}

	if len(p.Legs) == 0 && p.State != StateIdle {
		return fmt.Errorf("position %s in state %s: must have at least one leg", p.ID, p.State)
	}
	for i := range p.Legs {
		l := &p.Legs[i]
		if !l.Class.Valid() {
			return fmt.Errorf("position %s leg %d: invalid option class %q", p.ID, i, l.Class)
		}
		if !l.Side.Valid() {
			return fmt.Errorf("position %s leg %d: invalid side %q", p.ID, i, l.Side)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("position %s leg %d: quantity must be > 0 (current: %d)", p.ID, i, l.Quantity)
		}
		if l.Strike <= 0 {
			return fmt.Errorf("position %s leg %d: strike must be > 0 (current: %.2f)", p.ID, i, l.Strike)
		}
		if l.EntryPremium < 0 || l.CurrentPremium < 0 {
			return fmt.Errorf("position %s leg %d: premiums must be >= 0", p.ID, i)
		}
	}

	switch p.State {
	case StateIdle:
		if !p.ExitDate.IsZero() || p.ExitReason != "" {
			return fmt.Errorf("position %s in state %s: exit fields must be unset", p.ID, p.State)
		}
	case StateOpen:
		if p.EntryDate.IsZero() {
			return fmt.Errorf("position %s in state %s: EntryDate must be set", p.ID, p.State)
		}
		if !p.ExitDate.IsZero() || p.ExitReason != "" {
			return fmt.Errorf("position %s in state %s: exit fields must be unset", p.ID, p.State)
		}
	case StateClosed:
		if p.EntryDate.IsZero() {
			return fmt.Errorf("position %s in state %s: EntryDate must be set", p.ID, p.State)
		}
		if p.ExitDate.IsZero() {
			return fmt.Errorf("position %s in state %s: ExitDate must be set", p.ID, p.State)
		}
		if !p.ExitReason.Valid() {
			return fmt.Errorf("position %s in state %s: invalid exit reason %q", p.ID, p.State, p.ExitReason)
		}
		if p.ExitDate.Before(p.EntryDate) {
			return fmt.Errorf("position %s in state %s: ExitDate (%v) before EntryDate (%v)",
				p.ID, p.State, p.ExitDate, p.EntryDate)
		}
	default:
		return fmt.Errorf("position %s: unknown state %q", p.ID, p.State)
	}
	return nil
}
