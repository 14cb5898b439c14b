// Package models provides data structures and state management for simulated
// option positions.
package models

import (
	"fmt"
	"time"
)

// PositionState represents the lifecycle state of a position.
type PositionState string

const (
	// StateIdle means no position has been constructed yet
	StateIdle PositionState = "idle"
	// StateOpen means the position is live and marked to market every bar
	StateOpen PositionState = "open"
	// StateClosed is terminal; a closed position is never reopened
	StateClosed PositionState = "closed"
)

// ExitReason names the single condition that closed a position. Exactly one
// reason is ever recorded per close.
type ExitReason string

const (
	// ExitProfitTarget fires when unrealized P&L reaches the profit-target fraction
	ExitProfitTarget ExitReason = "profit_target"
	// ExitStopLoss fires when unrealized P&L falls to the stop-loss fraction
	ExitStopLoss ExitReason = "stop_loss"
	// ExitTimeExpiry fires when the position has been held for the maximum period
	ExitTimeExpiry ExitReason = "time_expiry"
	// ExitStrategyClose is a discretionary close requested by the strategy
	ExitStrategyClose ExitReason = "strategy_close"
	// ExitEndOfData closes any position still open on the final bar
	ExitEndOfData ExitReason = "end_of_data"
)

// Valid returns true if the ExitReason is one of the defined constants.
func (r ExitReason) Valid() bool {
	switch r {
	case ExitProfitTarget, ExitStopLoss, ExitTimeExpiry, ExitStrategyClose, ExitEndOfData:
		return true
	default:
		return false
	}
}

// StateTransition defines one valid state transition.
type StateTransition struct {
	From        PositionState
	To          PositionState
	Condition   string
	Description string
}

// ValidTransitions is the complete transition table. The open transition is
// atomic: if leg construction fails the machine stays idle.
var ValidTransitions = []StateTransition{
	{StateIdle, StateOpen, "position_opened", "All legs resolved and priced, entry logged"},

	{StateOpen, StateClosed, string(ExitProfitTarget), "Profit target fraction reached"},
	{StateOpen, StateClosed, string(ExitStopLoss), "Stop loss fraction reached"},
	{StateOpen, StateClosed, string(ExitTimeExpiry), "Maximum hold period elapsed"},
	{StateOpen, StateClosed, string(ExitStrategyClose), "Strategy requested close"},
	{StateOpen, StateClosed, string(ExitEndOfData), "Series ended with position open"},
}

// StateMachine manages position state transitions.
type StateMachine struct {
	transitionTime  time.Time
	transitionCount map[PositionState]int
	currentState    PositionState
	previousState   PositionState
}

// NewStateMachine creates a state machine in the idle state.
func NewStateMachine() *StateMachine {
	return NewStateMachineFromState(StateIdle)
}

// NewStateMachineFromState creates a state machine resumed at the given
// state, seeding the transition counters as if the machine had walked the
// normal path to get there.
func NewStateMachineFromState(state PositionState) *StateMachine {
	if state == "" {
		state = StateIdle
	}
	sm := &StateMachine{
		currentState:    state,
		previousState:   state,
		transitionCount: make(map[PositionState]int),
	}
	switch state {
	case StateOpen:
		sm.transitionCount[StateOpen] = 1
	case StateClosed:
		sm.transitionCount[StateOpen] = 1
		sm.transitionCount[StateClosed] = 1
	}
	return sm
}

// GetCurrentState returns the current state.
func (sm *StateMachine) GetCurrentState() PositionState {
	return sm.currentState
}

// GetPreviousState returns the previous state.
func (sm *StateMachine) GetPreviousState() PositionState {
	return sm.previousState
}

// IsValidTransition checks whether a transition is defined in the table.
func (sm *StateMachine) IsValidTransition(to PositionState, condition string) error {
	for _, tr := range ValidTransitions {
		if tr.From == sm.currentState && tr.To == to && tr.Condition == condition {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s with condition %q",
		sm.currentState, to, condition)
}

// Transition moves to a new state at the given simulation time.
func (sm *StateMachine) Transition(to PositionState, condition string, at time.Time) error {
	if err := sm.IsValidTransition(to, condition); err != nil {
		return err
	}
	sm.previousState = sm.currentState
	sm.currentState = to
	sm.transitionTime = at
	sm.transitionCount[to]++
	return nil
}

// GetTransitionCount returns how many times the machine has entered a state.
func (sm *StateMachine) GetTransitionCount(state PositionState) int {
	return sm.transitionCount[state]
}

// IsTerminal returns true once the machine has reached the closed state.
func (sm *StateMachine) IsTerminal() bool {
	return sm.currentState == StateClosed
}

// ValidateStateConsistency ensures the machine's counters agree with its state.
func (sm *StateMachine) ValidateStateConsistency() error {
	switch sm.currentState {
	case StateIdle:
		if sm.transitionCount[StateOpen] != 0 || sm.transitionCount[StateClosed] != 0 {
			return fmt.Errorf("idle machine has recorded transitions")
		}
	case StateOpen:
		if sm.transitionCount[StateOpen] != 1 {
			return fmt.Errorf("open machine entered open %d times, want 1",
				sm.transitionCount[StateOpen])
		}
		if sm.transitionCount[StateClosed] != 0 {
			return fmt.Errorf("open machine has a recorded close")
		}
	case StateClosed:
		if sm.transitionCount[StateOpen] != 1 || sm.transitionCount[StateClosed] != 1 {
			return fmt.Errorf("closed machine transition counts inconsistent: open=%d closed=%d",
				sm.transitionCount[StateOpen], sm.transitionCount[StateClosed])
		}
	default:
		return fmt.Errorf("unknown state %q", sm.currentState)
	}
	return nil
}

// Copy creates a deep copy of the StateMachine.
func (sm *StateMachine) Copy() *StateMachine {
	if sm == nil {
		return nil
	}
	cp := &StateMachine{
		transitionTime:  sm.transitionTime,
		currentState:    sm.currentState,
		previousState:   sm.previousState,
		transitionCount: make(map[PositionState]int, len(sm.transitionCount)),
	}
	for k, v := range sm.transitionCount {
		cp.transitionCount[k] = v
	}
	return cp
}
