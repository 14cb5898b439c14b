package models

// SignalType tags the variant of a strategy Signal.
type SignalType string

const (
	// SignalNone means the strategy has nothing to do this bar
	SignalNone SignalType = "NONE"
	// SignalOpen requests a new position built from the attached leg specs
	SignalOpen SignalType = "OPEN"
	// SignalClose requests the open position be closed with the given reason
	SignalClose SignalType = "CLOSE"
)

// Signal is the tagged variant a bar-by-bar strategy returns from OnBar.
// Legs is populated only for SignalOpen; Reason only for SignalClose.
type Signal struct {
	Type   SignalType
	Kind   string // position kind tag, e.g. "bull-call-spread"
	Legs   []LegSpec
	Reason ExitReason
}

// None returns the empty signal.
func None() Signal {
	return Signal{Type: SignalNone}
}

// Open returns a signal requesting a new position of the given kind.
func Open(kind string, legs []LegSpec) Signal {
	return Signal{Type: SignalOpen, Kind: kind, Legs: legs}
}

// Close returns a signal requesting the open position be closed.
func Close(reason ExitReason) Signal {
	return Signal{Type: SignalClose, Reason: reason}
}
