package models

// OptionClass represents the class of an option contract.
type OptionClass string

const (
	// OptionCall represents a call option contract
	OptionCall OptionClass = "CALL"
	// OptionPut represents a put option contract
	OptionPut OptionClass = "PUT"
)

// Valid returns true if the OptionClass is one of the defined constants.
func (c OptionClass) Valid() bool {
	return c == OptionCall || c == OptionPut
}

// Side is the direction of a single leg.
type Side string

const (
	// SideLong means the leg was bought (premium paid)
	SideLong Side = "LONG"
	// SideShort means the leg was sold (premium received)
	SideShort Side = "SHORT"
)

// Sign returns +1 for long legs and -1 for short legs. A position's value is
// the sum of sign * premium * quantity over its legs.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Valid returns true if the Side is one of the defined constants.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// Leg is one option contract within a position. Legs are owned exclusively by
// their parent Position and are fixed at construction; only CurrentPremium is
// updated afterwards, by mark-to-market revaluation.
type Leg struct {
	Strike         float64     `json:"strike"`
	Class          OptionClass `json:"class"`
	Side           Side        `json:"side"`
	Quantity       int         `json:"quantity"` // contract multiplier (lot size)
	EntryPremium   float64     `json:"entry_premium"`
	CurrentPremium float64     `json:"current_premium"`
}

// Value returns the leg's signed contribution to position value at the given
// premium.
func (l *Leg) Value(premium float64) float64 {
	return l.Side.Sign() * premium * float64(l.Quantity)
}

// Moneyness selects how a requested strike relates to spot at entry.
type Moneyness string

const (
	// StrikeATM resolves to the nearest tradable strike to spot
	StrikeATM Moneyness = "ATM"
	// StrikeOTM resolves out-of-the-money by a percentage offset from spot
	StrikeOTM Moneyness = "OTM"
	// StrikeITM resolves in-the-money by a percentage offset from spot
	StrikeITM Moneyness = "ITM"
)

// Valid returns true if the Moneyness is one of the defined constants.
func (m Moneyness) Valid() bool {
	switch m {
	case StrikeATM, StrikeOTM, StrikeITM:
		return true
	default:
		return false
	}
}

// LegSpec describes one leg a strategy wants constructed. Strikes are
// requested symbolically (ATM/OTM/ITM plus offset) and resolved against the
// tradable strike ladder when the position is opened.
type LegSpec struct {
	Select    Moneyness   `json:"select"`
	OffsetPct float64     `json:"offset_pct"` // used by OTM/ITM, fraction of spot
	Class     OptionClass `json:"class"`
	Side      Side        `json:"side"`
	Quantity  int         `json:"quantity"`
}
