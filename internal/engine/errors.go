// Package engine runs options-strategy backtests: it walks a price series
// bar by bar (or replays a batch strategy's trade log), manages the single
// position's lifecycle, applies transaction costs, and hands the finished
// trade log and equity curve to the results aggregator.
package engine

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a backtest could not complete. Every error
// surfaced from Runner.Run wraps exactly one kind so callers can react
// without string matching.
type FailureKind string

const (
	// FailureDataUnavailable means the requested market data could not be
	// fetched or was structurally invalid (empty series, unordered dates).
	FailureDataUnavailable FailureKind = "data_unavailable"
	// FailureInvalidConfiguration means the run parameters were rejected
	// before any bar was processed.
	FailureInvalidConfiguration FailureKind = "invalid_configuration"
	// FailureStrategyFault means the strategy returned an error or an
	// unusable signal mid-run.
	FailureStrategyFault FailureKind = "strategy_fault"
	// FailureCanceled means the run was stopped by context cancellation.
	FailureCanceled FailureKind = "canceled"
)

// Failure is the engine's error type. It carries the classification plus the
// underlying cause for wrapping.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("backtest failed (%s): %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure wraps err with a classification. A nil err returns nil.
func NewFailure(kind FailureKind, err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Kind: kind, Err: err}
}

// KindOf extracts the failure classification from an error chain. Errors
// that did not originate in the engine return false.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
