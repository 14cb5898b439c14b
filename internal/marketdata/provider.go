// Package marketdata defines the external data-provider boundary: historical
// bar series, recorded option premiums, and tradable strike ladders. The
// simulation core consumes this interface only; implementations own their
// storage and caching.
package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/eddiefleurent/optionsim/internal/models"
)

// ErrNoData reports that a symbol/date-range query yielded zero rows.
var ErrNoData = errors.New("no data for symbol and date range")

// ErrNotFound reports that no recorded premium or strike ladder exists for
// the requested key. Callers fall back to estimation.
var ErrNotFound = errors.New("not found")

// Provider is the abstract data provider the simulation consumes.
//
// GetSeries must return bars in strictly increasing timestamp order with no
// duplicates; the engine validates this defensively but it is the provider's
// contract. Implementations must be safe for concurrent use: multiple
// isolated backtests may share one provider.
type Provider interface {
	// GetSeries returns the underlying bar series for [start, end].
	// Returns ErrNoData when the query yields zero rows.
	GetSeries(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)

	// GetRecordedPremium returns the recorded market premium for the exact
	// strike/class/date/expiry, or ErrNotFound.
	GetRecordedPremium(ctx context.Context, symbol string, strike float64,
		class models.OptionClass, date, expiry time.Time) (float64, error)

	// GetStrikes returns the tradable strike ladder (sorted ascending) for an
	// expiry, or ErrNotFound when the provider has no ladder for it.
	GetStrikes(ctx context.Context, symbol string, expiry time.Time,
		class models.OptionClass) ([]float64, error)
}
