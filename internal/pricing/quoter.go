package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/optionsim/internal/models"
)

// QuoteSource says where a premium came from. The recorded-vs-estimated
// choice is observable on every quote so tests can assert the fallback path.
type QuoteSource string

const (
	// SourceRecorded means the premium came from the data provider
	SourceRecorded QuoteSource = "recorded"
	// SourceEstimated means the premium came from the estimator fallback
	SourceEstimated QuoteSource = "estimated"
)

// Quote is a priced option premium together with its provenance.
type Quote struct {
	Premium float64
	Source  QuoteSource
}

// RecordedPremiumSource is the slice of the data provider the quoter needs.
// Implementations return marketdata.ErrNotFound (or any error) when no
// recorded premium exists for the exact strike/class/date/expiry.
type RecordedPremiumSource interface {
	GetRecordedPremium(ctx context.Context, symbol string, strike float64,
		class models.OptionClass, date, expiry time.Time) (float64, error)
}

// Quoter prices a single option: recorded market premium when the provider
// has one, estimator fallback otherwise. The fallback is never silent; every
// estimated quote is logged with a fallback flag.
type Quoter struct {
	source    RecordedPremiumSource // may be nil: estimate-only mode
	estimator *Estimator
	logger    *logrus.Logger
}

// NewQuoter creates a Quoter. source may be nil, in which case every quote is
// estimated.
func NewQuoter(source RecordedPremiumSource, estimator *Estimator, logger *logrus.Logger) *Quoter {
	if estimator == nil {
		estimator = NewEstimator()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Quoter{source: source, estimator: estimator, logger: logger}
}

// Premium prices one option at the given date. Lookup failures fall back to
// estimation rather than halting; only context cancellation propagates.
func (q *Quoter) Premium(ctx context.Context, symbol string, strike float64, class models.OptionClass,
	spot, volProxy float64, date, expiry time.Time, daysToExpiry int) (Quote, error) {

	if q.source != nil {
		premium, err := q.source.GetRecordedPremium(ctx, symbol, strike, class, date, expiry)
		switch {
		case err == nil && premium > 0:
			return Quote{Premium: premium, Source: SourceRecorded}, nil
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return Quote{}, err
		case err != nil:
			q.logger.WithFields(logrus.Fields{
				"symbol":   symbol,
				"strike":   strike,
				"class":    class,
				"date":     date.Format("2006-01-02"),
				"fallback": true,
			}).Debug("recorded premium unavailable, estimating")
		default:
			// A recorded zero is a missing quote, not a free option.
			q.logger.WithFields(logrus.Fields{
				"symbol":   symbol,
				"strike":   strike,
				"class":    class,
				"date":     date.Format("2006-01-02"),
				"fallback": true,
			}).Debug("recorded premium is zero, estimating")
		}
	}

	est := q.estimator.Estimate(strike, class, spot, volProxy, daysToExpiry)
	return Quote{Premium: est, Source: SourceEstimated}, nil
}
