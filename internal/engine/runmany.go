package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/optionsim/internal/results"
)

// RunMany executes several runners concurrently, each an isolated backtest
// with its own accountant and position state. Results come back in the same
// order as the runners; the first failure cancels the rest.
func RunMany(ctx context.Context, runners []*Runner, limit int) ([]*results.Summary, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	summaries := make([]*results.Summary, len(runners))
	for i, runner := range runners {
		i, runner := i, runner
		g.Go(func() error {
			s, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}
