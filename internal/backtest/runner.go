package backtest

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Request describes a backtest sweep. Empty Months means all twelve.
type Request struct {
	Symbols []string
	Years   []int
	Months  []time.Month
}

// Run fans the sweep out across symbols with a bounded worker pool. Each
// worker walks its symbol's months in order; a sink fault or context
// cancellation aborts the whole run.
func (e *Engine) Run(ctx context.Context, req Request, workers int) error {
	if workers <= 0 {
		workers = 4
	}
	months := req.Months
	if len(months) == 0 {
		for m := time.January; m <= time.December; m++ {
			months = append(months, m)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, symbol := range req.Symbols {
		symbol := symbol
		g.Go(func() error {
			for _, year := range req.Years {
				for _, month := range months {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
					if _, err := e.RunMonth(symbol, year, month); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}
