package backtest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/CycleTrader/internal/model"
)

// Comparison holds the original and enhanced runs over the same inputs. The buy
// and hold benchmark is carried on both results.
type Comparison struct {
	Original *CycleResult
	Enhanced *CycleResult
}

// Compare runs the basic and enhanced strategies concurrently. Inputs are only
// read, each run owns its own state.
func (e *Engine) Compare(ctx context.Context, prices []model.Candle, regimes model.RegimeSeries,
	basic BasicParams, enhanced EnhancedParams) (*Comparison, error) {

	g, ctx := errgroup.WithContext(ctx)
	var c Comparison

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := e.RunBasic(prices, regimes, basic)
		if err != nil {
			return err
		}
		c.Original = result
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := e.RunEnhanced(prices, regimes, enhanced)
		if err != nil {
			return err
		}
		c.Enhanced = result
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &c, nil
}
