package sim

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/cablesim/internal/config"
)

// RunBatch runs independent scenarios concurrently. Every scenario gets a
// fresh Runner from newRunner, so metrics are never shared between
// goroutines. newRunner may be called from several goroutines at once.
// Results keep the order of cfgs.
func RunBatch(ctx context.Context, cfgs []*config.Config, newRunner func(*config.Config) *Runner) ([]*Result, error) {
	results := make([]*Result, len(cfgs))
	g, ctx := errgroup.WithContext(ctx)
	for i, cfg := range cfgs {
		g.Go(func() error {
			res, err := newRunner(cfg).Run(ctx, cfg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
