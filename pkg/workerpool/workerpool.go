// Package workerpool fans work items out across a bounded set of goroutines.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Process runs fn for every item using at most workerCount goroutines. The
// first error cancels the remaining work and is returned after all in-flight
// items finish.
func Process[T any](ctx context.Context, workerCount int, items []T, fn func(context.Context, T) error) error {
	if workerCount < 1 {
		workerCount = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		item := item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, item)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
