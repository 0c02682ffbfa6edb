package cliques

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// errStopped is returned by a collector that wants no more values.
var errStopped = errors.New("collector stopped")

type distributeParams struct {
	workers int
	buffer  int
}

// distribute runs work for every partition in [0, partitions) on a fixed pool
// of workers and feeds everything they emit to collect, which always runs on
// the calling goroutine.
//
// emit blocks while the result channel is full and returns false once the
// run is being torn down, after which the worker should return. The first
// error from collect cancels the workers and is returned; errStopped is
// swallowed. Cancellation of ctx is reported even if every partition ran.
func distribute[T any](
	ctx context.Context,
	p distributeParams,
	partitions int,
	work func(ctx context.Context, part int, emit func(T) bool),
	collect func(T) error,
) error {
	if p.workers < 1 {
		p.workers = 1
	}
	if p.buffer < 0 {
		p.buffer = 0
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int, partitions)
	for i := range partitions {
		jobs <- i
	}
	close(jobs)

	results := make(chan T, p.buffer)

	g, wctx := errgroup.WithContext(ctx)
	for range p.workers {
		g.Go(func() error {
			emit := func(v T) bool {
				select {
				case results <- v:
					return true
				case <-wctx.Done():
					return false
				}
			}
			for {
				select {
				case <-wctx.Done():
					return wctx.Err()
				case part, ok := <-jobs:
					if !ok {
						return nil
					}
					work(wctx, part, emit)
				}
			}
		})
	}

	// results is closed only after every worker has returned, so the
	// collector below sees everything that was emitted.
	var workErr error
	go func() {
		workErr = g.Wait()
		close(results)
	}()

	var collectErr error
	for v := range results {
		if collectErr != nil {
			continue
		}
		if err := collect(v); err != nil {
			collectErr = err
			cancel()
		}
	}

	switch {
	case errors.Is(collectErr, errStopped):
		return nil
	case collectErr != nil:
		return collectErr
	case workErr != nil:
		return workErr
	}
	return parent.Err()
}
