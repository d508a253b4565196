/*
This package helps organise an all or nothing pipeline. If an error occurs at
any point in the pipeline, we assume the entire operation should be cancelled.

The context is checked when reading or writing to a channel. If the context is
cancelled, the operation is stopped whether the channel is closed or not.

Based on: https://go.dev/blog/pipelines
*/
package utils

import (
	"context"
	"sync"
)

// ProduceRange emits the integers [0, n) in order.
func ProduceRange(ctx context.Context, n int) <-chan int {
	out := make(chan int)
	go func() {
		defer close(out)
		for i := 0; i < n; i++ {
			select {
			case out <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// TransformWithContext applies transformFn to every item of in. Several
// transforms may read from the same input channel to form a worker pool.
func TransformWithContext[A, B any](ctx context.Context, in <-chan A, transformFn func(A) (B, error)) (<-chan B, <-chan error) {
	out := make(chan B)
	errC := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errC)
		for {
			select {
			// Is the context cancelled?
			case <-ctx.Done():
				errC <- ctx.Err()
				return
			case a, ok := <-in:
				// Is the channel closed?
				if !ok {
					errC <- nil
					return
				}
				b, err := transformFn(a)
				if err != nil {
					errC <- err
					return
				}
				// Can we send? It may be the context is cancelled and there are
				// no receivers.
				select {
				case out <- b:
				case <-ctx.Done():
					errC <- ctx.Err()
					return
				}
			}
		}
	}()
	return out, errC
}

func MergeWithContext[T any](ctx context.Context, cs ...<-chan T) <-chan T {
	out := make(chan T)
	var wg sync.WaitGroup
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan T) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-c:
					if !ok {
						return
					}
					select {
					case out <- t:
					case <-ctx.Done():
						return
					}
				}
			}
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// MergeErrorsWithContext returns the first non nil error of the given channels
// or nil once all of them report success.
func MergeErrorsWithContext(ctx context.Context, cs ...<-chan error) <-chan error {
	errC := make(chan error, 1)
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancelCause(ctx)
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				cancel(ctx.Err())
			case err := <-c:
				if err != nil {
					cancel(err)
				}
			}
		}(c)
	}
	go func() {
		wg.Wait()
		errC <- context.Cause(ctx)
		close(errC)
		cancel(nil)
	}()
	return errC
}

func SinkWithContext[T any](ctx context.Context, in <-chan T, sinkFn func(T) error) <-chan error {
	errC := make(chan error, 1)
	go func() {
		defer close(errC)
		for {
			select {
			case <-ctx.Done():
				errC <- ctx.Err()
				return
			case b, ok := <-in:
				if !ok {
					errC <- nil
					return
				}
				if err := sinkFn(b); err != nil {
					errC <- err
					return
				}
			}
		}
	}()
	return errC
}
