// Package worker runs hashing, upload and download jobs on a bounded pool.
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ProgressFunc is called after each item is processed with (done, total).
type ProgressFunc func(done, total int)

// Process runs fn on each item using n concurrent goroutines (NumCPU when
// n <= 0). Results and errors are returned in the same order as items. Items
// not started before ctx is cancelled get ctx.Err() as their error.
func Process[T, R any](ctx context.Context, items []T, n int, fn func(context.Context, T) (R, error), progress ProgressFunc) ([]R, []error) {
	total := len(items)
	if total == 0 {
		return nil, nil
	}
	if n <= 0 {
		n = runtime.NumCPU()
	}

	results := make([]R, total)
	errs := make([]error, total)

	var done atomic.Int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, n)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			results[i], errs[i] = fn(ctx, item)

			current := int(done.Add(1))
			if progress != nil {
				progress(current, total)
			}
		}()
	}

	wg.Wait()

	return results, errs
}

// Join combines the non-nil errors of a Process call, or returns nil.
func Join(errs []error) error {
	return errors.Join(errs...)
}
