package utils

import (
	"context"
	"sync"
)

// ParallelForEach executes fn for each item using at most workers goroutines.
// The returned slice is index-aligned with items. Items never started because
// ctx was cancelled report ctx.Err().
func ParallelForEach[T any](ctx context.Context, items []T, workers int, fn func(context.Context, T) error) []error {
	_, errs := ParallelMap(ctx, items, workers, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return errs
}

// ParallelMap applies fn to each item concurrently and returns index-aligned
// results and errors
func ParallelMap[T, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) (R, error)) ([]R, []error) {
	results := make([]R, len(items))
	errors := make([]error, len(items))
	if len(items) == 0 {
		return results, errors
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	started := make([]bool, len(items))
	taskChan := make(chan int)
	var wg sync.WaitGroup

	// Start workers; each index is written by exactly one worker
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range taskChan {
				results[idx], errors[idx] = fn(ctx, items[idx])
			}
		}()
	}

	// Submit tasks
submit:
	for i := range items {
		select {
		case <-ctx.Done():
			break submit
		case taskChan <- i:
			started[i] = true
		}
	}
	close(taskChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i, ok := range started {
			if !ok {
				errors[i] = err
			}
		}
	}

	return results, errors
}

// FirstError returns the first non-nil error from a slice of errors
func FirstError(errors []error) error {
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}
