package batch

import (
	"context"
	"sync"
	"time"
)

const defaultBatchSize = 10

// Options configures a batched run
type Options struct {
	// Size is the number of items executed concurrently per batch
	Size int
	// Delay is slept between consecutive batches, never after the last one
	Delay time.Duration
	// OnBatchDone is called after each batch with the running total
	OnBatchDone func(processed, total int)
}

// Run processes items in fixed-size batches. Items of one batch run concurrently and
// the whole batch is awaited before the next starts, which bounds the number of
// in-flight calls regardless of len(items). fn must handle its own errors.
//
// Run stops early and returns ctx.Err() when the context is cancelled between batches.
func Run[T any](ctx context.Context, items []T, opts Options, fn func(ctx context.Context, item T)) error {
	total := len(items)
	if total == 0 {
		return nil
	}

	size := opts.Size
	if size <= 0 {
		size = defaultBatchSize
	}

	for start := 0; start < total; start += size {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + size
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for _, item := range items[start:end] {
			wg.Add(1)
			go func(item T) {
				defer wg.Done()
				fn(ctx, item)
			}(item)
		}
		wg.Wait()

		if opts.OnBatchDone != nil {
			opts.OnBatchDone(end, total)
		}

		if end < total {
			if err := Sleep(ctx, opts.Delay); err != nil {
				return err
			}
		}
	}

	return nil
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
