package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunProcessesEveryItem(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	var mu sync.Mutex
	seen := make(map[int]bool)
	err := Run(context.Background(), items, Options{Size: 3}, func(ctx context.Context, item int) {
		mu.Lock()
		seen[item] = true
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Len(t, seen, len(items))
}

func TestRunBoundsConcurrency(t *testing.T) {
	items := make([]int, 20)

	var inFlight, peak int32
	err := Run(context.Background(), items, Options{Size: 3}, func(ctx context.Context, _ int) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestRunReportsBatchProgress(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	var reports [][2]int
	err := Run(context.Background(), items, Options{
		Size: 2,
		OnBatchDone: func(processed, total int) {
			reports = append(reports, [2]int{processed, total})
		},
	}, func(ctx context.Context, _ string) {})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, reports)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := []int{1, 2, 3, 4}

	var calls int32
	err := Run(ctx, items, Options{Size: 1}, func(ctx context.Context, _ int) {
		if atomic.AddInt32(&calls, 1) == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRunEmpty(t *testing.T) {
	err := Run(context.Background(), nil, Options{}, func(ctx context.Context, _ int) {
		t.Fatal("should not be called")
	})
	assert.NoError(t, err)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, Sleep(context.Background(), 0))
}
