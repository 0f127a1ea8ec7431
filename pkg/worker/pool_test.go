package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_OrderAndErrors(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5, 6}
	errOdd := errors.New("odd")

	var progressCalls atomic.Int32
	results, errs := Process(context.Background(), items, 3, func(_ context.Context, n int) (int, error) {
		if n%2 == 1 {
			return 0, errOdd
		}
		return n * 10, nil
	}, func(done, total int) {
		progressCalls.Add(1)
		assert.Equal(t, len(items), total)
	})

	assert.Equal(t, []int{0, 20, 0, 40, 0, 60}, results)
	for i, err := range errs {
		if items[i]%2 == 1 {
			assert.ErrorIs(t, err, errOdd)
		} else {
			assert.NoError(t, err)
		}
	}
	assert.Equal(t, int32(len(items)), progressCalls.Load())
	assert.ErrorIs(t, Join(errs), errOdd)
}

func TestProcess_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	items := make([]int, 20)

	_, errs := Process(context.Background(), items, 4, func(_ context.Context, _ int) (struct{}, error) {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	}, nil)

	assert.NoError(t, Join(errs))
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestProcess_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	_, errs := Process(ctx, []string{"a", "b"}, 1, func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", nil
	}, nil)

	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], context.Canceled)
	assert.ErrorIs(t, errs[1], context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestProcess_Empty(t *testing.T) {
	t.Parallel()

	results, errs := Process(context.Background(), []int(nil), 2, func(context.Context, int) (int, error) {
		return 0, nil
	}, nil)
	assert.Nil(t, results)
	assert.Nil(t, errs)
	assert.NoError(t, Join(errs))
}
