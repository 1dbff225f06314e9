package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProcess_ResultsInSubmissionOrder(t *testing.T) {
	pool := New(Config{MaxConcurrent: 3}, zap.NewNop())

	items := make([]WorkItem[int], 10)
	for i := range items {
		n := i
		items[i] = WorkItem[int]{
			ID: fmt.Sprintf("item%d", n),
			Execute: func(ctx context.Context) (int, error) {
				// Later items finish first
				time.Sleep(time.Duration(10-n) * time.Millisecond)
				return n * n, nil
			},
		}
	}

	results := Process(context.Background(), pool, items, nil)

	require.Len(t, results, 10)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("item%d", i), r.ID)
		assert.NoError(t, r.Err)
		assert.Equal(t, i*i, r.Result)
	}
}

func TestProcess_WithErrors(t *testing.T) {
	pool := New(Config{MaxConcurrent: 2}, zap.NewNop())

	expectedErr := errors.New("task failed")
	items := []WorkItem[string]{
		{ID: "task1", Execute: func(ctx context.Context) (string, error) { return "result1", nil }},
		{ID: "task2", Execute: func(ctx context.Context) (string, error) { return "", expectedErr }},
		{ID: "task3", Execute: func(ctx context.Context) (string, error) { return "result3", nil }},
	}

	results := Process(context.Background(), pool, items, nil)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, expectedErr)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "result3", results[2].Result)
}

func TestProcess_RecoversPanics(t *testing.T) {
	pool := New(Config{MaxConcurrent: 2}, zap.NewNop())

	items := []WorkItem[int]{
		{ID: "ok", Execute: func(ctx context.Context) (int, error) { return 1, nil }},
		{ID: "boom", Execute: func(ctx context.Context) (int, error) { panic("index out of range") }},
	}

	results := Process(context.Background(), pool, items, nil)

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)

	var panicErr *PanicError
	require.ErrorAs(t, results[1].Err, &panicErr)
	assert.Equal(t, "boom", panicErr.ID)
	assert.Equal(t, "index out of range", panicErr.Value)
}

func TestProcess_EmptyItems(t *testing.T) {
	pool := New(Config{MaxConcurrent: 2}, zap.NewNop())

	results := Process[int](context.Background(), pool, nil, nil)
	assert.Nil(t, results)
}

func TestProcess_BoundedConcurrency(t *testing.T) {
	pool := New(Config{MaxConcurrent: 2}, zap.NewNop())

	var current, peak int32
	items := make([]WorkItem[struct{}], 8)
	for i := range items {
		items[i] = WorkItem[struct{}]{
			ID: fmt.Sprintf("item%d", i),
			Execute: func(ctx context.Context) (struct{}, error) {
				n := atomic.AddInt32(&current, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return struct{}{}, nil
			},
		}
	}

	Process(context.Background(), pool, items, nil)

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestProcess_ProgressCallback(t *testing.T) {
	pool := New(Config{MaxConcurrent: 2}, zap.NewNop())

	items := make([]WorkItem[int], 5)
	for i := range items {
		items[i] = WorkItem[int]{ID: fmt.Sprintf("item%d", i), Execute: func(ctx context.Context) (int, error) { return 0, nil }}
	}

	var mu sync.Mutex
	var calls []int
	Process(context.Background(), pool, items, func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 5, total)
		calls = append(calls, completed)
	})

	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
}

func TestProcess_CancelledContext(t *testing.T) {
	pool := New(Config{MaxConcurrent: 1}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []WorkItem[int]{
		{ID: "a", Execute: func(ctx context.Context) (int, error) { return 1, ctx.Err() }},
		{ID: "b", Execute: func(ctx context.Context) (int, error) { return 2, ctx.Err() }},
	}

	results := Process(ctx, pool, items, nil)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestNew_DefaultsConcurrency(t *testing.T) {
	pool := New(Config{}, zap.NewNop())
	assert.Equal(t, 4, pool.MaxConcurrent())
}
