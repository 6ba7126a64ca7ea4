package parmap

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolBasic(t *testing.T) {
	p := NewWorkerPool(4)

	var count atomic.Int32
	handles := make([]Handle, 0, 10)
	for i := 0; i < 10; i++ {
		h, err := p.Submit(func() {
			count.Add(1)
		})
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		out := h.Await()
		assert.Equal(t, OutcomeCompleted, out.Kind)
		assert.NoError(t, out.Err)
	}
	require.NoError(t, p.Close())

	assert.Equal(t, int32(10), count.Load())
	stats := p.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Completed)
	assert.Zero(t, stats.Crashed)
	assert.Equal(t, 4, stats.Workers)
}

func TestWorkerPoolConcurrencyLimit(t *testing.T) {
	const workers = 3
	p := NewWorkerPool(workers, WithQueueSize(20))
	defer p.Close()

	var (
		active    atomic.Int32
		maxActive atomic.Int32
		wg        sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		_, err := p.Submit(func() {
			defer wg.Done()
			cur := active.Add(1)
			for {
				old := maxActive.Load()
				if cur <= old || maxActive.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		})
		require.NoError(t, err)
	}
	wg.Wait()
	assert.LessOrEqual(t, maxActive.Load(), int32(workers))
}

func TestWorkerPoolCrash(t *testing.T) {
	p := NewWorkerPool(1)
	defer p.Close()

	h, err := p.Submit(func() {
		panic("worker down")
	})
	require.NoError(t, err)

	out := h.Await()
	assert.Equal(t, OutcomeCrashed, out.Kind)
	var pe *PanicError
	require.ErrorAs(t, out.Err, &pe)
	assert.Equal(t, "worker down", pe.Value)

	// A crash is contained to one task; the worker keeps serving.
	h, err = p.Submit(func() {})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, h.Await().Kind)

	assert.Equal(t, int64(1), p.Stats().Crashed)
}

func TestWorkerPoolClose(t *testing.T) {
	p := NewWorkerPool(2)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "Close is idempotent")

	_, err := p.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestWorkerPoolReuseAcrossCalls(t *testing.T) {
	// A shared pool acts as a reusable engine instance.
	p := NewWorkerPool(2)
	defer p.Close()

	for i := 0; i < 3; i++ {
		got, err := Map(context.Background(), []int{1, 2, 3}, func(ctx context.Context, x int) (int, error) {
			return x + 1, nil
		}, WithWorkers(2), WithSubstrate(p))
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3, 4}, got)
	}
	assert.GreaterOrEqual(t, p.Stats().Submitted, int64(3))
}
