package dispatch

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRun(t *testing.T) {
	pool, err := NewPool(WithPoolSize(4))
	require.NoError(t, err)
	defer pool.Release()

	slots := make([]int, 50)
	err = pool.Run(context.Background(), len(slots), func(ctx context.Context, i int) {
		slots[i] = i * i
	})
	require.NoError(t, err)

	for i, v := range slots {
		assert.Equal(t, i*i, v, "slot %d", i)
	}
}

func TestPoolRun_NilPoolRunsInline(t *testing.T) {
	var pool *Pool
	var count int32

	err := pool.Run(context.Background(), 5, func(ctx context.Context, i int) {
		atomic.AddInt32(&count, 1)
	})

	require.NoError(t, err)
	assert.Equal(t, int32(5), count)
}

func TestPoolRun_CanceledContext(t *testing.T) {
	pool, err := NewPool(WithPoolSize(2))
	require.NoError(t, err)
	defer pool.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var count int32
	err = pool.Run(ctx, 10, func(ctx context.Context, i int) {
		atomic.AddInt32(&count, 1)
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), count)
}

func TestPoolRun_Released(t *testing.T) {
	pool, err := NewPool()
	require.NoError(t, err)
	pool.Release()

	err = pool.Run(context.Background(), 1, func(ctx context.Context, i int) {})

	assert.ErrorIs(t, err, ErrPoolReleased)
}

func TestSplit(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	t.Run("uneven", func(t *testing.T) {
		batches, err := Split(items, 3)
		require.NoError(t, err)
		assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, batches)
	})

	t.Run("larger than input", func(t *testing.T) {
		batches, err := Split(items, 20)
		require.NoError(t, err)
		assert.Equal(t, [][]int{items}, batches)
	})

	t.Run("empty input", func(t *testing.T) {
		batches, err := Split([]int{}, 3)
		require.NoError(t, err)
		assert.Empty(t, batches)
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := Split(items, 0)
		assert.ErrorIs(t, err, ErrInvalidBatchSize)
	})
}
