package mock

import (
	"context"
	"testing"

	"github.com/poiesic/pathways/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockOracle(t *testing.T) {
	ctx := context.Background()

	t.Run("default is unavailable", func(t *testing.T) {
		oracle := NewMockOracle()

		_, err := oracle.Complete(ctx, "sys", "user")

		assert.ErrorIs(t, err, ai.ErrUnavailable)
		assert.Equal(t, 1, oracle.CallCount())
	})

	t.Run("custom func and reset", func(t *testing.T) {
		oracle := NewMockOracle().WithCompleteFunc(func(ctx context.Context, system, user string) (string, error) {
			return system + ":" + user, nil
		})

		text, err := oracle.Complete(ctx, "a", "b")
		require.NoError(t, err)
		assert.Equal(t, "a:b", text)
		assert.Equal(t, []Call{{System: "a", User: "b"}}, oracle.Calls())

		oracle.Reset()
		assert.Equal(t, 0, oracle.CallCount())
		_, err = oracle.Complete(ctx, "a", "b")
		assert.ErrorIs(t, err, ai.ErrUnavailable)
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewMockOracle().Complete(cctx, "a", "b")

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMockProvider(t *testing.T) {
	provider := NewMockProvider()
	defer provider.Close()

	mp, ok := provider.(*MockProvider)
	require.True(t, ok)
	assert.Same(t, mp.GetMockOracle(), provider.Oracle())
}
