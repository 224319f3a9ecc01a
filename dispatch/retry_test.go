package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		maxAttempts  int
		wantErr      bool
		wantAttempts int
	}{
		{name: "first try", failures: 0, maxAttempts: 3, wantAttempts: 1},
		{name: "eventual success", failures: 2, maxAttempts: 5, wantAttempts: 3},
		{name: "all attempts fail", failures: 10, maxAttempts: 3, wantErr: true, wantAttempts: 3},
		{name: "zero attempts", failures: 10, maxAttempts: 0, wantErr: true, wantAttempts: 0},
		{name: "negative attempts", failures: 10, maxAttempts: -1, wantErr: true, wantAttempts: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			operation := func() error {
				attempts++
				if attempts <= tt.failures {
					return errors.New("temporary error")
				}
				return nil
			}

			err := RetryWithBackoff(context.Background(), operation, tt.maxAttempts, time.Millisecond)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, attempts)
		})
	}
}

func TestRetryWithBackoff_ReturnsLastError(t *testing.T) {
	expectedErr := errors.New("persistent error")

	err := RetryWithBackoff(context.Background(), func() error { return expectedErr }, 2, time.Millisecond)

	assert.Equal(t, expectedErr, err)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	operation := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	err := RetryWithBackoff(ctx, operation, 10, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	operation := func() error {
		attempts++
		if attempts > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	}

	err := RetryWithBackoff(context.Background(), operation, 5, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, delays, 3)

	assert.Greater(t, delays[1], delays[0], "second delay should be greater than first")
	assert.Greater(t, delays[2], delays[1], "third delay should be greater than second")
}

func TestRetryWithBackoff_PermanentStopsEarly(t *testing.T) {
	denied := errors.New("401 unauthorized")
	attempts := 0

	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return Permanent(denied)
	}, 5, time.Millisecond)

	assert.Equal(t, denied, err, "permanent errors come back unwrapped")
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_PermanentAfterTransient(t *testing.T) {
	sentinel := errors.New("empty response")
	attempts := 0

	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return fmt.Errorf("decoding: %w", Permanent(sentinel))
	}, 10, time.Millisecond)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, attempts)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
