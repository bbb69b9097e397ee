package retry

import (
	"context"
	"testing"
	"time"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()

	original := sleepFunc

	t.Cleanup(func() {
		sleepFunc = original
	})

	var slept []time.Duration

	sleepFunc = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}

	return &slept
}

func TestRetry(t *testing.T) {
	logger := ulogger.TestLogger{}

	t.Run("succeeds first time", func(t *testing.T) {
		slept := noSleep(t)

		result, err := Retry(context.Background(), logger, func() (string, error) {
			return "success", nil
		}, WithRetryCount(3))
		require.NoError(t, err)
		assert.Equal(t, "success", result)
		assert.Empty(t, *slept)
	})

	t.Run("succeeds after failures", func(t *testing.T) {
		slept := noSleep(t)
		calls := 0

		result, err := Retry(context.Background(), logger, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.NewStorageUnavailableError("database is locked")
			}

			return calls, nil
		}, WithRetryCount(5), WithBackoffMultiplier(2), WithBackoffDurationType(time.Millisecond))
		require.NoError(t, err)
		assert.Equal(t, 3, result)
		assert.Equal(t, []time.Duration{time.Millisecond, 3 * time.Millisecond}, *slept)
	})

	t.Run("gives up", func(t *testing.T) {
		slept := noSleep(t)
		calls := 0

		_, err := Retry(context.Background(), logger, func() (int, error) {
			calls++
			return 0, errors.NewStorageUnavailableError("deadlock detected")
		}, WithRetryCount(3), WithBackoffDurationType(time.Millisecond))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
		assert.Equal(t, 3, calls)
		assert.Len(t, *slept, 2)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		noSleep(t)
		calls := 0

		_, err := Retry(context.Background(), logger, func() (int, error) {
			calls++
			return 0, errors.NewInsufficientFundsError("balance too low")
		}, WithRetryCount(3), WithRetryable(errors.IsRetryableError))
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context ends", func(t *testing.T) {
		noSleep(t)

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0

		_, err := Retry(ctx, logger, func() (int, error) {
			calls++
			cancel()

			return 0, errors.NewStorageUnavailableError("busy")
		}, WithRetryCount(5))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrStorageUnavailable))
		assert.Equal(t, 1, calls)
	})
}

func TestBackoffAndSleep(t *testing.T) {
	t.Run("backoff calculation", func(t *testing.T) {
		slept := noSleep(t)

		tests := []struct {
			retries    int
			multiplier int
			duration   time.Duration
			expected   time.Duration
		}{
			{0, 1, time.Second, 1 * time.Second},            // (0*1)+1 = 1
			{1, 2, time.Second, 3 * time.Second},            // (1*2)+1 = 3
			{2, 5, time.Millisecond, 11 * time.Millisecond}, // (2*5)+1 = 11
		}

		for _, tc := range tests {
			require.NoError(t, BackoffAndSleep(context.Background(), tc.retries, tc.multiplier, tc.duration))
			assert.Equal(t, tc.expected, (*slept)[len(*slept)-1])
		}
	})

	t.Run("cancels on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := BackoffAndSleep(ctx, 2, 1, time.Hour)
		assert.Equal(t, context.Canceled, err)
	})
}
