package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	var waits []time.Duration

	err := WithRetry(context.Background(), RetryConfig{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		Backoff:     true,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			waits = append(waits, wait)
		},
	}, func() error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestWithRetryGivesUp(t *testing.T) {
	calls := 0

	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 2}, func() error {
		calls++
		return errFlaky
	})

	require.ErrorIs(t, err, errFlaky)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestWithRetryPermanent(t *testing.T) {
	calls := 0

	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 5}, func() error {
		calls++
		return Permanent(errFlaky)
	})

	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryJitterBounds(t *testing.T) {
	var wait time.Duration
	calls := 0

	_ = WithRetry(context.Background(), RetryConfig{
		MaxAttempts: 2,
		Delay:       time.Millisecond,
		Jitter:      time.Millisecond,
		OnRetry:     func(_ int, _ error, w time.Duration) { wait = w },
	}, func() error {
		calls++
		return errFlaky
	})

	assert.GreaterOrEqual(t, wait, time.Millisecond)
	assert.Less(t, wait, 2*time.Millisecond)
}

func TestWithRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, RetryConfig{MaxAttempts: 3, Delay: time.Hour}, func() error {
		return errFlaky
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
