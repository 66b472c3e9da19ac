package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerWithoutDelays(t *testing.T) {
	p := NewPacer(0, 0)

	start := time.Now()
	for range 5 {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestPacerFirstWaitTakesMinDelay(t *testing.T) {
	p := NewPacer(60*time.Millisecond, 80*time.Millisecond)

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestPacerEveryWaitTakesMinDelay(t *testing.T) {
	p := NewPacer(20*time.Millisecond, 20*time.Millisecond)

	for range 3 {
		start := time.Now()
		require.NoError(t, p.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

		// A slow request does not shorten the next wait.
		time.Sleep(30 * time.Millisecond)
	}
}

func TestPacerJitterWithinBounds(t *testing.T) {
	p := NewPacer(0, 10*time.Millisecond)
	var slept []time.Duration
	p.sleepCtx = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	for range 20 {
		require.NoError(t, p.Wait(context.Background()))
	}

	for _, d := range slept {
		assert.Greater(t, d, time.Duration(0))
		assert.Less(t, d, 10*time.Millisecond)
	}
}

func TestPacerCanceled(t *testing.T) {
	p := NewPacer(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Wait(ctx))
}

func TestPacerCanceledWhileSleeping(t *testing.T) {
	p := NewPacer(0, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
}
