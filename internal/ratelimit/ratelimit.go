package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Pacer delays every page request by a random wait in [minDelay, maxDelay).
// Concurrent callers are also kept at least minDelay apart.
type Pacer struct {
	limiter  *rate.Limiter
	minDelay time.Duration
	jitter   time.Duration
	sleepCtx func(ctx context.Context, d time.Duration) error
}

// NewPacer returns a pacer. A zero minDelay disables the fixed part and a
// maxDelay not above minDelay disables the random part.
func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	var jitter time.Duration
	if maxDelay > minDelay {
		jitter = maxDelay - minDelay
	}

	limiter := rate.NewLimiter(limit, 1)
	// The first request waits like every other one.
	limiter.Allow()

	return &Pacer{
		limiter:  limiter,
		minDelay: max(minDelay, 0),
		jitter:   jitter,
		sleepCtx: sleep,
	}
}

// Wait blocks for minDelay plus a random jitter, and for longer when another
// caller went out less than minDelay ago.
func (p *Pacer) Wait(ctx context.Context) error {
	start := time.Now()
	delay := p.minDelay
	if p.jitter > 0 {
		delay += rand.N(p.jitter)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if remaining := delay - time.Since(start); remaining > 0 {
		return p.sleepCtx(ctx, remaining)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
