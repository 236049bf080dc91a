package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRateLimiterSpacesRequests(t *testing.T) {
	limiter := NewSimpleRateLimiter(20*time.Millisecond, 20*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	// the first call passes immediately, the next two wait
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSimpleRateLimiterCancelled(t *testing.T) {
	limiter := NewSimpleRateLimiter(time.Hour, time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}

func TestAdaptiveRateLimiter(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(100*time.Millisecond, 200*time.Millisecond)

	for i := 0; i < 3; i++ {
		limiter.RecordError()
	}
	min, max := limiter.Delays()
	assert.Equal(t, 150*time.Millisecond, min)
	assert.Equal(t, 300*time.Millisecond, max)

	for i := 0; i < 6; i++ {
		limiter.RecordSuccess()
	}
	min, _ = limiter.Delays()
	assert.Equal(t, 135*time.Millisecond, min)

	// never below the configured minimum
	for i := 0; i < 60; i++ {
		limiter.RecordSuccess()
	}
	min, _ = limiter.Delays()
	assert.Equal(t, 100*time.Millisecond, min)
}

func TestTokenBucketRateLimiter(t *testing.T) {
	limiter := NewTokenBucketRateLimiter(0, 1)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}

	limiter = NewTokenBucketRateLimiter(100, 1)
	limiter.SetDelay(time.Hour, 0)
	assert.InDelta(t, 1.0/3600, limiter.Limit(), 1e-9)

	// the single token is already spent, so waiting would exceed the deadline
	require.NoError(t, limiter.Wait(ctx))
	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(short))
}

var (
	_ RateLimiter = (*SimpleRateLimiter)(nil)
	_ RateLimiter = (*AdaptiveRateLimiter)(nil)
	_ RateLimiter = (*TokenBucketRateLimiter)(nil)
	_ Feedback    = (*AdaptiveRateLimiter)(nil)
)
