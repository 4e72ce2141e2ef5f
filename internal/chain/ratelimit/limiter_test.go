package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(10.0, 5, "base-sepolia")

	require.NotNil(t, l)
	assert.Equal(t, "base-sepolia", l.network)
	assert.InDelta(t, 10.0, float64(l.limiter.Limit()), 0.001)
	assert.Equal(t, 5, l.limiter.Burst())
}

func TestLimiter_BurstPassesImmediately(t *testing.T) {
	const burst = 5
	l := NewLimiter(100, burst, "base-sepolia")
	ctx := context.Background()

	for i := 0; i < burst; i++ {
		start := time.Now()
		require.NoError(t, l.Wait(ctx), "request %d", i)
		assert.Less(t, time.Since(start), 50*time.Millisecond, "request %d should not block", i)
	}
}

func TestLimiter_BlocksWhenExhausted(t *testing.T) {
	// 10 rps, burst 1: the second call has to wait roughly 100ms for the
	// next token.
	l := NewLimiter(10, 1, "base-sepolia")
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_WaitCancelledByContext(t *testing.T) {
	l := NewLimiter(0.1, 1, "base-sepolia")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx))

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
