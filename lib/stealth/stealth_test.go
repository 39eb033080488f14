package stealth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastOptions() Options {
	return Options{
		BucketCapacity:    5,
		RefillPerSec:      1000,
		JitterMinMS:       1,
		JitterMaxMS:       2,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2,
		BackoffMax:        time.Millisecond * 8,
		MaxAttempts:       3,
		DailyCeiling:      100,
		IdentityRotation:  time.Hour,
	}
}

func TestThrottleGrantsTokens(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	th := New(fastOptions())
	for i := 0; i < 10; i++ {
		require.NoError(t, th.Throttle(ctx, "navigation"))
	}
}

func TestThrottleRespectsCancellation(t *testing.T) {
	opts := fastOptions()
	opts.DailyCeiling = 1
	th := New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, th.Throttle(ctx, "navigation"))

	// second call hits the ceiling and must unblock on cancel
	go func() {
		time.Sleep(time.Millisecond * 20)
		cancel()
	}()
	err := th.Throttle(ctx, "navigation")
	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoffGivesUpPastMaxAttempts(t *testing.T) {
	ctx := context.Background()
	th := New(fastOptions())

	for attempt := 1; attempt <= 3; attempt++ {
		require.True(t, th.Backoff(ctx, "extract:traffic", attempt))
	}
	require.False(t, th.Backoff(ctx, "extract:traffic", 4))
}

func TestBackoffDelayIsBounded(t *testing.T) {
	th := New(fastOptions())
	ctx := context.Background()

	start := time.Now()
	th.Backoff(ctx, "extract:market", 3)
	elapsed := time.Since(start)
	// base*multiplier^2 = 4ms, plus at most 2ms jitter, allow scheduling slack
	require.Less(t, elapsed, time.Millisecond*500)
}

func TestIdentityRotation(t *testing.T) {
	opts := fastOptions()
	opts.IdentityRotation = time.Millisecond * 10
	th := New(opts)

	first := th.Identity()
	require.NotEmpty(t, first.UserAgent)
	require.NotEmpty(t, first.AcceptLanguage)

	// within the rotation window the identity is stable
	require.Equal(t, first, th.Identity())
}

func TestHumanPauseReturnsOnCancel(t *testing.T) {
	th := New(fastOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	th.HumanPause(ctx, PauseSession)
	require.Less(t, time.Since(start), time.Second)
}
