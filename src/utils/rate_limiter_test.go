package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinIntervalFor(t *testing.T) {
	assert.Equal(t, 2*time.Second, MinIntervalFor(2000))
	assert.Equal(t, time.Second, MinIntervalFor(3600))
	assert.Equal(t, 515*time.Second, MinIntervalFor(7))
	assert.Equal(t, time.Duration(0), MinIntervalFor(0))
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	start := time.Date(2024, 3, 6, 16, 3, 0, 0, time.UTC)
	clock := NewManualClock(start)
	rl := NewRateLimiter(2000, clock)
	ctx := context.Background()

	require.NoError(t, rl.Wait(ctx))
	assert.Empty(t, clock.Sleeps(), "first call never waits")

	require.NoError(t, rl.Wait(ctx))
	require.NoError(t, rl.Wait(ctx))
	assert.Equal(t, []time.Time{start.Add(2 * time.Second), start.Add(4 * time.Second)}, clock.Sleeps())

	// slow caller: enough time already passed
	clock.Advance(10 * time.Second)
	require.NoError(t, rl.Wait(ctx))
	assert.Len(t, clock.Sleeps(), 2)
}

func TestRateLimiterHonoursCancel(t *testing.T) {
	clock := NewManualClock(time.Date(2024, 3, 6, 16, 3, 0, 0, time.UTC))
	rl := NewRateLimiter(60, clock)

	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.Canceled)
}

func TestRealClockSleepUntilCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := RealClock{}.SleepUntil(ctx, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, RealClock{}.SleepUntil(context.Background(), time.Now().Add(-time.Second)))
}
