package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailuresGrowDelayUpToCap(t *testing.T) {
	c := New()

	prev := c.Delay()
	for i := 0; i < 50; i++ {
		c.Observe(true, 0)
		assert.GreaterOrEqual(t, c.Delay(), prev, "delay must grow monotonically under failure")
		assert.LessOrEqual(t, c.Delay(), defaultCap, "delay must never exceed the cap")
		prev = c.Delay()
	}
	assert.Equal(t, defaultCap, c.Delay(), "sustained failure saturates at the cap")
}

func TestEmptyResultCountsAsFailure(t *testing.T) {
	c := New()
	before := c.Delay()
	c.Observe(false, 0)
	assert.Greater(t, c.Delay(), before)
}

func TestSuccessStreakShrinksDelay(t *testing.T) {
	c := New()

	// build up some delay first
	for i := 0; i < 5; i++ {
		c.Observe(true, 0)
	}
	grown := c.Delay()
	require.Greater(t, grown, DefaultStart)

	// two successes do nothing yet
	c.Observe(false, 10)
	c.Observe(false, 10)
	assert.Equal(t, grown, c.Delay())

	// the third strictly decreases
	c.Observe(false, 10)
	assert.Less(t, c.Delay(), grown)
}

func TestShrinkStopsAtFloor(t *testing.T) {
	c := New()
	for i := 0; i < 100; i++ {
		c.Observe(false, 1)
	}
	assert.Equal(t, defaultFloor, c.Delay())
}

func TestFailureResetsStreak(t *testing.T) {
	c := New()
	c.Observe(false, 5)
	c.Observe(false, 5)
	c.Observe(true, 0) // reset
	grown := c.Delay()

	c.Observe(false, 5)
	assert.Equal(t, grown, c.Delay(), "one success after a failure must not shrink yet")
}

func TestWaitUsesCurrentDelay(t *testing.T) {
	c := New()
	var slept time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, DefaultStart, slept)

	c.Observe(true, 0)
	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, c.Delay(), slept, "Wait paces the next call with the updated delay")
}

func TestWaitHonorsCancellation(t *testing.T) {
	c := NewTuned(5*time.Second, time.Second, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewTunedClampsStart(t *testing.T) {
	c := NewTuned(time.Nanosecond, 10*time.Millisecond, time.Second)
	assert.Equal(t, 10*time.Millisecond, c.Delay())
}
