// Package throttle paces calls against a rate-limited provider with an
// adaptive delay: multiplicative-plus-additive growth on failure, capped,
// and gradual shrink after sustained success.
package throttle

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultStart is the cold-start delay for a fresh run. The provider's
	// true rate-limit window is unknown, so every run begins from this
	// conservative baseline rather than carrying state over.
	DefaultStart = 300 * time.Millisecond

	defaultFloor  = 100 * time.Millisecond
	defaultCap    = 15 * time.Second
	growthFactor  = 1.5
	growthAdd     = 200 * time.Millisecond
	shrinkFactor  = 0.75
	streakToRelax = 3
)

// Controller holds the delay state for one discovery run. It is owned by a
// single run and must not be shared between concurrent runs.
type Controller struct {
	delay         time.Duration
	floor         time.Duration
	cap           time.Duration
	successStreak int

	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Controller starting at DefaultStart.
func New() *Controller {
	return NewWithDelay(DefaultStart)
}

// NewWithDelay returns a Controller with an explicit starting delay,
// clamped into [floor, cap].
func NewWithDelay(start time.Duration) *Controller {
	return NewTuned(start, defaultFloor, defaultCap)
}

// NewTuned returns a Controller with explicit start, floor and cap. Mainly
// useful for short-window providers and fast tests.
func NewTuned(start, floor, capMax time.Duration) *Controller {
	if floor <= 0 {
		floor = defaultFloor
	}
	if capMax < floor {
		capMax = defaultCap
	}
	c := &Controller{
		floor: floor,
		cap:   capMax,
		sleep: sleepCtx,
	}
	c.delay = c.clamp(start)
	return c
}

// Wait blocks for the current delay before the next call is allowed. It
// paces upcoming calls, not the one just completed. Returns early with the
// context error if ctx is cancelled.
func (c *Controller) Wait(ctx context.Context) error {
	return c.sleep(ctx, c.delay)
}

// Observe feeds the outcome of a call back into the controller.
// A rate-limited or empty result resets the success streak and grows the
// delay; a successful non-empty result counts toward relaxing it.
func (c *Controller) Observe(rateLimited bool, resultCount int) {
	if rateLimited || resultCount == 0 {
		c.successStreak = 0
		grown := time.Duration(math.Round(float64(c.delay)*growthFactor)) + growthAdd
		c.delay = c.clamp(grown)
		return
	}

	c.successStreak++
	if c.successStreak >= streakToRelax {
		shrunk := time.Duration(math.Round(float64(c.delay) * shrinkFactor))
		c.delay = c.clamp(shrunk)
	}
}

// Delay returns the current inter-call delay.
func (c *Controller) Delay() time.Duration { return c.delay }

func (c *Controller) clamp(d time.Duration) time.Duration {
	if d < c.floor {
		return c.floor
	}
	if d > c.cap {
		return c.cap
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
