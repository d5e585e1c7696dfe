package utils

import (
	"context"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// RealClock is the wall clock.
// -----------------------------------------------------------------------------

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// SleepUntil blocks until t or until ctx is done.
func (RealClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
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

// -----------------------------------------------------------------------------
// ManualClock only moves when told to. SleepUntil jumps straight to the
// requested time, so loops driven by it run without real waiting.
// -----------------------------------------------------------------------------

type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Time
	OnSleep func(until time.Time)
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t, even backwards.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *ManualClock) SleepUntil(ctx context.Context, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.sleeps = append(c.sleeps, t)
	if t.After(c.now) {
		c.now = t
	}
	hook := c.OnSleep
	c.mu.Unlock()

	if hook != nil {
		hook(t)
	}
	return ctx.Err()
}

// Sleeps returns every time SleepUntil was asked to wait for.
func (c *ManualClock) Sleeps() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.sleeps...)
}
