package utils

import (
	"context"
	"math"
	"sync"
	"time"

	"market-aggregator/src/interfaces"
)

// -----------------------------------------------------------------------------
// RateLimiter spaces provider calls at least MinInterval apart, measured from
// the moment the previous Wait returned. No bursts.
// -----------------------------------------------------------------------------

type RateLimiter struct {
	MinInterval time.Duration
	clock       interfaces.IClock
	last        time.Time
	mu          sync.Mutex
}

// -----------------------------------------------------------------------------

func NewRateLimiter(requestsPerHour int, clock interfaces.IClock) *RateLimiter {
	if clock == nil {
		clock = RealClock{}
	}
	return &RateLimiter{
		MinInterval: MinIntervalFor(requestsPerHour),
		clock:       clock,
	}
}

// -----------------------------------------------------------------------------

// MinIntervalFor returns ceil(3600/requestsPerHour) whole seconds.
func MinIntervalFor(requestsPerHour int) time.Duration {
	if requestsPerHour <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(3600/float64(requestsPerHour))) * time.Second
}

// -----------------------------------------------------------------------------

// Wait blocks until the next slot is free. The first call never waits.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.last.IsZero() {
		next := rl.last.Add(rl.MinInterval)
		if rl.clock.Now().Before(next) {
			if err := rl.clock.SleepUntil(ctx, next); err != nil {
				return err
			}
		}
	}

	rl.last = rl.clock.Now()
	return nil
}
