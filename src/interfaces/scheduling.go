package interfaces

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// IClock abstracts wall-clock time so scheduling can be tested.
// -----------------------------------------------------------------------------

type IClock interface {
	Now() time.Time

	// SleepUntil blocks until t or until ctx is done, returning ctx.Err() then.
	SleepUntil(ctx context.Context, t time.Time) error
}

// -----------------------------------------------------------------------------
// ITradingCalendar answers trading-day questions in the market timezone.
// -----------------------------------------------------------------------------

type ITradingCalendar interface {
	Location() *time.Location
	IsTradingDay(t time.Time) bool
}
