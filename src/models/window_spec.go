package models

import "time"

// MWindowSpec describes what a provider fetch should cover: either a period
// length in days plus the sampling interval, or an explicit [Start, End) range.
type MWindowSpec struct {
	PeriodDays int
	Interval   MCadence
	Start      time.Time
	End        time.Time
}

// IsRange reports whether the spec uses an explicit date range.
func (w MWindowSpec) IsRange() bool {
	return !w.Start.IsZero()
}
