package models

import "time"

// MRecord is one time-stamped price/volume observation.
// Daily records carry local midnight of the market timezone; intraday records
// carry the full bar timestamp.
type MRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	Close     float64   `json:"close"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    float64   `json:"volume"`
}

// -----------------------------------------------------------------------------

// SameDate reports whether r and other fall on the same calendar day in loc.
func (r MRecord) SameDate(other MRecord, loc *time.Location) bool {
	y1, m1, d1 := r.Timestamp.In(loc).Date()
	y2, m2, d2 := other.Timestamp.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DateIn truncates t to midnight of its calendar day in loc.
func DateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
