package models

import "time"

// Instrument classes
const (
	ClassMarketHours = "market"
	ClassAlwaysOn    = "always_on"
)

// MInstrumentState tracks what has been published for one symbol.
// A zero LastPublished means nothing has been published yet.
type MInstrumentState struct {
	Symbol        string    `json:"symbol"`
	Initialized   bool      `json:"initialized"`
	LastPublished time.Time `json:"last_published"`
}

// HasPublished reports whether LastPublished holds a value.
func (s MInstrumentState) HasPublished() bool {
	return !s.LastPublished.IsZero()
}
