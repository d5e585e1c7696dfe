package models

import "time"

// MSymbolStatus is the externally visible state of one instrument.
type MSymbolStatus struct {
	Symbol        string    `json:"symbol"`
	Class         string    `json:"class"`
	Initialized   bool      `json:"initialized"`
	LastPublished time.Time `json:"last_published"`
	LastError     string    `json:"last_error,omitempty"`
	BufferLength  int       `json:"buffer_length"`
}

// MCycleStats summarises the most recent update cycle.
type MCycleStats struct {
	Trigger          time.Time `json:"trigger"`
	StartedAt        time.Time `json:"started_at"`
	DurationSeconds  float64   `json:"duration_seconds"`
	MarketPolled     bool      `json:"market_polled"`
	AlwaysOnPolled   bool      `json:"always_on_polled"`
	SymbolsUpdated   int       `json:"symbols_updated"`
	SymbolsFailed    int       `json:"symbols_failed"`
	RecordsPublished int       `json:"records_published"`
}

// MServiceStatus is a point-in-time snapshot of the aggregation service.
type MServiceStatus struct {
	Name          string      `json:"name"`
	Cadence       MCadence    `json:"cadence"`
	StartedAt     time.Time   `json:"started_at"`
	NextTrigger   time.Time   `json:"next_trigger"`
	Cycles        int         `json:"cycles"`
	LastCycle     MCycleStats `json:"last_cycle"`
	MarketCount   int         `json:"market_count"`
	AlwaysOnCount int         `json:"always_on_count"`
}
