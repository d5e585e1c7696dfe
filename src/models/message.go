package models

import "time"

// Message kinds
const (
	KindBootstrap = "bootstrap"
	KindUpdate    = "update"
)

// MMessage is the envelope emitted to subscribers for one record.
// Symbol doubles as the topic key.
type MMessage struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Cadence     MCadence  `json:"cadence"`
	Kind        string    `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
	Record      MRecord   `json:"record"`
	PublishedAt time.Time `json:"published_at"`
}

// -----------------------------------------------------------------------------

// MSubscribeCommand is sent by websocket clients to pick their topics.
// An empty symbol list or "*" subscribes to every symbol.
type MSubscribeCommand struct {
	Command string   `json:"command"` // "subscribe" or "unsubscribe"
	Symbols []string `json:"symbols"`
}
