package interfaces

import (
	"context"

	"market-aggregator/src/models"
)

// -----------------------------------------------------------------------------
// ITransport is one publish/subscribe channel messages are emitted on.
// -----------------------------------------------------------------------------

type ITransport interface {
	// Name identifies the transport in logs
	Name() string

	// -----------------------------------------------------------------------------
	// Start binds the transport once, before anything is sent
	Start(ctx context.Context) error

	// -----------------------------------------------------------------------------
	// Send emits one message keyed by its symbol. Calls for the same symbol
	// must be delivered in call order.
	Send(ctx context.Context, msg models.MMessage) error

	// -----------------------------------------------------------------------------
	// Stop releases the transport
	Stop() error
}

// -----------------------------------------------------------------------------
// IPublisher fans new records out to subscribers.
// -----------------------------------------------------------------------------

type IPublisher interface {
	Publish(ctx context.Context, symbol string, records []models.MRecord, kind string) (int, error)
}
