package interfaces

import (
	"context"

	"market-aggregator/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource is the market data provider.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// Fetch returns the records of one symbol covered by window, oldest first.
	// An empty result is not an error.
	Fetch(ctx context.Context, symbol string, window models.MWindowSpec) ([]models.MRecord, error)
}
