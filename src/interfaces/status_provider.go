package interfaces

import "market-aggregator/src/models"

// -----------------------------------------------------------------------------
// IStatusProvider exposes read-only snapshots of the aggregation service.
// Safe for concurrent use.
// -----------------------------------------------------------------------------

type IStatusProvider interface {
	Status() models.MServiceStatus
	Symbols() []models.MSymbolStatus
	History(symbol string) ([]models.MRecord, bool)
}
