package interfaces

import "market-aggregator/src/models"

// -----------------------------------------------------------------------------
// IDatabase is the optional archive of published messages.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveMessages archives a batch of published messages, ignoring duplicates.
	SaveMessages(msgs []models.MMessage) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes records older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}

// -----------------------------------------------------------------------------
// ISymbolTableReader loads symbols stored in a database column.
// -----------------------------------------------------------------------------

type ISymbolTableReader interface {
	GetSymbolsFromTable(schema, table, field string) ([]string, error)
}
