package storage

import (
	"strings"

	"market-aggregator/src/helpers"
	"market-aggregator/src/interfaces"
	"market-aggregator/src/models"
)

// NewArchive builds the configured archive, nil when storage is disabled.
// The returned archive is not yet initialized.
func NewArchive(cfg models.MStorageConfig, serviceName string) (interfaces.IDatabase, error) {
	switch strings.ToLower(cfg.DBType) {
	case "", "none":
		return nil, nil
	case "sqlite":
		return NewSQLiteArchive(cfg), nil
	case "postgres":
		return NewPostgresArchive(cfg, serviceName), nil
	}
	return nil, helpers.NewConfigurationError(nil, "unsupported db_type %q", cfg.DBType)
}
