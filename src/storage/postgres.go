package storage

import (
	"database/sql"
	"fmt"
	"time"

	"market-aggregator/src/helpers"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresArchive struct {
	Config models.MStorageConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger

	now func() time.Time
}

// -----------------------------------------------------------------------------

// NewPostgresArchive keeps its tables in their own schema, named after the service.
func NewPostgresArchive(cfg models.MStorageConfig, serviceName string) *PostgresArchive {
	return &PostgresArchive{
		Config: cfg,
		Schema: SchemaName(serviceName),
		Logger: logger.NewLogger(nil, "PostgresArchive"),
		now:    time.Now,
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) Initialize() error {
	db, err := sql.Open("postgres", d.Config.DBConnectionString)
	if err != nil {
		return helpers.NewStorageError(err, "open postgres")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewStorageError(err, "ping postgres")
	}
	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewStorageError(err, "create schema %s", d.Schema)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			cadence TEXT NOT NULL,
			kind TEXT NOT NULL,
			ts BIGINT NOT NULL,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			published_at BIGINT NOT NULL,
			UNIQUE (symbol, cadence, ts)
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewStorageError(err, "create %s", d.table())
	}

	d.Logger.Info("Postgres archive initialized (Schema: %s)", d.Schema)
	return nil
}

func (d *PostgresArchive) table() string {
	return fmt.Sprintf(`"%s"."published_messages"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) SaveMessages(msgs []models.MMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return helpers.NewStorageError(err, "begin")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT DO NOTHING
	`, d.table(), messageColumns))
	if err != nil {
		return helpers.NewStorageError(err, "prepare insert")
	}
	defer stmt.Close()

	for _, m := range msgs {
		if _, err := stmt.Exec(messageRow(m)...); err != nil {
			return helpers.NewStorageError(err, "insert %s", m.Symbol)
		}
	}

	if err := tx.Commit(); err != nil {
		return helpers.NewStorageError(err, "commit")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) CleanupOldData() error {
	days := d.Config.RetentionDays
	if days <= 0 {
		return nil
	}
	cutoff := retentionCutoff(d.now(), days)

	res, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE published_at < $1`, d.table()), cutoff)
	if err != nil {
		return helpers.NewStorageError(err, "cleanup")
	}
	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup removed %d messages older than %d days", n, days)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresArchive) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
