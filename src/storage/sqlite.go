package storage

import (
	"database/sql"
	"fmt"
	"time"

	"market-aggregator/src/helpers"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteArchive struct {
	Config models.MStorageConfig
	DB     *sql.DB
	Logger *logger.Logger

	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewSQLiteArchive(cfg models.MStorageConfig) *SQLiteArchive {
	return &SQLiteArchive{
		Config: cfg,
		Logger: logger.NewLogger(nil, "SQLiteArchive"),
		now:    time.Now,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) Initialize() error {
	db, err := sql.Open("sqlite", d.Config.DBPath)
	if err != nil {
		return helpers.NewStorageError(err, "open %s", d.Config.DBPath)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewStorageError(err, "ping %s", d.Config.DBPath)
	}
	// A single writer avoids SQLITE_BUSY between the publisher and cleanup.
	db.SetMaxOpenConns(1)
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS published_messages (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			cadence TEXT NOT NULL,
			kind TEXT NOT NULL,
			ts INTEGER NOT NULL,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume REAL,
			published_at INTEGER NOT NULL,
			UNIQUE (symbol, cadence, ts)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewStorageError(err, "create published_messages")
	}
	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_published_at ON published_messages (published_at)`); err != nil {
		return helpers.NewStorageError(err, "create index")
	}

	d.Logger.Info("SQLite archive ready at %s", d.Config.DBPath)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) SaveMessages(msgs []models.MMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return helpers.NewStorageError(err, "begin")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO published_messages (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, messageColumns))
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

// Messages returns the archived messages of one symbol, oldest first.
func (d *SQLiteArchive) Messages(symbol string) ([]models.MMessage, error) {
	rows, err := d.DB.Query(fmt.Sprintf(`
		SELECT %s FROM published_messages WHERE symbol = ? ORDER BY ts
	`, messageColumns), symbol)
	if err != nil {
		return nil, helpers.NewStorageError(err, "query %s", symbol)
	}
	defer rows.Close()

	var out []models.MMessage
	for rows.Next() {
		var (
			m           models.MMessage
			cadence     string
			ts, pubUnix int64
		)
		if err := rows.Scan(&m.ID, &m.Symbol, &cadence, &m.Kind, &ts,
			&m.Record.Open, &m.Record.High, &m.Record.Low, &m.Record.Close, &m.Record.Volume, &pubUnix); err != nil {
			return nil, helpers.NewStorageError(err, "scan %s", symbol)
		}
		m.Cadence = models.MCadence(cadence)
		m.Timestamp = time.Unix(ts, 0).UTC()
		m.Record.Timestamp = m.Timestamp
		m.PublishedAt = time.Unix(pubUnix, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) CleanupOldData() error {
	days := d.Config.RetentionDays
	if days <= 0 {
		return nil
	}
	cutoff := retentionCutoff(d.now(), days)

	res, err := d.DB.Exec("DELETE FROM published_messages WHERE published_at < ?", cutoff)
	if err != nil {
		return helpers.NewStorageError(err, "cleanup")
	}
	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup removed %d messages older than %d days", n, days)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteArchive) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
