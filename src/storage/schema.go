package storage

import (
	"regexp"
	"strings"
	"time"

	"market-aggregator/src/models"
)

// Columns of the published_messages table, in insert order
const messageColumns = "id, symbol, cadence, kind, ts, open, high, low, close, volume, published_at"

var identifierRegex = regexp.MustCompile(`^\w+$`)

// -----------------------------------------------------------------------------

// messageRow flattens a message into column values. Times are stored as unix
// seconds so both backends share one layout.
func messageRow(m models.MMessage) []interface{} {
	r := m.Record
	return []interface{}{
		m.ID, m.Symbol, string(m.Cadence), m.Kind, m.Timestamp.Unix(),
		r.Open, r.High, r.Low, r.Close, r.Volume, m.PublishedAt.Unix(),
	}
}

// retentionCutoff returns the unix second before which messages are purged.
func retentionCutoff(now time.Time, days int) int64 {
	return now.UTC().AddDate(0, 0, -days).Unix()
}

// SchemaName turns a service name into a safe postgres schema identifier.
func SchemaName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = regexp.MustCompile(`\W+`).ReplaceAllString(s, "_")
	if s == "" {
		return "aggregator"
	}
	return s
}
