package storage

import (
	"fmt"
	"strings"

	"market-aggregator/src/helpers"
)

// ParseTableRef splits a "schema.table.field" reference.
func ParseTableRef(ref string) (schema, table, field string, err error) {
	parts := strings.Split(strings.TrimSpace(ref), ".")
	if len(parts) != 3 {
		return "", "", "", helpers.NewValidationError("table reference %q must be schema.table.field", ref)
	}
	for _, p := range parts {
		if !identifierRegex.MatchString(p) {
			return "", "", "", helpers.NewValidationError("invalid identifier %q in %q", p, ref)
		}
	}
	return parts[0], parts[1], parts[2], nil
}

// -----------------------------------------------------------------------------

// GetSymbolsFromTable reads one text column holding symbols. Empty values are skipped.
func (d *PostgresArchive) GetSymbolsFromTable(schema, table, field string) ([]string, error) {
	for _, p := range []string{schema, table, field} {
		if !identifierRegex.MatchString(p) {
			return nil, helpers.NewValidationError("invalid identifier %q", p)
		}
	}

	query := fmt.Sprintf(`SELECT "%s" FROM "%s"."%s"`, field, schema, table)

	rows, err := d.DB.Query(query)
	if err != nil {
		return nil, helpers.NewStorageError(err, "read symbols from %s.%s", schema, table)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, helpers.NewStorageError(err, "scan symbol")
		}
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, helpers.NewStorageError(err, "read symbols")
	}
	return symbols, nil
}
