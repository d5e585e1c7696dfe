package symbols

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"market-aggregator/src/helpers"
	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"
	"market-aggregator/src/storage"
	"market-aggregator/src/utils"

	"github.com/gocarina/gocsv"
)

// TablePrefix marks a "schema.table.field" reference in command line sources.
const TablePrefix = "pg:"

// symbolRow is one row of a symbol CSV file. Extra columns are ignored.
type symbolRow struct {
	Symbol string `csv:"symbol"`
}

// -----------------------------------------------------------------------------
// Loader resolves a configured symbol source into a sorted set of symbols.
// -----------------------------------------------------------------------------

type Loader struct {
	Network interfaces.INetworkManager
	Tables  interfaces.ISymbolTableReader // nil unless postgres storage is used
	Logger  *logger.Logger
}

func NewLoader(netMgr interfaces.INetworkManager, tables interfaces.ISymbolTableReader) *Loader {
	return &Loader{
		Network: netMgr,
		Tables:  tables,
		Logger:  logger.NewLogger(nil, "SymbolLoader"),
	}
}

// -----------------------------------------------------------------------------

// Load resolves src for the given class. Every configured part of src
// contributes; an unset source falls back to the class default.
func (l *Loader) Load(ctx context.Context, class string, src models.MSymbolSource) ([]string, error) {
	if src.None {
		return []string{}, nil
	}
	if src.IsDefault() {
		switch class {
		case models.ClassMarketHours:
			src.URL = utils.DefaultMarketSymbolsURL
		case models.ClassAlwaysOn:
			src.Symbols = utils.DefaultAlwaysOnSymbols
		}
	}

	var raw []string
	raw = append(raw, src.Symbols...)

	if src.File != "" {
		fromFile, err := l.loadFile(src.File)
		if err != nil {
			return nil, err
		}
		raw = append(raw, fromFile...)
	}

	if src.URL != "" {
		fromURL, err := l.loadURL(ctx, src.URL)
		if err != nil {
			return nil, err
		}
		raw = append(raw, fromURL...)
	}

	if src.Table != "" {
		fromTable, err := l.loadTable(src.Table)
		if err != nil {
			return nil, err
		}
		raw = append(raw, fromTable...)
	}

	out := Normalize(raw)
	l.Logger.Info("Loaded %d %s symbols", len(out), class)
	return out, nil
}

// -----------------------------------------------------------------------------

func (l *Loader) loadFile(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, helpers.NewConfigurationError(err, "open symbol file %s", path)
		}
		defer f.Close()

		var rows []*symbolRow
		if err := gocsv.UnmarshalFile(f, &rows); err != nil {
			return nil, helpers.NewConfigurationError(err, "parse symbol csv %s", path)
		}
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.Symbol)
		}
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helpers.NewConfigurationError(err, "read symbol file %s", path)
	}
	return ParseList(data), nil
}

func (l *Loader) loadURL(ctx context.Context, url string) ([]string, error) {
	if l.Network == nil {
		return nil, helpers.NewConfigurationError(nil, "no network manager to fetch %s", url)
	}
	data, err := l.Network.Get(ctx, url, nil)
	if err != nil {
		return nil, helpers.NewDataSourceError(err, "fetch symbol list %s", url)
	}
	return ParseList(data), nil
}

func (l *Loader) loadTable(ref string) ([]string, error) {
	if l.Tables == nil {
		return nil, helpers.NewConfigurationError(nil, "table source %s needs postgres storage", ref)
	}
	schema, table, field, err := storage.ParseTableRef(strings.TrimPrefix(ref, TablePrefix))
	if err != nil {
		return nil, err
	}
	return l.Tables.GetSymbolsFromTable(schema, table, field)
}

// -----------------------------------------------------------------------------

// ParseList reads one symbol per line, skipping blank lines and # comments.
func ParseList(data []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Normalize upper-cases, de-duplicates and sorts symbols. Entries containing
// whitespace are not valid tickers and are dropped.
func Normalize(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || strings.ContainsAny(s, " \t") {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------

// ParseSource interprets a command line source argument:
// "none", "pg:schema.table.field", an http(s) URL, an existing file path, or
// a comma separated list of symbols.
func ParseSource(arg string) models.MSymbolSource {
	arg = strings.TrimSpace(arg)
	switch {
	case strings.EqualFold(arg, "none"):
		return models.MSymbolSource{None: true}
	case strings.HasPrefix(arg, TablePrefix):
		return models.MSymbolSource{Table: strings.TrimPrefix(arg, TablePrefix)}
	case strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://"):
		return models.MSymbolSource{URL: arg}
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return models.MSymbolSource{File: arg}
	}
	return models.MSymbolSource{Symbols: strings.Split(arg, ",")}
}
