package symbols

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"market-aggregator/src/helpers"
	"market-aggregator/src/models"
	"market-aggregator/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNetwork struct {
	body []byte
	err  error
	urls []string
}

func (f *fakeNetwork) Get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.body, f.err
}

type fakeTables struct{ calls [][3]string }

func (f *fakeTables) GetSymbolsFromTable(schema, table, field string) ([]string, error) {
	f.calls = append(f.calls, [3]string{schema, table, field})
	return []string{"nvda", "amd"}, nil
}

func TestLoadLiteralList(t *testing.T) {
	l := NewLoader(nil, nil)
	got, err := l.Load(context.Background(), models.ClassMarketHours,
		models.MSymbolSource{Symbols: []string{"msft", " AAPL", "MSFT", ""}})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestLoadDefaults(t *testing.T) {
	net := &fakeNetwork{body: []byte("AAPL\nMSFT\n\nGOOG\n")}
	l := NewLoader(net, nil)

	market, err := l.Load(context.Background(), models.ClassMarketHours, models.MSymbolSource{})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, market)
	assert.Equal(t, []string{utils.DefaultMarketSymbolsURL}, net.urls)

	always, err := l.Load(context.Background(), models.ClassAlwaysOn, models.MSymbolSource{})
	require.NoError(t, err)
	assert.Len(t, always, len(utils.DefaultAlwaysOnSymbols))
	assert.Contains(t, always, "BTC-USD")

	none, err := l.Load(context.Background(), models.ClassAlwaysOn, models.MSymbolSource{None: true})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "tickers.txt")
	csv := filepath.Join(dir, "tickers.csv")
	require.NoError(t, os.WriteFile(txt, []byte("# watchlist\nspy\nqqq\n"), 0644))
	require.NoError(t, os.WriteFile(csv, []byte("name,symbol\nApple,aapl\nSPDR,SPY\n"), 0644))

	l := NewLoader(nil, nil)
	got, err := l.Load(context.Background(), models.ClassMarketHours, models.MSymbolSource{File: txt})
	require.NoError(t, err)
	assert.Equal(t, []string{"QQQ", "SPY"}, got)

	got, err = l.Load(context.Background(), models.ClassMarketHours, models.MSymbolSource{File: csv})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "SPY"}, got)

	_, err = l.Load(context.Background(), models.ClassMarketHours, models.MSymbolSource{File: filepath.Join(dir, "missing.txt")})
	var cfgErr *helpers.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestLoadTable(t *testing.T) {
	tables := &fakeTables{}
	l := NewLoader(nil, tables)

	got, err := l.Load(context.Background(), models.ClassMarketHours,
		models.MSymbolSource{Table: "public.watchlist.ticker", Symbols: []string{"AMD"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"AMD", "NVDA"}, got)
	assert.Equal(t, [3]string{"public", "watchlist", "ticker"}, tables.calls[0])

	_, err = NewLoader(nil, nil).Load(context.Background(), models.ClassMarketHours,
		models.MSymbolSource{Table: "public.watchlist.ticker"})
	assert.Error(t, err)
}

func TestLoadURLError(t *testing.T) {
	l := NewLoader(&fakeNetwork{err: errors.New("boom")}, nil)
	_, err := l.Load(context.Background(), models.ClassMarketHours, models.MSymbolSource{URL: "https://example.com/t.txt"})
	var dsErr *helpers.DataSourceError
	assert.True(t, errors.As(err, &dsErr))
}

func TestParseSource(t *testing.T) {
	file := filepath.Join(t.TempDir(), "list.txt")
	require.NoError(t, os.WriteFile(file, []byte("AAPL\n"), 0644))

	assert.True(t, ParseSource("none").None)
	assert.Equal(t, "s.t.f", ParseSource("pg:s.t.f").Table)
	assert.Equal(t, "https://x/y.txt", ParseSource("https://x/y.txt").URL)
	assert.Equal(t, file, ParseSource(file).File)
	assert.Equal(t, []string{"AAPL", "MSFT"}, ParseSource("AAPL,MSFT").Symbols)
}
