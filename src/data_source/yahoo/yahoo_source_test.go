package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"market-aggregator/src/models"
	"market-aggregator/src/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-03-04 .. 2024-03-06, 14:30 UTC bars, last one repeated, one null bar
const dailyChart = `{"chart":{"result":[{
 "meta":{"symbol":"XYZ","exchangeTimezoneName":"America/New_York","dataGranularity":"1d"},
 "timestamp":[1709562600,1709649000,1709735400,1709735400,1709821800],
 "indicators":{"quote":[{
   "open":[10,11,12,12.5,null],
   "high":[10.5,11.5,12.5,13,null],
   "low":[9.5,10.5,11.5,12,null],
   "close":[10.2,11.2,12.2,12.8,null],
   "volume":[1000,1100,1200,1300,null]}]}}],"error":null}}`

const errorChart = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func newTestSource(t *testing.T, body string, check func(r *http.Request)) *YahooFinanceSource {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cfg := models.MProviderConfig{BaseURL: srv.URL, RequestTimeout: 5}
	return NewYahooFinanceSource(cfg, loc, network.NewNetworkManager(cfg, nil))
}

func TestFetchDailyPeriod(t *testing.T) {
	src := newTestSource(t, dailyChart, func(r *http.Request) {
		assert.Equal(t, "/XYZ", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "67d", r.URL.Query().Get("range"))
	})

	records, err := src.Fetch(context.Background(), "XYZ", models.MWindowSpec{PeriodDays: 67, Interval: models.CadenceDaily})
	require.NoError(t, err)
	require.Len(t, records, 3)

	loc := src.Location
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, loc), records[0].Timestamp)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, loc), records[2].Timestamp)
	// duplicate live bar: the later one wins
	assert.Equal(t, 12.8, records[2].Close)
	assert.Equal(t, 1300.0, records[2].Volume)
}

func TestFetchIntradayRange(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	src := newTestSource(t, dailyChart, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "5m", q.Get("interval"))
		assert.Equal(t, "1709510400", q.Get("period1"))
		assert.Equal(t, "1709769600", q.Get("period2"))
		assert.Empty(t, q.Get("range"))
	})

	records, err := src.Fetch(context.Background(), "XYZ", models.MWindowSpec{Interval: models.Cadence5m, Start: start, End: end})
	require.NoError(t, err)
	require.Len(t, records, 3)
	// intraday keeps the bar time, in the market timezone
	assert.Equal(t, 9, records[0].Timestamp.Hour())
	assert.Equal(t, 30, records[0].Timestamp.Minute())
}

func TestFetchProviderError(t *testing.T) {
	src := newTestSource(t, errorChart, nil)

	_, err := src.Fetch(context.Background(), "NOPE", models.MWindowSpec{PeriodDays: 5, Interval: models.CadenceDaily})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestFetchEmptyIsNotAnError(t *testing.T) {
	src := newTestSource(t, `{"chart":{"result":[{"meta":{},"indicators":{"quote":[{}]}}],"error":null}}`, nil)

	records, err := src.Fetch(context.Background(), "XYZ", models.MWindowSpec{PeriodDays: 5, Interval: models.CadenceDaily})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchMalformed(t *testing.T) {
	src := newTestSource(t, `<html>`, nil)

	_, err := src.Fetch(context.Background(), "XYZ", models.MWindowSpec{PeriodDays: 5, Interval: models.CadenceDaily})
	assert.Error(t, err)
}
