package aggregation

import (
	"context"
	"sync"
	"testing"
	"time"

	"market-aggregator/src/config"
	"market-aggregator/src/models"
	"market-aggregator/src/utils"

	"github.com/stretchr/testify/require"
)

type fetchCall struct {
	Symbol string
	Window models.MWindowSpec
}

// fakeSource answers fetches from a callback and records every call.
type fakeSource struct {
	mu    sync.Mutex
	fn    func(symbol string, w models.MWindowSpec) ([]models.MRecord, error)
	calls []fetchCall
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context, symbol string, w models.MWindowSpec) ([]models.MRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{Symbol: symbol, Window: w})
	fn := f.fn
	f.mu.Unlock()
	return fn(symbol, w)
}

func (f *fakeSource) callsFor(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Symbol == symbol {
			n++
		}
	}
	return n
}

type publishCall struct {
	Symbol  string
	Kind    string
	Records []models.MRecord
}

// recordingPublisher keeps every publish call.
type recordingPublisher struct {
	mu    sync.Mutex
	calls []publishCall
}

func (p *recordingPublisher) Publish(ctx context.Context, symbol string, records []models.MRecord, kind string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{Symbol: symbol, Kind: kind, Records: records})
	return len(records), nil
}

func (p *recordingPublisher) callsFor(symbol string) []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishCall
	for _, c := range p.calls {
		if c.Symbol == symbol {
			out = append(out, c)
		}
	}
	return out
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// dailySeries returns n consecutive dates ending at last, at local midnight.
func dailySeries(last time.Time, n int) []models.MRecord {
	out := make([]models.MRecord, n)
	for i := range out {
		day := last.AddDate(0, 0, i-n+1)
		out[i] = models.MRecord{Timestamp: day, Open: 1, High: 2, Low: 0.5, Close: float64(100 + i), Volume: 1000}
	}
	return out
}

// intradaySeries returns n bars of step ending at last.
func intradaySeries(last time.Time, step time.Duration, n int) []models.MRecord {
	out := make([]models.MRecord, n)
	for i := range out {
		out[i] = models.MRecord{Timestamp: last.Add(time.Duration(i-n+1) * step), Close: float64(i + 1)}
	}
	return out
}

func testConfig(cadence models.MCadence, window int) *config.Config {
	m := config.Default()
	m.Cadence = string(cadence)
	m.History.Window = window
	m.Provider.RequestsPerHour = 3600
	m.Schedule.BootstrapOnStart = false
	return &config.Config{MConfig: m}
}

func weekdays(t *testing.T) *utils.TradingCalendar {
	return utils.NewTradingCalendar(utils.WeekdaysMIC, newYork(t))
}
