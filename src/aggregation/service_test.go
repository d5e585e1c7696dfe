package aggregation

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"market-aggregator/src/helpers"
	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"
	"market-aggregator/src/publisher"
	"market-aggregator/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingPublisher counts calls into a real publisher.
type countingPublisher struct {
	inner *publisher.Publisher
	mu    sync.Mutex
	calls int
}

func (c *countingPublisher) Publish(ctx context.Context, symbol string, records []models.MRecord, kind string) (int, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Publish(ctx, symbol, records, kind)
}

func TestEndToEndDailyBootstrapThenSameDay(t *testing.T) {
	loc := newYork(t)
	day := time.Date(2024, 3, 6, 0, 0, 0, 0, loc)

	var steady bool
	src := &fakeSource{fn: func(string, models.MWindowSpec) ([]models.MRecord, error) {
		if steady {
			return []models.MRecord{{Timestamp: day, Close: 1}}, nil
		}
		return dailySeries(day, 40), nil
	}}

	local := publisher.NewLocalTransport()
	var got []models.MMessage
	require.NoError(t, local.Subscribe("XYZ", func(m models.MMessage) { got = append(got, m) }))
	pub := &countingPublisher{inner: publisher.NewPublisher(models.CadenceDaily, []interfaces.ITransport{local}, nil)}

	clock := utils.NewManualClock(time.Date(2024, 3, 6, 16, 3, 0, 0, loc))
	svc, err := NewAggregationService(testConfig(models.CadenceDaily, 30), []string{"XYZ"}, nil,
		ServiceDeps{Source: src, Publisher: pub, Calendar: weekdays(t), Clock: clock})
	require.NoError(t, err)

	// bootstrap: 30 messages in one publish call, ascending dates
	stats := svc.RunCycle(context.Background(), utils.MCyclePlan{Trigger: clock.Now(), Market: true, AlwaysOn: true})
	assert.Equal(t, 30, stats.RecordsPublished)
	assert.Equal(t, 1, pub.calls)
	require.Len(t, got, 30)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
	assert.Equal(t, models.KindBootstrap, got[0].Kind)

	history, ok := svc.History("XYZ")
	require.True(t, ok)
	assert.Len(t, history, 30)

	// same-day refresh: nothing new, nothing published
	steady = true
	stats = svc.RunCycle(context.Background(), utils.MCyclePlan{Trigger: clock.Now(), Market: true, AlwaysOn: true})
	assert.Zero(t, stats.RecordsPublished)
	assert.Len(t, got, 30)
	assert.Equal(t, 1, pub.calls)

	symbols := svc.Symbols()
	require.Len(t, symbols, 1)
	assert.True(t, symbols[0].Initialized)
	assert.Equal(t, day, symbols[0].LastPublished)
	assert.Equal(t, 30, symbols[0].BufferLength)
}

func TestCycleIsolatesFailingSymbol(t *testing.T) {
	loc := newYork(t)
	last := time.Date(2024, 3, 6, 10, 0, 0, 0, loc)
	src := &fakeSource{fn: func(symbol string, _ models.MWindowSpec) ([]models.MRecord, error) {
		if symbol == "BAD" {
			return nil, helpers.NewDataSourceError(errors.New("timeout"), "network error for %s", symbol)
		}
		return intradaySeries(last, 5*time.Minute, 4), nil
	}}
	pub := &recordingPublisher{}

	svc, err := NewAggregationService(testConfig(models.Cadence5m, 3), []string{"AAA", "BAD", "ZZZ"}, nil,
		ServiceDeps{Source: src, Publisher: pub, Calendar: weekdays(t), Clock: utils.NewManualClock(last)})
	require.NoError(t, err)

	stats := svc.RunCycle(context.Background(), utils.MCyclePlan{Trigger: last, Market: true, AlwaysOn: true})
	assert.Equal(t, 2, stats.SymbolsUpdated)
	assert.Equal(t, 1, stats.SymbolsFailed)
	assert.Equal(t, 6, stats.RecordsPublished)
	assert.Len(t, pub.callsFor("AAA"), 1)
	assert.Len(t, pub.callsFor("ZZZ"), 1)
	assert.Empty(t, pub.callsFor("BAD"))

	for _, st := range svc.Symbols() {
		if st.Symbol == "BAD" {
			assert.False(t, st.Initialized)
			assert.Contains(t, st.LastError, "timeout")
		} else {
			assert.True(t, st.Initialized)
			assert.Empty(t, st.LastError)
		}
	}
}

func TestCycleRespectsRateLimit(t *testing.T) {
	loc := newYork(t)
	start := time.Date(2024, 3, 6, 10, 0, 0, 0, loc)
	clock := utils.NewManualClock(start)
	src := &fakeSource{fn: func(string, models.MWindowSpec) ([]models.MRecord, error) { return nil, nil }}

	cfg := testConfig(models.Cadence5m, 3)
	cfg.Provider.RequestsPerHour = 2000
	svc, err := NewAggregationService(cfg, []string{"A", "B", "C"}, []string{"X"},
		ServiceDeps{Source: src, Publisher: &recordingPublisher{}, Calendar: weekdays(t), Clock: clock})
	require.NoError(t, err)

	svc.RunCycle(context.Background(), utils.MCyclePlan{Trigger: start, Market: true, AlwaysOn: true})

	// four fetches, two seconds apart
	assert.Equal(t, start.Add(6*time.Second), clock.Now())
	assert.Len(t, src.calls, 4)
}

func TestPlanSelectsClasses(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, loc)
	src := &fakeSource{fn: func(string, models.MWindowSpec) ([]models.MRecord, error) { return nil, nil }}

	svc, err := NewAggregationService(testConfig(models.Cadence5m, 3), []string{"AAPL", "BTC-USD"}, []string{"BTC-USD", "ETH-USD"},
		ServiceDeps{Source: src, Publisher: &recordingPublisher{}, Calendar: weekdays(t), Clock: utils.NewManualClock(now)})
	require.NoError(t, err)

	// BTC-USD is in both lists and counts as always-on
	assert.Equal(t, []string{"AAPL"}, svc.Registry.Symbols(models.ClassMarketHours))
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, svc.Registry.Symbols(models.ClassAlwaysOn))

	svc.RunCycle(context.Background(), utils.MCyclePlan{Trigger: now, AlwaysOn: true})
	assert.Zero(t, src.callsFor("AAPL"))
	assert.Equal(t, 1, src.callsFor("BTC-USD"))
	assert.Equal(t, 1, src.callsFor("ETH-USD"))
}

func TestConfigurationErrors(t *testing.T) {
	deps := ServiceDeps{Source: &fakeSource{}, Publisher: &recordingPublisher{}, Calendar: weekdays(t)}

	_, err := NewAggregationService(testConfig(models.Cadence5m, 3), nil, nil, deps)
	var cfgErr *helpers.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "no symbols")

	bad := testConfig(models.Cadence5m, 3)
	bad.Cadence = "7m"
	_, err = NewAggregationService(bad, []string{"XYZ"}, nil, deps)
	require.True(t, errors.As(err, &cfgErr))
}

func TestRunFollowsTriggers(t *testing.T) {
	loc := newYork(t)
	// Wednesday, ten minutes before the open
	clock := utils.NewManualClock(time.Date(2024, 3, 6, 9, 20, 0, 0, loc))
	stopAt := time.Date(2024, 3, 6, 9, 45, 30, 0, loc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.OnSleep = func(until time.Time) {
		if !until.Before(stopAt) {
			cancel()
		}
	}

	src := &fakeSource{fn: func(string, models.MWindowSpec) ([]models.MRecord, error) {
		return intradaySeries(time.Date(2024, 3, 6, 9, 30, 0, 0, loc), 5*time.Minute, 3), nil
	}}
	pub := &recordingPublisher{}
	svc, err := NewAggregationService(testConfig(models.Cadence5m, 2), []string{"AAPL"}, []string{"BTC-USD"},
		ServiceDeps{Source: src, Publisher: pub, Calendar: weekdays(t), Clock: clock})
	require.NoError(t, err)

	require.NoError(t, svc.Run(ctx))

	sleeps := clock.Sleeps()
	require.NotEmpty(t, sleeps)
	assert.Equal(t, time.Date(2024, 3, 6, 9, 35, 30, 0, loc), sleeps[0])

	status := svc.Status()
	assert.Equal(t, 2, status.Cycles)
	assert.Equal(t, stopAt, status.NextTrigger)
	assert.Equal(t, 1, status.MarketCount)
	assert.Equal(t, 1, status.AlwaysOnCount)

	// bootstrap in the first cycle, nothing new in the second
	require.Len(t, pub.callsFor("AAPL"), 1)
	assert.Equal(t, models.KindBootstrap, pub.callsFor("AAPL")[0].Kind)
	assert.Len(t, pub.callsFor("AAPL")[0].Records, 2)
	assert.Equal(t, 2, src.callsFor("AAPL"))
}

func TestRunSkipsMarketOnWeekend(t *testing.T) {
	loc := newYork(t)
	// Saturday noon, daily cadence
	clock := utils.NewManualClock(time.Date(2024, 3, 9, 12, 0, 0, 0, loc))
	stopAt := time.Date(2024, 3, 10, 16, 3, 0, 0, loc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.OnSleep = func(until time.Time) {
		if !until.Before(stopAt) {
			cancel()
		}
	}

	src := &fakeSource{fn: func(string, models.MWindowSpec) ([]models.MRecord, error) {
		return dailySeries(time.Date(2024, 3, 8, 0, 0, 0, 0, loc), 10), nil
	}}
	cfg := testConfig(models.CadenceDaily, 5)
	cfg.Schedule.BootstrapOnStart = true
	svc, err := NewAggregationService(cfg, []string{"AAPL"}, []string{"BTC-USD"},
		ServiceDeps{Source: src, Publisher: &recordingPublisher{}, Calendar: weekdays(t), Clock: clock})
	require.NoError(t, err)

	require.NoError(t, svc.Run(ctx))

	// start-up bootstrap plus Saturday's trigger, no market fetch on a closed day
	assert.Equal(t, 2, svc.Status().Cycles)
	assert.Zero(t, src.callsFor("AAPL"))
	assert.Equal(t, 2, src.callsFor("BTC-USD"))
	assert.False(t, svc.Status().LastCycle.MarketPolled)
}

func TestDailyPartialBarWaitsForClose(t *testing.T) {
	loc := newYork(t)
	day := time.Date(2024, 3, 6, 0, 0, 0, 0, loc)
	clock := utils.NewManualClock(time.Date(2024, 3, 6, 11, 0, 0, 0, loc))

	// the provider serves today's bar live during the session
	todayClose := 111.0
	src := &fakeSource{fn: func(string, models.MWindowSpec) ([]models.MRecord, error) {
		records := dailySeries(day, 10)
		records[len(records)-1].Close = todayClose
		return records, nil
	}}
	pub := &recordingPublisher{}
	svc, err := NewAggregationService(testConfig(models.CadenceDaily, 5), []string{"XYZ"}, nil,
		ServiceDeps{Source: src, Publisher: pub, Calendar: weekdays(t), Clock: clock})
	require.NoError(t, err)

	svc.RunCycle(context.Background(), utils.MCyclePlan{Trigger: clock.Now(), Market: true})
	calls := pub.callsFor("XYZ")
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Records, 5)
	assert.Equal(t, day.AddDate(0, 0, -1), calls[0].Records[4].Timestamp)
	for _, r := range calls[0].Records {
		assert.NotEqual(t, 111.0, r.Close)
	}

	// after close + grace the final bar is published
	clock.Set(time.Date(2024, 3, 6, 16, 3, 0, 0, loc))
	todayClose = 222
	stats := svc.RunCycle(context.Background(), utils.MCyclePlan{Trigger: clock.Now(), Market: true})
	assert.Equal(t, 1, stats.RecordsPublished)

	calls = pub.callsFor("XYZ")
	require.Len(t, calls, 2)
	require.Len(t, calls[1].Records, 1)
	assert.Equal(t, models.KindUpdate, calls[1].Kind)
	assert.Equal(t, day, calls[1].Records[0].Timestamp)
	assert.Equal(t, 222.0, calls[1].Records[0].Close)

	history, ok := svc.History("XYZ")
	require.True(t, ok)
	require.Len(t, history, 5)
	assert.Equal(t, 222.0, history[4].Close)
}

func TestDefaultGraceFollowsCadence(t *testing.T) {
	loc := newYork(t)
	before := time.Date(2024, 3, 6, 9, 20, 0, 0, loc)
	deps := ServiceDeps{Source: &fakeSource{}, Publisher: &recordingPublisher{}, Calendar: weekdays(t), Clock: utils.NewManualClock(before)}

	intraday, err := NewAggregationService(testConfig(models.Cadence5m, 3), []string{"XYZ"}, nil, deps)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 6, 9, 35, 30, 0, loc), intraday.Scheduler.FirstTrigger(before))

	daily, err := NewAggregationService(testConfig(models.CadenceDaily, 3), []string{"XYZ"}, nil, deps)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 6, 16, 3, 0, 0, loc), daily.Scheduler.FirstTrigger(before))
}

func TestCycleSkipsEmptyClass(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stdout)

	loc := newYork(t)
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, loc)
	src := &fakeSource{fn: func(string, models.MWindowSpec) ([]models.MRecord, error) {
		return intradaySeries(now, 5*time.Minute, 4), nil
	}}
	svc, err := NewAggregationService(testConfig(models.Cadence5m, 3), []string{"AAPL"}, nil,
		ServiceDeps{Source: src, Publisher: &recordingPublisher{}, Calendar: weekdays(t), Clock: utils.NewManualClock(now)})
	require.NoError(t, err)

	svc.RunCycle(context.Background(), utils.MCyclePlan{Trigger: now, Market: true, AlwaysOn: true})
	out := buf.String()
	assert.Contains(t, out, "Pulling market-hours symbols")
	assert.NotContains(t, out, "Pulling always-on symbols")
	assert.Equal(t, 1, src.callsFor("AAPL"))
}
