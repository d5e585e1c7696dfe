package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"
	"market-aggregator/src/utils"
)

// ErrInsufficientHistory is returned when a bootstrap fetch cannot fill the
// rolling window. The symbol stays uninitialized and is retried next trigger.
var ErrInsufficientHistory = errors.New("insufficient history")

// Incremental fetch lookback, in calendar days
const (
	dailyIncrementalDays    = 5
	intradayIncrementalDays = 2
)

// -----------------------------------------------------------------------------
// UpdateEngine fetches one instrument and works out which records are new.
// It never mutates the state it is given; callers commit the returned state.
// -----------------------------------------------------------------------------

type UpdateEngine struct {
	Source   interfaces.IDataSource
	Cadence  models.MCadence
	Window   int
	Location *time.Location
	Logger   *logger.Logger

	// Daily only: a bar dated today is kept once the clock has passed
	// midnight + SettleAfter (close + grace). Zero keeps every bar.
	Clock       interfaces.IClock
	SettleAfter time.Duration
}

// -----------------------------------------------------------------------------

func NewUpdateEngine(source interfaces.IDataSource, cadence models.MCadence, window int, loc *time.Location) *UpdateEngine {
	if loc == nil {
		loc = time.UTC
	}
	return &UpdateEngine{
		Source:   source,
		Cadence:  cadence,
		Window:   window,
		Location: loc,
		Logger:   logger.NewLogger(nil, "UpdateEngine"),
	}
}

// -----------------------------------------------------------------------------

// BootstrapWindow covers at least twice the rolling window.
func (e *UpdateEngine) BootstrapWindow() models.MWindowSpec {
	return models.MWindowSpec{
		PeriodDays: utils.BootstrapDays(e.Window, e.Cadence.Minutes()),
		Interval:   e.Cadence,
	}
}

// IncrementalWindow covers the last few periods.
func (e *UpdateEngine) IncrementalWindow() models.MWindowSpec {
	days := intradayIncrementalDays
	if e.Cadence.IsDaily() {
		days = dailyIncrementalDays
	}
	return models.MWindowSpec{PeriodDays: days, Interval: e.Cadence}
}

// -----------------------------------------------------------------------------

// Update runs one fetch for state.Symbol. buffer is required for the daily
// cadence and ignored otherwise. On error the state and buffer are untouched.
func (e *UpdateEngine) Update(ctx context.Context, state models.MInstrumentState, buffer *utils.HistoryBuffer) (models.MInstrumentState, []models.MRecord, error) {
	if e.Cadence.IsDaily() && buffer == nil {
		return state, nil, fmt.Errorf("daily update of %s without a history buffer", state.Symbol)
	}

	if !state.Initialized {
		return e.bootstrap(ctx, state, buffer)
	}
	return e.incremental(ctx, state, buffer)
}

// -----------------------------------------------------------------------------

func (e *UpdateEngine) bootstrap(ctx context.Context, state models.MInstrumentState, buffer *utils.HistoryBuffer) (models.MInstrumentState, []models.MRecord, error) {
	records, err := e.Source.Fetch(ctx, state.Symbol, e.BootstrapWindow())
	if err != nil {
		return state, nil, err
	}
	records = e.settled(state.Symbol, records)

	n := len(records)
	switch {
	case n == 0:
		return state, nil, fmt.Errorf("%w: no records for %s", ErrInsufficientHistory, state.Symbol)
	case n < e.Window:
		return state, nil, fmt.Errorf("%w: %s has %d of %d records", ErrInsufficientHistory, state.Symbol, n, e.Window)
	}

	if n > e.Window {
		records = records[n-e.Window:]
	}
	out := make([]models.MRecord, len(records))
	copy(out, records)

	if e.Cadence.IsDaily() {
		if err := buffer.ApplyBootstrap(out); err != nil {
			return state, nil, err
		}
	}

	next := state
	next.Initialized = true
	next.LastPublished = out[len(out)-1].Timestamp
	return next, out, nil
}

// -----------------------------------------------------------------------------

func (e *UpdateEngine) incremental(ctx context.Context, state models.MInstrumentState, buffer *utils.HistoryBuffer) (models.MInstrumentState, []models.MRecord, error) {
	records, err := e.Source.Fetch(ctx, state.Symbol, e.IncrementalWindow())
	if err != nil {
		return state, nil, err
	}
	records = e.settled(state.Symbol, records)
	if len(records) == 0 {
		return state, nil, nil
	}

	var fresh []models.MRecord
	if e.Cadence.IsDaily() {
		newest, ok := buffer.Newest()
		if !ok {
			return state, nil, fmt.Errorf("%s is initialized but its history buffer is empty", state.Symbol)
		}
		last := models.DateIn(newest.Timestamp, e.Location)
		for _, r := range records {
			if models.DateIn(r.Timestamp, e.Location).After(last) {
				fresh = append(fresh, r)
			}
		}
		for _, r := range fresh {
			if err := buffer.RollAppend(r); err != nil {
				return state, nil, err
			}
		}
	} else {
		for _, r := range records {
			if r.Timestamp.After(state.LastPublished) {
				fresh = append(fresh, r)
			}
		}
	}

	if len(fresh) == 0 {
		return state, nil, nil
	}

	next := state
	next.LastPublished = fresh[len(fresh)-1].Timestamp
	return next, fresh, nil
}

// -----------------------------------------------------------------------------

// settled drops a daily bar dated today while the session is still open; the
// provider serves it live until then.
func (e *UpdateEngine) settled(symbol string, records []models.MRecord) []models.MRecord {
	if !e.Cadence.IsDaily() || e.Clock == nil || e.SettleAfter <= 0 {
		return records
	}

	now := e.Clock.Now().In(e.Location)
	y, m, d := now.Date()
	after := e.SettleAfter
	settle := time.Date(y, m, d, int(after/time.Hour), int(after%time.Hour/time.Minute), int(after%time.Minute/time.Second), 0, e.Location)
	if !now.Before(settle) {
		return records
	}

	today := models.MRecord{Timestamp: now}
	out := make([]models.MRecord, 0, len(records))
	for _, r := range records {
		if r.SameDate(today, e.Location) {
			e.Logger.Debug("%s: ignoring today's bar until %s", symbol, settle.Format("15:04:05"))
			continue
		}
		out = append(out, r)
	}
	return out
}
