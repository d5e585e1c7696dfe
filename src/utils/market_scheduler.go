package utils

import (
	"time"

	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"
)

// -----------------------------------------------------------------------------
// MCyclePlan says which instrument classes a trigger polls.
// -----------------------------------------------------------------------------

type MCyclePlan struct {
	Trigger   time.Time
	Market    bool
	AlwaysOn  bool
	PostClose bool // the one extra market poll after close
}

// -----------------------------------------------------------------------------
// MarketScheduler computes trigger times for one cadence and decides, per
// trigger, whether market-hours instruments are due. Triggers are derived from
// the previous scheduled trigger, never from the time a cycle finished.
// -----------------------------------------------------------------------------

type MarketScheduler struct {
	Cadence  models.MCadence
	Calendar interfaces.ITradingCalendar
	Open     time.Duration // offset from local midnight
	Close    time.Duration
	Grace    time.Duration
	Lead     time.Duration // intraday only: first trigger after open
	Logger   *logger.Logger

	postCloseDone bool
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(cadence models.MCadence, cal interfaces.ITradingCalendar,
	open, close, grace, lead time.Duration) *MarketScheduler {

	if lead <= 0 && !cadence.IsDaily() {
		lead = cadence.Period()
	}

	return &MarketScheduler{
		Cadence:  cadence,
		Calendar: cal,
		Open:     open,
		Close:    close,
		Grace:    grace,
		Lead:     lead,
		Logger:   logger.NewLogger(nil, "MarketScheduler"),
	}
}

// -----------------------------------------------------------------------------

// FirstTrigger returns the first trigger strictly after now: today's anchor
// (close+grace for daily, open+lead+grace intraday) advanced by whole
// increments if it has already passed.
func (ms *MarketScheduler) FirstTrigger(now time.Time) time.Time {
	loc := ms.Calendar.Location()
	midnight := models.DateIn(now, loc)

	var anchor time.Time
	if ms.Cadence.IsDaily() {
		anchor = atOffset(midnight, ms.Close+ms.Grace)
	} else {
		anchor = atOffset(midnight, ms.Open+ms.Lead+ms.Grace)
	}

	for !anchor.After(now) {
		anchor = ms.Next(anchor)
	}
	return anchor
}

// -----------------------------------------------------------------------------

// Next returns the trigger one increment after prev. Daily triggers keep their
// local wall-clock time across DST changes.
func (ms *MarketScheduler) Next(prev time.Time) time.Time {
	if ms.Cadence.IsDaily() {
		return prev.In(ms.Calendar.Location()).AddDate(0, 0, 1)
	}
	return prev.Add(ms.Cadence.Period())
}

// -----------------------------------------------------------------------------

// Advance computes the trigger after prev once a cycle is done. If now has
// already passed it, the lag is logged and the missed triggers are skipped.
func (ms *MarketScheduler) Advance(prev, now time.Time) (next time.Time, skipped int) {
	next = ms.Next(prev)
	if next.After(now) {
		return next, 0
	}

	ms.Logger.Warning("Falling behind by %s (next trigger was %s)",
		now.Sub(next).Round(time.Second), next.Format(time.RFC3339))

	for !next.After(now) {
		next = ms.Next(next)
		skipped++
	}
	return next, skipped
}

// -----------------------------------------------------------------------------

// Plan decides which classes the trigger polls. Always-on instruments run on
// every trigger. Market-hours instruments run on trading days only: daily at
// every trigger, intraday inside [open, close] plus once after close.
func (ms *MarketScheduler) Plan(trigger time.Time) MCyclePlan {
	plan := MCyclePlan{Trigger: trigger, AlwaysOn: true}

	local := trigger.In(ms.Calendar.Location())
	trading := ms.Calendar.IsTradingDay(local)

	if ms.Cadence.IsDaily() {
		plan.Market = trading
		return plan
	}

	if !trading {
		return plan
	}

	tod := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	switch {
	case tod >= ms.Open && tod <= ms.Close:
		plan.Market = true
		ms.postCloseDone = false
	case tod > ms.Close && !ms.postCloseDone:
		plan.Market = true
		plan.PostClose = true
		ms.postCloseDone = true
	}
	return plan
}

// -----------------------------------------------------------------------------

// PostCloseDone reports whether today's extra poll after close already ran.
func (ms *MarketScheduler) PostCloseDone() bool {
	return ms.postCloseDone
}

// -----------------------------------------------------------------------------

// atOffset returns midnight plus a wall-clock offset, resolved in the
// location of midnight so DST days keep their nominal HH:MM.
func atOffset(midnight time.Time, offset time.Duration) time.Time {
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	s := int((offset % time.Minute) / time.Second)
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h, m, s, 0, midnight.Location())
}
