package utils

import (
	"strings"
	"time"

	"market-aggregator/src/logger"

	"github.com/scmhub/calendar"
)

// WeekdaysMIC selects the plain Monday-Friday calendar without holidays.
const WeekdaysMIC = "weekdays"

// suffix -> MIC (ISO 10383) for the exchanges scmhub/calendar knows
var suffixMIC = map[string]string{
	".L": "xlon", ".PA": "xpar", ".DE": "xfra", ".AS": "xams", ".BR": "xbru",
	".MI": "xmil", ".MC": "xmad", ".ST": "xsto", ".CO": "xcse", ".HE": "xhel",
	".VI": "xwbo", ".SW": "xswx", ".TO": "xtse", ".V": "xtsx", ".T": "xtks",
	".HK": "xhkg", ".AX": "xasx", ".KS": "xkrx", ".TW": "xtai", ".SS": "xshg",
	".SZ": "xshe",
}

// -----------------------------------------------------------------------------
// TradingCalendar answers "is this a trading day" in the market timezone,
// backed by scmhub/calendar, or plain weekdays when no calendar is available.
// -----------------------------------------------------------------------------

type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	MIC      string
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewTradingCalendar loads the calendar for mic in loc. Unknown MICs fall back
// to weekdays with a warning.
func NewTradingCalendar(mic string, loc *time.Location) *TradingCalendar {
	if loc == nil {
		loc = time.UTC
	}
	mic = strings.ToLower(strings.TrimSpace(mic))

	if mic == "" || mic == WeekdaysMIC {
		return &TradingCalendar{Fallback: true, MIC: WeekdaysMIC, Timezone: loc}
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		logger.NewLogger(nil, "TradingCalendar").Warning(
			"Failed to load calendar for MIC '%s'. Using Mon-Fri fallback.", mic)
		return &TradingCalendar{Fallback: true, MIC: WeekdaysMIC, Timezone: loc}
	}

	return &TradingCalendar{Calendar: cal, MIC: mic, Timezone: loc}
}

// -----------------------------------------------------------------------------

// MICForSymbol guesses the listing exchange from a Yahoo-style suffix.
// Symbols without a known suffix are assumed to trade on NYSE/Nasdaq.
func MICForSymbol(symbol string) string {
	if i := strings.LastIndex(symbol, "."); i > 0 {
		if mic, ok := suffixMIC[strings.ToUpper(symbol[i:])]; ok {
			return mic
		}
	}
	return "xnys"
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) Location() *time.Location {
	return tc.Timezone
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	date = date.In(tc.Timezone)

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	// scmhub works on its own exchange timezone
	return tc.Calendar.IsBusinessDay(date.In(tc.Calendar.Loc))
}
