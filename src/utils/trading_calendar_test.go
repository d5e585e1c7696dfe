package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekdaysCalendar(t *testing.T) {
	loc := newYork(t)
	cal := NewTradingCalendar(WeekdaysMIC, loc)

	assert.True(t, cal.Fallback)
	assert.Equal(t, loc, cal.Location())
	assert.True(t, cal.IsTradingDay(time.Date(2024, 3, 6, 12, 0, 0, 0, loc)))
	assert.False(t, cal.IsTradingDay(time.Date(2024, 3, 9, 12, 0, 0, 0, loc)))
	// holidays are not known to the fallback
	assert.True(t, cal.IsTradingDay(time.Date(2024, 12, 25, 12, 0, 0, 0, loc)))

	// Saturday 02:00 UTC is still Friday evening in New York
	assert.True(t, cal.IsTradingDay(time.Date(2024, 3, 9, 2, 0, 0, 0, time.UTC)))
}

func TestExchangeCalendar(t *testing.T) {
	loc := newYork(t)
	cal := NewTradingCalendar("XNYS", loc)

	assert.False(t, cal.Fallback)
	assert.Equal(t, "xnys", cal.MIC)
	assert.True(t, cal.IsTradingDay(time.Date(2024, 3, 6, 12, 0, 0, 0, loc)))
	assert.False(t, cal.IsTradingDay(time.Date(2024, 3, 9, 12, 0, 0, 0, loc)))
	assert.False(t, cal.IsTradingDay(time.Date(2024, 12, 25, 12, 0, 0, 0, loc)))
}

func TestMICForSymbol(t *testing.T) {
	assert.Equal(t, "xnys", MICForSymbol("AAPL"))
	assert.Equal(t, "xnys", MICForSymbol("BRK.B"))
	assert.Equal(t, "xlon", MICForSymbol("VOD.L"))
	assert.Equal(t, "xtks", MICForSymbol("7203.T"))
	assert.Equal(t, "xnys", MICForSymbol("BTC-USD"))
}

func TestBootstrapDays(t *testing.T) {
	assert.Equal(t, 67, BootstrapDays(30, 0))
	assert.Equal(t, 5, BootstrapDays(30, 5))
	assert.Equal(t, 5, BootstrapDays(30, 1))
	assert.Equal(t, 7, BootstrapDays(2000, 1))
	assert.Equal(t, 60, BootstrapDays(2000, 90))
	assert.InDelta(t, 50.0, EstimateUpdateSeconds(25, 2000), 1e-9)
}
