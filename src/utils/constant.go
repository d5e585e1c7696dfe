package utils

import "math"

// -----------------------------------------------------------------------------

// DefaultMarketSymbolsURL is the newline-delimited list of US listed tickers
// used when no market-hours source is configured.
const DefaultMarketSymbolsURL = "https://raw.githubusercontent.com/rreichel3/US-Stock-Symbols/main/all/all_tickers.txt"

// DefaultAlwaysOnSymbols trade around the clock and are polled on every trigger.
var DefaultAlwaysOnSymbols = []string{
	"BTC-USD", "ETH-USD", "USDT-USD", "BNB-USD", "SOL-USD",
	"XRP-USD", "USDC-USD", "STETH-USD", "ADA-USD", "AVAX-USD",
	"DOGE-USD", "TRX-USD", "DOT-USD", "WTRX-USD", "MATIC-USD",
	"LINK-USD", "TON11419-USD", "WBTC-USD", "SHIB-USD", "ICP-USD",
	"WEOS-USD", "DAI-USD", "LTC-USD", "BCH-USD", "UNI7083-USD",
}

// Scheduling defaults
const (
	DefaultDailyGraceSeconds    = 180
	DefaultIntradayGraceSeconds = 30
	MinutesPerSession           = 390 // 09:30 - 16:00
)

// -----------------------------------------------------------------------------

// BootstrapDays returns how many calendar days of history the first fetch of
// a symbol must cover to yield at least 2*window periods of the cadence.
func BootstrapDays(window int, cadenceMinutes int) int {
	if cadenceMinutes <= 0 {
		// daily: 2W trading days plus a week of weekends/holidays
		return 2*window + 7
	}

	periodsPerDay := float64(MinutesPerSession) / float64(cadenceMinutes)
	days := int(math.Ceil(float64(2*window)/periodsPerDay)) + 4

	// provider limits on intraday lookback
	maxDays := 60
	if cadenceMinutes == 1 {
		maxDays = 7
	}
	if days > maxDays {
		days = maxDays
	}
	return days
}

// -----------------------------------------------------------------------------

// EstimateUpdateSeconds is the minimum wall time one pass over n symbols
// takes at the given provider budget.
func EstimateUpdateSeconds(n int, requestsPerHour int) float64 {
	if requestsPerHour <= 0 {
		return 0
	}
	return float64(n) * math.Ceil(3600/float64(requestsPerHour))
}
