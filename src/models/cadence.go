package models

import (
	"fmt"
	"strings"
	"time"
)

// MCadence is the polling interval of a service instance.
type MCadence string

const (
	Cadence1m    MCadence = "1m"
	Cadence2m    MCadence = "2m"
	Cadence5m    MCadence = "5m"
	Cadence15m   MCadence = "15m"
	Cadence30m   MCadence = "30m"
	Cadence60m   MCadence = "60m"
	Cadence90m   MCadence = "90m"
	CadenceDaily MCadence = "1d"
)

// ValidCadences lists the supported cadences in ascending order.
var ValidCadences = []MCadence{
	Cadence1m, Cadence2m, Cadence5m, Cadence15m, Cadence30m, Cadence60m, Cadence90m, CadenceDaily,
}

// -----------------------------------------------------------------------------

// ParseCadence validates a cadence string such as "5m" or "1d".
func ParseCadence(s string) (MCadence, error) {
	c := MCadence(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ValidCadences {
		if c == v {
			return c, nil
		}
	}

	names := make([]string, len(ValidCadences))
	for i, v := range ValidCadences {
		names[i] = string(v)
	}
	return "", fmt.Errorf("invalid cadence %q (options: %s)", s, strings.Join(names, ", "))
}

// -----------------------------------------------------------------------------

func (c MCadence) String() string {
	return string(c)
}

// IsDaily reports whether the cadence is once per day.
func (c MCadence) IsDaily() bool {
	return c == CadenceDaily
}

// Minutes returns the intraday period length in minutes, 0 for the daily cadence.
func (c MCadence) Minutes() int {
	switch c {
	case Cadence1m:
		return 1
	case Cadence2m:
		return 2
	case Cadence5m:
		return 5
	case Cadence15m:
		return 15
	case Cadence30m:
		return 30
	case Cadence60m:
		return 60
	case Cadence90m:
		return 90
	}
	return 0
}

// Period returns the nominal length of one sampling period.
func (c MCadence) Period() time.Duration {
	if c.IsDaily() {
		return 24 * time.Hour
	}
	return time.Duration(c.Minutes()) * time.Minute
}
