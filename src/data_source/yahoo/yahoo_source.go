package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"market-aggregator/src/helpers"
	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// -----------------------------------------------------------------------------
// YahooFinanceSource fetches OHLCV history from the Yahoo chart API.
// Daily records come back at local midnight of Location, intraday records
// at their bar time expressed in Location.
// -----------------------------------------------------------------------------

type YahooFinanceSource struct {
	BaseURL  string
	Location *time.Location
	Network  interfaces.INetworkManager
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(cfg models.MProviderConfig, loc *time.Location, netMgr interfaces.INetworkManager) *YahooFinanceSource {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if loc == nil {
		loc = time.UTC
	}

	return &YahooFinanceSource{
		BaseURL:  baseURL,
		Location: loc,
		Network:  netMgr,
		Logger:   logger.NewLogger(nil, "YahooFinanceSource"),
	}
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return "yahoo"
}

// -----------------------------------------------------------------------------

// Fetch returns the records of symbol covered by window, oldest first.
func (s *YahooFinanceSource) Fetch(ctx context.Context, symbol string, window models.MWindowSpec) ([]models.MRecord, error) {
	params := map[string]string{
		"interval":       string(window.Interval),
		"includePrePost": "false",
		"events":         "div,splits",
	}

	if window.IsRange() {
		end := window.End
		if end.IsZero() {
			end = time.Now()
		}
		params["period1"] = strconv.FormatInt(window.Start.Unix(), 10)
		params["period2"] = strconv.FormatInt(end.Unix(), 10)
	} else {
		params["range"] = fmt.Sprintf("%dd", window.PeriodDays)
	}

	endpoint := fmt.Sprintf("%s/%s", s.BaseURL, url.PathEscape(symbol))
	respBytes, err := s.Network.Get(ctx, endpoint, params)
	if err != nil {
		return nil, helpers.NewDataSourceError(err, "network error for %s", symbol)
	}

	return s.parseChartResponse(symbol, window.Interval.IsDaily(), respBytes)
}

// -----------------------------------------------------------------------------

type quoteSeries struct {
	High   []*float64 `json:"high"` // pointers: Yahoo sends null for missing bars
	Low    []*float64 `json:"low"`
	Open   []*float64 `json:"open"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string `json:"currency"`
				Symbol               string `json:"symbol"`
				ExchangeName         string `json:"exchangeName"`
				InstrumentType       string `json:"instrumentType"`
				Gmtoffset            int    `json:"gmtoffset"`
				Timezone             string `json:"timezone"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				DataGranularity      string `json:"dataGranularity"`
				Range                string `json:"range"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []quoteSeries `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) parseChartResponse(symbol string, daily bool, data []byte) ([]models.MRecord, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, helpers.NewDataSourceError(err, "malformed chart response for %s", symbol)
	}

	if resp.Chart.Error != nil {
		return nil, helpers.NewDataSourceError(nil, "yahoo api error for %s: %s - %s",
			symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, helpers.NewDataSourceError(nil, "no result in response for %s", symbol)
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		// nothing traded in the window
		return []models.MRecord{}, nil
	}

	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Close) != n || len(quote.Open) != n || len(quote.High) != n ||
		len(quote.Low) != n || len(quote.Volume) != n {
		return nil, helpers.NewDataSourceError(nil, "data alignment error for %s: mismatched array lengths", symbol)
	}

	exchangeLoc := s.Location
	if name := result.Meta.ExchangeTimezoneName; name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			exchangeLoc = loc
		}
	}

	records := make([]models.MRecord, 0, n)
	for i, ts := range result.Timestamp {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil ||
			quote.Close[i] == nil || quote.Volume[i] == nil {
			s.Logger.Debug("Skipping incomplete bar for %s at index %d", symbol, i)
			continue
		}
		if *quote.Close[i] <= 0 || *quote.Volume[i] < 0 {
			s.Logger.Debug("Skipping invalid bar for %s: close=%f, volume=%f", symbol, *quote.Close[i], *quote.Volume[i])
			continue
		}

		records = append(records, models.MRecord{
			Timestamp: s.normalize(time.Unix(ts, 0), exchangeLoc, daily),
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    *quote.Volume[i],
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	// Yahoo repeats the live bar at the end of daily series; keep the later one
	deduped := records[:0]
	for _, r := range records {
		if k := len(deduped); k > 0 && deduped[k-1].Timestamp.Equal(r.Timestamp) {
			deduped[k-1] = r
			continue
		}
		deduped = append(deduped, r)
	}

	if len(deduped) > 0 {
		s.Logger.Debug("Fetched %s: %d bars [%s -> %s]", symbol, len(deduped),
			deduped[0].Timestamp.Format(time.RFC3339), deduped[len(deduped)-1].Timestamp.Format(time.RFC3339))
	}
	return deduped, nil
}

// -----------------------------------------------------------------------------

// normalize maps a bar time into the market timezone. Daily bars keep only
// their trading date, as seen on the listing exchange.
func (s *YahooFinanceSource) normalize(ts time.Time, exchangeLoc *time.Location, daily bool) time.Time {
	if !daily {
		return ts.In(s.Location)
	}
	y, m, d := ts.In(exchangeLoc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.Location)
}
