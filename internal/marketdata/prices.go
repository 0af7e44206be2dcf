// Package marketdata provides the external price and fundamental sources the
// criteria pipelines evaluate against.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/config"
	"github.com/wonny/scout/backend/pkg/httputil"
	"github.com/wonny/scout/backend/pkg/logger"
	"github.com/wonny/scout/backend/pkg/redis"
)

// PriceClient fetches daily OHLCV bars from the chart API. It is the only
// place outbound price requests happen; callers share its rate budget
// through the injected httputil.Client.
type PriceClient struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	config     config.PriceAPIConfig
	logger     *logger.Logger
}

// NewPriceClient creates a new price client
func NewPriceClient(httpClient *httputil.Client, cache *redis.Cache, cfg config.PriceAPIConfig, log *logger.Logger) *PriceClient {
	return &PriceClient{
		httpClient: httpClient,
		cache:      cache,
		config:     cfg,
		logger:     log,
	}
}

// chartResponse mirrors the chart API JSON envelope
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyBars returns up to days recent daily bars, most recent first
func (c *PriceClient) GetDailyBars(ctx context.Context, symbol contracts.Symbol, days int) ([]contracts.Price, error) {
	cacheKey := redis.PriceKey(symbol.String(), time.Now().Format("2006-01-02"))

	var bars []contracts.Price
	found, err := c.cache.Get(ctx, cacheKey, &bars)
	if err == nil && found && len(bars) > 0 {
		return trimBars(bars, days), nil
	}

	bars, err = c.fetchBars(ctx, symbol, days)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, cacheKey, bars, redis.TTLDaily); err != nil {
		c.logger.WithError(err).Warn("Failed to cache price bars")
	}

	return trimBars(bars, days), nil
}

func (c *PriceClient) fetchBars(ctx context.Context, symbol contracts.Symbol, days int) ([]contracts.Price, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=%dd&interval=1d",
		c.config.BaseURL, apiSymbol(symbol), days)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", contracts.ErrSymbolNotFound, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	bars, err := parseChartResponse(body, symbol)
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol.String(),
		"count":  len(bars),
	}).Debug("Fetched daily bars")

	return bars, nil
}

// parseChartResponse decodes the chart envelope into bars, most recent first
func parseChartResponse(body []byte, symbol contracts.Symbol) ([]contracts.Price, error) {
	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("decode chart JSON: %w", err)
	}

	if cr.Chart.Error != nil {
		if cr.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", contracts.ErrSymbolNotFound, symbol)
		}
		return nil, fmt.Errorf("chart API error: %s (%s)", cr.Chart.Error.Code, cr.Chart.Error.Description)
	}

	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("empty chart result")
	}

	result := cr.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	var bars []contracts.Price
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue // Half-day or unfilled slot
		}
		bars = append(bars, contracts.Price{
			Symbol: symbol,
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  quote.Close[i],
			Volume: atInt(quote.Volume, i),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.After(bars[j].Date) })
	return bars, nil
}

// apiSymbol maps a normalized symbol to the chart API's ticker form.
// Numeric codes are Taiwan-listed and need the exchange suffix back.
func apiSymbol(symbol contracts.Symbol) string {
	s := symbol.String()
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	return s + ".TW"
}

func trimBars(bars []contracts.Price, days int) []contracts.Price {
	if days > 0 && len(bars) > days {
		return bars[:days]
	}
	return bars
}

func at(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}

func atInt(vals []int64, i int) int64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}
