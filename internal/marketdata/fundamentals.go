package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/config"
	"github.com/wonny/scout/backend/pkg/httputil"
	"github.com/wonny/scout/backend/pkg/logger"
	"github.com/wonny/scout/backend/pkg/redis"
)

// FundamentalClient scrapes the fundamentals site's per-stock summary page.
// Results are cached for the configured TTL; fundamentals move quarterly, so
// one fetch per symbol per day is plenty.
type FundamentalClient struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	config     config.StatementDogConfig
	logger     *logger.Logger
}

// NewFundamentalClient creates a new fundamental client
func NewFundamentalClient(httpClient *httputil.Client, cache *redis.Cache, cfg config.StatementDogConfig, log *logger.Logger) *FundamentalClient {
	return &FundamentalClient{
		httpClient: httpClient,
		cache:      cache,
		config:     cfg,
		logger:     log,
	}
}

// GetFundamentals returns the latest fundamental snapshot for a symbol
func (c *FundamentalClient) GetFundamentals(ctx context.Context, symbol contracts.Symbol) (*contracts.Fundamentals, error) {
	cacheKey := redis.FundamentalKey(symbol.String())

	var cached contracts.Fundamentals
	found, err := c.cache.Get(ctx, cacheKey, &cached)
	if err == nil && found && !cached.AsOf.IsZero() {
		return &cached, nil
	}

	fundamentals, err := c.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, cacheKey, fundamentals, c.config.CacheTTL); err != nil {
		c.logger.WithError(err).Warn("Failed to cache fundamentals")
	}

	return fundamentals, nil
}

func (c *FundamentalClient) fetch(ctx context.Context, symbol contracts.Symbol) (*contracts.Fundamentals, error) {
	url := fmt.Sprintf("%s/analysis/%s", c.config.BaseURL, symbol.String())

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

	fundamentals, err := parseFundamentalsHTML(string(body), symbol)
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol.String(),
		"roe":    fundamentals.ROE,
	}).Debug("Fetched fundamentals")

	return fundamentals, nil
}

// parseFundamentalsHTML pulls the metric table off the summary page. Rows
// are label/value pairs; labels appear in Chinese or English depending on
// the visitor's locale, so both are matched.
func parseFundamentalsHTML(html string, symbol contracts.Symbol) (*contracts.Fundamentals, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	fundamentals := &contracts.Fundamentals{
		Symbol: symbol,
		AsOf:   time.Now().UTC(),
	}
	matched := 0

	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}

		label := strings.TrimSpace(cells.First().Text())
		value := strings.TrimSpace(cells.Last().Text())

		switch {
		case matchLabel(label, "ROE", "股東權益報酬率"):
			if v, ok := parsePercent(value); ok {
				fundamentals.ROE = v
				matched++
			}
		case matchLabel(label, "Debt Ratio", "負債比率"):
			if v, ok := parsePercent(value); ok {
				fundamentals.DebtRatio = v
				matched++
			}
		case matchLabel(label, "Gross Margin", "毛利率"):
			if v, ok := parsePercent(value); ok {
				fundamentals.GrossMargin = v
				matched++
			}
		case matchLabel(label, "F-Score", "F分數"):
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				fundamentals.FScore = n
				matched++
			}
		}
	})

	if matched == 0 {
		return nil, fmt.Errorf("no fundamental metrics found in page")
	}

	return fundamentals, nil
}

func matchLabel(label string, candidates ...string) bool {
	for _, c := range candidates {
		if strings.Contains(label, c) {
			return true
		}
	}
	return false
}

// parsePercent parses "15.3%", "15.3", "1,230.5%" into a float
func parsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
