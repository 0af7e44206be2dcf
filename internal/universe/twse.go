package universe

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/scout/backend/pkg/config"
	"github.com/wonny/scout/backend/pkg/httputil"
	"github.com/wonny/scout/backend/pkg/logger"
)

// TWSE listing modes on the ISIN page
const (
	twseModeListed = 2 // 上市 (exchange-listed)
	twseModeOTC    = 4 // 上櫃 (over-the-counter)
)

var twseCodePattern = regexp.MustCompile(`^[0-9][0-9A-Z]{3,5}$`)

// TWSE scrapes the exchange's ISIN listing pages for the tradable stock
// universe. It is a Source; wrap it in a Provider for snapshot semantics.
type TWSE struct {
	httpClient *httputil.Client
	config     config.TWSEConfig
	logger     *logger.Logger
}

// NewTWSE creates a TWSE listing source
func NewTWSE(httpClient *httputil.Client, cfg config.TWSEConfig, log *logger.Logger) *TWSE {
	return &TWSE{
		httpClient: httpClient,
		config:     cfg,
		logger:     log,
	}
}

// Fetch returns raw stock codes from the listed board, plus the OTC board
// when configured
func (t *TWSE) Fetch(ctx context.Context) ([]string, error) {
	codes, err := t.fetchBoard(ctx, twseModeListed)
	if err != nil {
		return nil, fmt.Errorf("fetch listed board: %w", err)
	}

	if t.config.IncludeOTC {
		otc, err := t.fetchBoard(ctx, twseModeOTC)
		if err != nil {
			return nil, fmt.Errorf("fetch OTC board: %w", err)
		}
		codes = append(codes, otc...)
	}

	t.logger.WithFields(map[string]interface{}{
		"count":       len(codes),
		"include_otc": t.config.IncludeOTC,
	}).Debug("Fetched exchange listing")

	return codes, nil
}

func (t *TWSE) fetchBoard(ctx context.Context, mode int) ([]string, error) {
	url := fmt.Sprintf("%s/isin/C_public.jsp?strMode=%d", t.config.BaseURL, mode)

	resp, err := t.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	return parseListingHTML(string(body)), nil
}

// parseListingHTML extracts stock codes from the ISIN listing table. Data
// rows carry "code<U+3000>name" in the first cell; section headers use a
// colspan cell and are skipped. Only equity rows (CFI code "ES...") count,
// which excludes warrants, ETFs and bonds sharing the page.
func parseListingHTML(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var codes []string
	doc.Find("table.h4 tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}

		parts := strings.SplitN(cells.Eq(0).Text(), "　", 2)
		code := strings.TrimSpace(parts[0])
		if !twseCodePattern.MatchString(code) {
			return
		}

		cfi := strings.TrimSpace(cells.Eq(5).Text())
		if cfi != "" && !strings.HasPrefix(cfi, "ES") {
			return
		}

		codes = append(codes, code)
	})

	return codes
}
