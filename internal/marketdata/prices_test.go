package marketdata

import (
	"testing"

	"github.com/wonny/scout/backend/internal/contracts"
)

func TestParseChartResponse(t *testing.T) {
	body := []byte(`{
		"chart": {
			"result": [{
				"timestamp": [1755561600, 1755648000, 1755734400],
				"indicators": {
					"quote": [{
						"open":   [1080.0, 1090.0, 1100.0],
						"high":   [1095.0, 1105.0, 1115.0],
						"low":    [1075.0, 1085.0, 1095.0],
						"close":  [1090.0, 1100.0, 1110.0],
						"volume": [25000000, 27000000, 30000000]
					}]
				}
			}],
			"error": null
		}
	}`)

	bars, err := parseChartResponse(body, "2330")
	if err != nil {
		t.Fatalf("parseChartResponse() error = %v", err)
	}

	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}

	// Most recent first
	if bars[0].Close != 1110.0 {
		t.Errorf("bars[0].Close = %v, want 1110.0", bars[0].Close)
	}
	if !bars[0].Date.After(bars[2].Date) {
		t.Error("bars should be ordered most recent first")
	}
	if bars[0].Symbol != contracts.Symbol("2330") {
		t.Errorf("bars[0].Symbol = %v, want 2330", bars[0].Symbol)
	}
}

func TestParseChartResponse_SkipsUnfilledSlots(t *testing.T) {
	body := []byte(`{
		"chart": {
			"result": [{
				"timestamp": [1755561600, 1755648000],
				"indicators": {
					"quote": [{
						"open":   [1080.0, 0],
						"high":   [1095.0, 0],
						"low":    [1075.0, 0],
						"close":  [1090.0, 0],
						"volume": [25000000, 0]
					}]
				}
			}],
			"error": null
		}
	}`)

	bars, err := parseChartResponse(body, "2330")
	if err != nil {
		t.Fatalf("parseChartResponse() error = %v", err)
	}
	if len(bars) != 1 {
		t.Errorf("got %d bars, want 1 (zero-close slot skipped)", len(bars))
	}
}

func TestParseChartResponse_NotFound(t *testing.T) {
	body := []byte(`{
		"chart": {
			"result": null,
			"error": {"code": "Not Found", "description": "No data found"}
		}
	}`)

	_, err := parseChartResponse(body, "9999")
	if err == nil {
		t.Fatal("expected error for Not Found response")
	}
}

func TestParseChartResponse_EmptyResult(t *testing.T) {
	_, err := parseChartResponse([]byte(`{"chart":{"result":[],"error":null}}`), "2330")
	if err == nil {
		t.Fatal("expected error for empty result")
	}
}

func TestAPISymbol(t *testing.T) {
	tests := []struct {
		symbol contracts.Symbol
		want   string
	}{
		{"2330", "2330.TW"},
		{"6488", "6488.TW"},
		{"NVDA", "NVDA"},
		{"00TEST", "00TEST"},
	}

	for _, tt := range tests {
		if got := apiSymbol(tt.symbol); got != tt.want {
			t.Errorf("apiSymbol(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestTrimBars(t *testing.T) {
	bars := make([]contracts.Price, 10)
	if got := len(trimBars(bars, 5)); got != 5 {
		t.Errorf("trimBars(10, 5) len = %d, want 5", got)
	}
	if got := len(trimBars(bars, 20)); got != 10 {
		t.Errorf("trimBars(10, 20) len = %d, want 10", got)
	}
	if got := len(trimBars(bars, 0)); got != 10 {
		t.Errorf("trimBars(10, 0) len = %d, want 10", got)
	}
}
