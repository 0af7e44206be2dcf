// Package criteria holds the evaluation pipelines a scan runs symbols
// through. Each evaluator is pure with respect to shared state and safe to
// retry; failures come back as *contracts.EvaluationError.
package criteria

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/logger"
)

// Bars needed for the 3-month return plus the 20-day volume comparison
const minMomentumBars = 61

// Momentum scores a symbol on recent price returns and volume growth.
// Score is in [-1, 1]; a symbol passes when it reaches the configured
// minimum.
type Momentum struct {
	prices   contracts.PriceSource
	minScore float64
	lookback int
	logger   *logger.Logger
}

// NewMomentum creates the momentum evaluator
func NewMomentum(prices contracts.PriceSource, minScore float64, lookbackDays int, log *logger.Logger) *Momentum {
	return &Momentum{
		prices:   prices,
		minScore: minScore,
		lookback: lookbackDays,
		logger:   log,
	}
}

// Kind returns the pipeline identifier
func (m *Momentum) Kind() contracts.CriteriaKind {
	return contracts.CriteriaMomentum
}

// Evaluate scores one symbol
func (m *Momentum) Evaluate(ctx context.Context, symbol contracts.Symbol) (contracts.ScanResult, error) {
	bars, err := m.prices.GetDailyBars(ctx, symbol, m.lookback)
	if err != nil {
		return contracts.ScanResult{}, classify(symbol, contracts.CriteriaMomentum, err)
	}

	if len(bars) < minMomentumBars {
		return contracts.ScanResult{}, contracts.NewInvalidInput(symbol, contracts.CriteriaMomentum,
			fmt.Errorf("insufficient history: %d bars, need %d", len(bars), minMomentumBars))
	}

	return1M := calculateReturn(bars, 20)
	return3M := calculateReturn(bars, 60)
	volumeRate := calculateVolumeGrowth(bars, 20)

	score := momentumScore(return1M, return3M, volumeRate)

	m.logger.WithFields(map[string]interface{}{
		"symbol":      symbol.String(),
		"return_1m":   return1M,
		"return_3m":   return3M,
		"volume_rate": volumeRate,
		"score":       score,
	}).Debug("Evaluated momentum")

	return contracts.ScanResult{
		Symbol:      symbol,
		Kind:        contracts.CriteriaMomentum,
		Passed:      score >= m.minScore,
		Score:       score,
		EvaluatedAt: time.Now().UTC(),
		Detail: map[string]string{
			"return_1m":   fmt.Sprintf("%.4f", return1M),
			"return_3m":   fmt.Sprintf("%.4f", return3M),
			"volume_rate": fmt.Sprintf("%.4f", volumeRate),
		},
	}, nil
}

// calculateReturn computes the price return over days trading days. Bars are
// most recent first.
func calculateReturn(bars []contracts.Price, days int) float64 {
	if len(bars) < days+1 {
		return 0.0
	}

	current := bars[0].Close
	past := bars[days].Close
	if current == 0 || past == 0 {
		return 0.0
	}

	return (current - past) / past
}

// calculateVolumeGrowth compares recent average volume to the prior period
func calculateVolumeGrowth(bars []contracts.Price, days int) float64 {
	if len(bars) < days*2 {
		return 0.0
	}

	recent := averageVolume(bars[:days])
	past := averageVolume(bars[days : days*2])
	if past == 0 {
		return 0.0
	}

	return (recent - past) / past
}

func averageVolume(bars []contracts.Price) float64 {
	if len(bars) == 0 {
		return 0.0
	}

	var sum int64
	for _, b := range bars {
		sum += b.Volume
	}
	return float64(sum) / float64(len(bars))
}

// momentumScore weights the factors and squashes to [-1, 1].
// Return1M: 40%, Return3M: 40%, VolumeRate: 20%.
func momentumScore(return1M, return3M, volumeRate float64) float64 {
	score := return1M*0.4 + return3M*0.4 + volumeRate*0.2
	return math.Tanh(score * 2)
}

// classify maps a data source error to the evaluation taxonomy: a symbol the
// source does not know is unevaluable and skipped; everything else is
// transient and retried.
func classify(symbol contracts.Symbol, kind contracts.CriteriaKind, err error) *contracts.EvaluationError {
	if errors.Is(err, contracts.ErrSymbolNotFound) {
		return contracts.NewInvalidInput(symbol, kind, err)
	}
	return contracts.NewDataUnavailable(symbol, kind, err)
}
