package criteria

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/logger"
)

// Fundamental scores a symbol on profitability and balance-sheet health.
// The Piotroski F-Score acts as a hard gate; the blended score decides the
// rest.
type Fundamental struct {
	source    contracts.FundamentalSource
	minScore  float64
	minFScore int
	logger    *logger.Logger
}

// NewFundamental creates the fundamental evaluator
func NewFundamental(source contracts.FundamentalSource, minScore float64, minFScore int, log *logger.Logger) *Fundamental {
	return &Fundamental{
		source:    source,
		minScore:  minScore,
		minFScore: minFScore,
		logger:    log,
	}
}

// Kind returns the pipeline identifier
func (f *Fundamental) Kind() contracts.CriteriaKind {
	return contracts.CriteriaFundamental
}

// Evaluate scores one symbol
func (f *Fundamental) Evaluate(ctx context.Context, symbol contracts.Symbol) (contracts.ScanResult, error) {
	fundamentals, err := f.source.GetFundamentals(ctx, symbol)
	if err != nil {
		return contracts.ScanResult{}, classify(symbol, contracts.CriteriaFundamental, err)
	}

	score := fundamentalScore(fundamentals)
	passed := score >= f.minScore && fundamentals.FScore >= f.minFScore

	f.logger.WithFields(map[string]interface{}{
		"symbol":  symbol.String(),
		"roe":     fundamentals.ROE,
		"f_score": fundamentals.FScore,
		"score":   score,
		"passed":  passed,
	}).Debug("Evaluated fundamentals")

	return contracts.ScanResult{
		Symbol:      symbol,
		Kind:        contracts.CriteriaFundamental,
		Passed:      passed,
		Score:       score,
		EvaluatedAt: time.Now().UTC(),
		Detail: map[string]string{
			"roe":          fmt.Sprintf("%.2f", fundamentals.ROE),
			"debt_ratio":   fmt.Sprintf("%.2f", fundamentals.DebtRatio),
			"gross_margin": fmt.Sprintf("%.2f", fundamentals.GrossMargin),
			"f_score":      strconv.Itoa(fundamentals.FScore),
		},
	}, nil
}

// fundamentalScore blends ROE, debt and margin into [-1, 1].
// ROE: 40%, DebtRatio: 30%, GrossMargin: 30%.
func fundamentalScore(f *contracts.Fundamentals) float64 {
	// ROE: 10% is neutral, 25% saturates
	roeScore := clamp((f.ROE - 10) / 15)

	// Debt: 100% is neutral, 0% is best, 200%+ saturates negative
	debtScore := 0.0
	if f.DebtRatio >= 0 {
		debtScore = clamp((100 - f.DebtRatio) / 100)
	}

	// Gross margin: 20% is neutral, 60% saturates
	marginScore := clamp((f.GrossMargin - 20) / 40)

	score := roeScore*0.4 + debtScore*0.3 + marginScore*0.3
	return math.Tanh(score * 1.5)
}

func clamp(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
