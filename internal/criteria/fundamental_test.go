package criteria

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scout/backend/internal/contracts"
)

type fakeFundamentalSource struct {
	data map[contracts.Symbol]*contracts.Fundamentals
	err  error
}

func (f *fakeFundamentalSource) GetFundamentals(ctx context.Context, symbol contracts.Symbol) (*contracts.Fundamentals, error) {
	if f.err != nil {
		return nil, f.err
	}
	fund, ok := f.data[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contracts.ErrSymbolNotFound, symbol)
	}
	return fund, nil
}

func TestFundamental_PassesQualityStock(t *testing.T) {
	src := &fakeFundamentalSource{data: map[contracts.Symbol]*contracts.Fundamentals{
		"2330": {
			Symbol:      "2330",
			ROE:         25.0,
			DebtRatio:   30.0,
			GrossMargin: 55.0,
			FScore:      8,
			AsOf:        time.Now(),
		},
	}}
	f := NewFundamental(src, 0.0, 5, testLogger())

	result, err := f.Evaluate(context.Background(), "2330")
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Greater(t, result.Score, 0.0)
	assert.Equal(t, "8", result.Detail["f_score"])
}

func TestFundamental_FScoreGate(t *testing.T) {
	src := &fakeFundamentalSource{data: map[contracts.Symbol]*contracts.Fundamentals{
		"2330": {
			Symbol:      "2330",
			ROE:         25.0,
			DebtRatio:   30.0,
			GrossMargin: 55.0,
			FScore:      3, // great ratios, weak F-Score
			AsOf:        time.Now(),
		},
	}}
	f := NewFundamental(src, 0.0, 5, testLogger())

	result, err := f.Evaluate(context.Background(), "2330")
	require.NoError(t, err)

	assert.False(t, result.Passed, "F-Score below gate must fail regardless of score")
	assert.Greater(t, result.Score, 0.0)
}

func TestFundamental_FailsLeveragedStock(t *testing.T) {
	src := &fakeFundamentalSource{data: map[contracts.Symbol]*contracts.Fundamentals{
		"1101": {
			Symbol:      "1101",
			ROE:         2.0,
			DebtRatio:   250.0,
			GrossMargin: 8.0,
			FScore:      6,
			AsOf:        time.Now(),
		},
	}}
	f := NewFundamental(src, 0.0, 5, testLogger())

	result, err := f.Evaluate(context.Background(), "1101")
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Less(t, result.Score, 0.0)
}

func TestFundamental_UnknownSymbolIsInvalidInput(t *testing.T) {
	src := &fakeFundamentalSource{data: map[contracts.Symbol]*contracts.Fundamentals{}}
	f := NewFundamental(src, 0.0, 5, testLogger())

	_, err := f.Evaluate(context.Background(), "9999")

	var evalErr *contracts.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, contracts.CauseInvalidInput, evalErr.Cause)
}

func TestFundamental_SourceFailureIsRetryable(t *testing.T) {
	src := &fakeFundamentalSource{err: errors.New("scrape blocked")}
	f := NewFundamental(src, 0.0, 5, testLogger())

	_, err := f.Evaluate(context.Background(), "2330")

	var evalErr *contracts.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.True(t, evalErr.Retryable())
}

func TestFundamentalScoreBounds(t *testing.T) {
	high := fundamentalScore(&contracts.Fundamentals{ROE: 100, DebtRatio: 0, GrossMargin: 100})
	low := fundamentalScore(&contracts.Fundamentals{ROE: -100, DebtRatio: 400, GrossMargin: -100})

	assert.LessOrEqual(t, high, 1.0)
	assert.Greater(t, high, 0.5)
	assert.GreaterOrEqual(t, low, -1.0)
	assert.Less(t, low, -0.5)
}
