package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/internal/store"
	"github.com/wonny/scout/backend/pkg/config"
	"github.com/wonny/scout/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error"})
}

func seedRecord(t *testing.T, st *store.Memory, symbol contracts.Symbol, kind contracts.CriteriaKind, status contracts.RecordStatus, score float64) {
	t.Helper()
	now := time.Now().UTC()
	rec := &contracts.RetentionRecord{
		Symbol: symbol,
		Kind:   kind,
		Current: contracts.ScanResult{
			Symbol: symbol, Kind: kind,
			Passed: status != contracts.StatusPruned,
			Score:  score, EvaluatedAt: now,
			Detail: map[string]string{"return_1m": "0.08"},
		},
		FirstRetainedAt: now,
		LastEvaluatedAt: now,
		Status:          status,
	}
	if status == contracts.StatusPruned {
		rec.PrunedAt = &now
	}
	require.NoError(t, st.UpsertRecord(context.Background(), rec))
}

func TestBuildOverview(t *testing.T) {
	st := store.NewMemory()
	seedRecord(t, st, "2330", contracts.CriteriaMomentum, contracts.StatusActive, 0.8)
	seedRecord(t, st, "2317", contracts.CriteriaMomentum, contracts.StatusManual, 0.2)
	seedRecord(t, st, "1101", contracts.CriteriaMomentum, contracts.StatusPruned, -0.3)
	seedRecord(t, st, "NVDA", contracts.CriteriaFundamental, contracts.StatusActive, 0.5)

	b := New(st, testLogger())
	overview, err := b.BuildOverview(context.Background())
	require.NoError(t, err)

	require.Len(t, overview.Kinds, 2)

	momentum := overview.Kinds[0]
	assert.Equal(t, contracts.CriteriaMomentum, momentum.Kind)
	assert.Equal(t, 1, momentum.ActiveCount)
	assert.Equal(t, 1, momentum.ManualCount)

	// Scores sorted descending
	require.Len(t, momentum.TopScores, 2)
	assert.Equal(t, contracts.Symbol("2330"), momentum.TopScores[0].Symbol)

	assert.Equal(t, 1, overview.PrunedToday)

	text := overview.Render()
	assert.Contains(t, text, "2330")
	assert.Contains(t, text, "(manual)")
}

func TestBuildDaily(t *testing.T) {
	st := store.NewMemory()
	now := time.Now().UTC()

	require.NoError(t, st.AppendRunSummary(context.Background(), &contracts.RunSummary{
		Kind:             contracts.CriteriaMomentum,
		SymbolsAttempted: 50,
		SymbolsPassed:    7,
		StartedAt:        now.Add(-time.Hour),
		EndedAt:          now,
	}))
	seedRecord(t, st, "1101", contracts.CriteriaMomentum, contracts.StatusPruned, -0.2)

	b := New(st, testLogger())
	daily, err := b.BuildDaily(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, daily.Runs, 1)
	assert.Equal(t, 50, daily.Runs[0].SymbolsAttempted)
	require.Len(t, daily.Pruned, 1)
	assert.Equal(t, contracts.Symbol("1101"), daily.Pruned[0].Symbol)

	text := daily.Render()
	assert.Contains(t, text, "attempted=50")
	assert.Contains(t, text, "1101")
}

func TestBuildWeekly(t *testing.T) {
	st := store.NewMemory()
	now := time.Now().UTC()

	// One run three days ago, one run eight days ago (outside the window)
	require.NoError(t, st.AppendRunSummary(context.Background(), &contracts.RunSummary{
		Kind:             contracts.CriteriaMomentum,
		SymbolsAttempted: 40,
		StartedAt:        now.Add(-3 * 24 * time.Hour),
		EndedAt:          now.Add(-3 * 24 * time.Hour).Add(time.Hour),
	}))
	require.NoError(t, st.AppendRunSummary(context.Background(), &contracts.RunSummary{
		Kind:             contracts.CriteriaMomentum,
		SymbolsAttempted: 30,
		StartedAt:        now.Add(-8 * 24 * time.Hour),
		EndedAt:          now.Add(-8 * 24 * time.Hour).Add(time.Hour),
	}))
	seedRecord(t, st, "1101", contracts.CriteriaMomentum, contracts.StatusPruned, -0.2)

	b := New(st, testLogger())
	weekly, err := b.BuildWeekly(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, weekly.Runs, 1)
	assert.Equal(t, 40, weekly.Runs[0].SymbolsAttempted)
	require.Len(t, weekly.Pruned, 1)

	text := weekly.Render()
	assert.Contains(t, text, "attempted=40")
	assert.Contains(t, text, "1101")
}

func TestBuildStock(t *testing.T) {
	st := store.NewMemory()
	seedRecord(t, st, "2330", contracts.CriteriaMomentum, contracts.StatusActive, 0.8)
	seedRecord(t, st, "2330", contracts.CriteriaFundamental, contracts.StatusPruned, -0.1)

	b := New(st, testLogger())
	stock, err := b.BuildStock(context.Background(), "2330")
	require.NoError(t, err)

	require.Len(t, stock.Records, 2)

	text := stock.Render()
	assert.Contains(t, text, "momentum")
	assert.Contains(t, text, "fundamental")
	assert.Contains(t, text, "return_1m")
}

func TestBuildStock_Unknown(t *testing.T) {
	b := New(store.NewMemory(), testLogger())
	_, err := b.BuildStock(context.Background(), "9999")
	assert.ErrorIs(t, err, contracts.ErrSymbolNotFound)
}
