package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scout/backend/internal/contracts"
)

func makeRecord(symbol string, kind contracts.CriteriaKind, status contracts.RecordStatus, evaluatedAt time.Time) *contracts.RetentionRecord {
	return &contracts.RetentionRecord{
		Symbol: contracts.Symbol(symbol),
		Kind:   kind,
		Current: contracts.ScanResult{
			Symbol:      contracts.Symbol(symbol),
			Kind:        kind,
			Passed:      status != contracts.StatusPruned,
			Score:       0.42,
			EvaluatedAt: evaluatedAt,
		},
		FirstRetainedAt: evaluatedAt,
		LastEvaluatedAt: evaluatedAt,
		Status:          status,
	}
}

func TestMemory_GetRecordMissing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec, err := m.GetRecord(ctx, "2330", contracts.CriteriaMomentum)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMemory_UpsertAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, m.UpsertRecord(ctx, makeRecord("2330", contracts.CriteriaMomentum, contracts.StatusActive, now)))

	rec, err := m.GetRecord(ctx, "2330", contracts.CriteriaMomentum)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, contracts.StatusActive, rec.Status)
	assert.True(t, rec.Current.Passed)

	// Same symbol under the other kind is a separate record
	other, err := m.GetRecord(ctx, "2330", contracts.CriteriaFundamental)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestMemory_UpsertLastWriteWins(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, m.UpsertRecord(ctx, makeRecord("2330", contracts.CriteriaMomentum, contracts.StatusActive, now)))

	// A stale write (older EvaluatedAt) must not supersede
	stale := makeRecord("2330", contracts.CriteriaMomentum, contracts.StatusPruned, now.Add(-time.Hour))
	require.NoError(t, m.UpsertRecord(ctx, stale))

	rec, err := m.GetRecord(ctx, "2330", contracts.CriteriaMomentum)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusActive, rec.Status, "stale write should not supersede")

	// A newer write supersedes
	fresh := makeRecord("2330", contracts.CriteriaMomentum, contracts.StatusPruned, now.Add(time.Hour))
	require.NoError(t, m.UpsertRecord(ctx, fresh))

	rec, err = m.GetRecord(ctx, "2330", contracts.CriteriaMomentum)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusPruned, rec.Status)
}

func TestMemory_ListActiveIncludesManual(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, m.UpsertRecord(ctx, makeRecord("2330", contracts.CriteriaMomentum, contracts.StatusActive, now)))
	require.NoError(t, m.UpsertRecord(ctx, makeRecord("2317", contracts.CriteriaMomentum, contracts.StatusManual, now)))
	pruned := makeRecord("1101", contracts.CriteriaMomentum, contracts.StatusPruned, now)
	prunedAt := now
	pruned.PrunedAt = &prunedAt
	require.NoError(t, m.UpsertRecord(ctx, pruned))
	require.NoError(t, m.UpsertRecord(ctx, makeRecord("NVDA", contracts.CriteriaFundamental, contracts.StatusActive, now)))

	active, err := m.ListActive(ctx, contracts.CriteriaMomentum)
	require.NoError(t, err)
	require.Len(t, active, 2)

	// Symbol-ordered
	assert.Equal(t, contracts.Symbol("2317"), active[0].Symbol)
	assert.Equal(t, contracts.Symbol("2330"), active[1].Symbol)
}

func TestMemory_ListPrunedSince(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Now()

	old := makeRecord("1101", contracts.CriteriaMomentum, contracts.StatusPruned, now.Add(-48*time.Hour))
	oldAt := now.Add(-48 * time.Hour)
	old.PrunedAt = &oldAt
	require.NoError(t, m.UpsertRecord(ctx, old))

	recent := makeRecord("2330", contracts.CriteriaMomentum, contracts.StatusPruned, now)
	recentAt := now
	recent.PrunedAt = &recentAt
	require.NoError(t, m.UpsertRecord(ctx, recent))

	pruned, err := m.ListPrunedSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, pruned, 1)
	assert.Equal(t, contracts.Symbol("2330"), pruned[0].Symbol)
}

func TestMemory_CursorLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	// No cursor initially
	cursor, err := m.LoadCursor(ctx, contracts.CriteriaMomentum)
	require.NoError(t, err)
	assert.Nil(t, cursor)

	// Save and load
	started := time.Now()
	require.NoError(t, m.SaveCursor(ctx, &contracts.ScanCursor{
		Kind:         contracts.CriteriaMomentum,
		LastSymbol:   "2330",
		RunStartedAt: started,
	}))

	cursor, err = m.LoadCursor(ctx, contracts.CriteriaMomentum)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, contracts.Symbol("2330"), cursor.LastSymbol)

	// Cursors are per criteria kind
	other, err := m.LoadCursor(ctx, contracts.CriteriaFundamental)
	require.NoError(t, err)
	assert.Nil(t, other)

	// Clear
	require.NoError(t, m.ClearCursor(ctx, contracts.CriteriaMomentum))
	cursor, err = m.LoadCursor(ctx, contracts.CriteriaMomentum)
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestMemory_RunSummaries(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)

	require.NoError(t, m.AppendRunSummary(ctx, &contracts.RunSummary{
		Kind:             contracts.CriteriaMomentum,
		SymbolsAttempted: 100,
		SymbolsPassed:    12,
		SymbolsFailed:    3,
		StartedAt:        base,
		EndedAt:          base.Add(10 * time.Minute),
	}))
	require.NoError(t, m.AppendRunSummary(ctx, &contracts.RunSummary{
		Kind:      contracts.CriteriaMomentum,
		StartedAt: base.Add(48 * time.Hour),
		EndedAt:   base.Add(49 * time.Hour),
	}))
	require.NoError(t, m.AppendRunSummary(ctx, &contracts.RunSummary{
		Kind:      contracts.CriteriaFundamental,
		StartedAt: base,
		EndedAt:   base.Add(time.Hour),
	}))

	got, err := m.GetRunSummaries(ctx, contracts.CriteriaMomentum, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 100, got[0].SymbolsAttempted)
	assert.Equal(t, 12, got[0].SymbolsPassed)
}

func TestMemory_CopiesAreIsolated(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Now()
	rec := makeRecord("2330", contracts.CriteriaMomentum, contracts.StatusActive, now)
	rec.Current.Detail = map[string]string{"return_1m": "0.08"}
	require.NoError(t, m.UpsertRecord(ctx, rec))

	// Mutating the caller's copy must not affect the stored record
	rec.Status = contracts.StatusPruned
	rec.Current.Detail["return_1m"] = "mutated"

	got, err := m.GetRecord(ctx, "2330", contracts.CriteriaMomentum)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusActive, got.Status)
	assert.Equal(t, "0.08", got.Current.Detail["return_1m"])
}
