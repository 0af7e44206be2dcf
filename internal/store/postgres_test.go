package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/config"
	"github.com/wonny/scout/backend/pkg/database"
)

func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()

	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return NewPostgres(db.Pool)
}

func cleanupRecord(t *testing.T, s *Postgres, symbol contracts.Symbol, kind contracts.CriteriaKind) {
	t.Helper()
	t.Cleanup(func() {
		_, err := s.pool.Exec(context.Background(),
			`DELETE FROM scout.retention_records WHERE symbol = $1 AND kind = $2`,
			symbol.String(), string(kind))
		if err != nil {
			t.Logf("cleanup failed: %v", err)
		}
	})
}

func retainedRecord(symbol contracts.Symbol, status contracts.RecordStatus, retainedAt, evaluatedAt time.Time) *contracts.RetentionRecord {
	rec := &contracts.RetentionRecord{
		Symbol: symbol,
		Kind:   contracts.CriteriaMomentum,
		Current: contracts.ScanResult{
			Symbol: symbol, Kind: contracts.CriteriaMomentum,
			Passed: status != contracts.StatusPruned,
			Score:  0.3, EvaluatedAt: evaluatedAt,
		},
		FirstRetainedAt: retainedAt,
		LastEvaluatedAt: evaluatedAt,
		Status:          status,
	}
	if status == contracts.StatusPruned {
		prunedAt := evaluatedAt
		rec.PrunedAt = &prunedAt
	}
	return rec
}

func TestPostgresUpsert_ReactivationResetsFirstRetainedAt(t *testing.T) {
	s := newTestPostgres(t)
	symbol := contracts.Symbol("TEST-REACT")
	cleanupRecord(t, s, symbol, contracts.CriteriaMomentum)
	ctx := context.Background()

	firstSpell := time.Now().UTC().Add(-72 * time.Hour).Truncate(time.Microsecond)
	prunedAt := firstSpell.Add(24 * time.Hour)
	secondSpell := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, s.UpsertRecord(ctx, retainedRecord(symbol, contracts.StatusActive, firstSpell, firstSpell)))
	require.NoError(t, s.UpsertRecord(ctx, retainedRecord(symbol, contracts.StatusPruned, firstSpell, prunedAt)))

	// Reactivation carries a reset FirstRetainedAt; the conflict update
	// must persist it, not keep the first spell's value.
	require.NoError(t, s.UpsertRecord(ctx, retainedRecord(symbol, contracts.StatusActive, secondSpell, secondSpell)))

	stored, err := s.GetRecord(ctx, symbol, contracts.CriteriaMomentum)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, contracts.StatusActive, stored.Status)
	assert.Nil(t, stored.PrunedAt)
	assert.True(t, stored.FirstRetainedAt.Equal(secondSpell),
		"reactivation starts a new retention spell: got %s, want %s", stored.FirstRetainedAt, secondSpell)
}

func TestPostgresUpsert_StaleWriteIgnored(t *testing.T) {
	s := newTestPostgres(t)
	symbol := contracts.Symbol("TEST-STALE")
	cleanupRecord(t, s, symbol, contracts.CriteriaMomentum)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	earlier := now.Add(-time.Hour)

	require.NoError(t, s.UpsertRecord(ctx, retainedRecord(symbol, contracts.StatusActive, now, now)))
	require.NoError(t, s.UpsertRecord(ctx, retainedRecord(symbol, contracts.StatusPruned, earlier, earlier)))

	stored, err := s.GetRecord(ctx, symbol, contracts.CriteriaMomentum)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, contracts.StatusActive, stored.Status, "older evaluated_at must not supersede")
}
