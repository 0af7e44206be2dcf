package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/internal/monitor"
	"github.com/wonny/scout/backend/internal/report"
	"github.com/wonny/scout/backend/internal/store"
	"github.com/wonny/scout/backend/internal/universe"
	"github.com/wonny/scout/backend/pkg/config"
	"github.com/wonny/scout/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error"})
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, contracts.ErrLockContention
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

func newTestHandler(t *testing.T) (*RetentionHandler, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	log := testLogger()
	uni := universe.NewProvider(universe.NewStatic([]string{"2330", "2317"}))
	mon := monitor.New(st, &fakeLocker{}, uni, config.ScanConfig{
		MaxRetries: 0, RetryDelay: time.Millisecond, EvalTimeout: time.Second, LockTTL: time.Minute,
	}, config.MonitorConfig{}, log)

	h := NewRetentionHandler(st, report.New(st, log), mon, nil, log)
	return h, st
}

func seedActive(t *testing.T, st *store.Memory, symbol contracts.Symbol) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, st.UpsertRecord(context.Background(), &contracts.RetentionRecord{
		Symbol: symbol,
		Kind:   contracts.CriteriaMomentum,
		Current: contracts.ScanResult{
			Symbol: symbol, Kind: contracts.CriteriaMomentum,
			Passed: true, Score: 0.4, EvaluatedAt: now,
		},
		FirstRetainedAt: now,
		LastEvaluatedAt: now,
		Status:          contracts.StatusActive,
	}))
}

func TestGetActive(t *testing.T) {
	h, st := newTestHandler(t)
	seedActive(t, st, "2330")

	req := httptest.NewRequest(http.MethodGet, "/api/retention/active?kind=momentum", nil)
	rec := httptest.NewRecorder()
	h.GetActive(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int                          `json:"count"`
		Records []*contracts.RetentionRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, contracts.Symbol("2330"), body.Records[0].Symbol)
}

func TestGetActive_BadKind(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/retention/active?kind=astrology", nil)
	rec := httptest.NewRecorder()
	h.GetActive(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStock_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/retention/9999", nil)
	req = mux.SetURLVars(req, map[string]string{"symbol": "9999"})
	rec := httptest.NewRecorder()
	h.GetStock(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetainAndUnretain(t *testing.T) {
	h, st := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/retention/2330?kind=momentum", nil)
	req = mux.SetURLVars(req, map[string]string{"symbol": "2330"})
	rec := httptest.NewRecorder()
	h.Retain(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	stored, err := st.GetRecord(context.Background(), "2330", contracts.CriteriaMomentum)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, contracts.StatusManual, stored.Status)

	req = httptest.NewRequest(http.MethodDelete, "/api/retention/2330?kind=momentum", nil)
	req = mux.SetURLVars(req, map[string]string{"symbol": "2330"})
	rec = httptest.NewRecorder()
	h.Unretain(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	stored, err = st.GetRecord(context.Background(), "2330", contracts.CriteriaMomentum)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusPruned, stored.Status)
}

func TestUnretain_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/retention/9999?kind=momentum", nil)
	req = mux.SetURLVars(req, map[string]string{"symbol": "9999"})
	rec := httptest.NewRecorder()
	h.Unretain(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRuns(t *testing.T) {
	h, st := newTestHandler(t)
	now := time.Now().UTC()
	require.NoError(t, st.AppendRunSummary(context.Background(), &contracts.RunSummary{
		Kind:             contracts.CriteriaMomentum,
		SymbolsAttempted: 10,
		StartedAt:        now.Add(-time.Hour),
		EndedAt:          now,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/runs?kind=momentum", nil)
	rec := httptest.NewRecorder()
	h.GetRuns(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestGetOverview(t *testing.T) {
	h, st := newTestHandler(t)
	seedActive(t, st, "2330")

	req := httptest.NewRequest(http.MethodGet, "/api/overview", nil)
	rec := httptest.NewRecorder()
	h.GetOverview(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2330")
}
