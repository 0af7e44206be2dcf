// Package handlers holds the HTTP handlers for the read/operate API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/internal/monitor"
	"github.com/wonny/scout/backend/internal/report"
	"github.com/wonny/scout/backend/pkg/logger"
)

// RetentionHandler serves the retained set and its run history.
type RetentionHandler struct {
	store      contracts.RetentionStore
	reports    *report.Builder
	monitor    *monitor.Monitor
	evaluators map[contracts.CriteriaKind]contracts.Evaluator
	logger     *logger.Logger
}

// NewRetentionHandler creates a new retention handler
func NewRetentionHandler(
	store contracts.RetentionStore,
	reports *report.Builder,
	mon *monitor.Monitor,
	evaluators map[contracts.CriteriaKind]contracts.Evaluator,
	log *logger.Logger,
) *RetentionHandler {
	return &RetentionHandler{
		store:      store,
		reports:    reports,
		monitor:    mon,
		evaluators: evaluators,
		logger:     log,
	}
}

// GetActive returns active and manual records for a criteria kind
// GET /api/retention/active?kind=momentum
func (h *RetentionHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}

	records, err := h.store.ListActive(r.Context(), kind)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list active records")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve active records")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kind":    kind,
		"count":   len(records),
		"records": records,
	})
}

// GetPruned returns records pruned since a date
// GET /api/retention/pruned?since=2026-08-01
func (h *RetentionHandler) GetPruned(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().AddDate(0, 0, -7)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid since date, want YYYY-MM-DD")
			return
		}
		since = parsed
	}

	records, err := h.store.ListPrunedSince(r.Context(), since)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list pruned records")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve pruned records")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"since":   since.Format("2006-01-02"),
		"count":   len(records),
		"records": records,
	})
}

// GetStock returns everything known about one symbol
// GET /api/retention/{symbol}
func (h *RetentionHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	symbol := contracts.NormalizeSymbol(mux.Vars(r)["symbol"])

	stock, err := h.reports.BuildStock(r.Context(), symbol)
	if errors.Is(err, contracts.ErrSymbolNotFound) {
		respondError(w, http.StatusNotFound, "Symbol has no retention records")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to build stock report")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve symbol")
		return
	}

	respondJSON(w, http.StatusOK, stock)
}

// Retain forces a symbol into the retained set
// POST /api/retention/{symbol}?kind=momentum
func (h *RetentionHandler) Retain(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	symbol := contracts.NormalizeSymbol(mux.Vars(r)["symbol"])

	record, err := h.monitor.Retain(r.Context(), symbol, kind, h.evaluators[kind])
	if err != nil {
		if errors.Is(err, contracts.ErrSymbolNotFound) {
			respondError(w, http.StatusNotFound, "Symbol is not in the universe")
			return
		}
		h.logger.WithError(err).Error("Failed to retain symbol")
		respondError(w, http.StatusInternalServerError, "Failed to retain symbol")
		return
	}

	respondJSON(w, http.StatusCreated, record)
}

// Unretain prunes a symbol from the retained set
// DELETE /api/retention/{symbol}?kind=momentum
func (h *RetentionHandler) Unretain(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	symbol := contracts.NormalizeSymbol(mux.Vars(r)["symbol"])

	err := h.monitor.Unretain(r.Context(), symbol, kind)
	if errors.Is(err, contracts.ErrSymbolNotFound) {
		respondError(w, http.StatusNotFound, "Symbol has no retention record")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to unretain symbol")
		respondError(w, http.StatusInternalServerError, "Failed to unretain symbol")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetRuns returns run summaries for a kind within a date range
// GET /api/runs?kind=momentum&from=2026-08-01&to=2026-08-24
func (h *RetentionHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -7)
	to := now.Add(24 * time.Hour)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid from date, want YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid to date, want YYYY-MM-DD")
			return
		}
		to = parsed.Add(24 * time.Hour)
	}

	runs, err := h.store.GetRunSummaries(r.Context(), kind, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get run summaries")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kind":  kind,
		"count": len(runs),
		"runs":  runs,
	})
}

// GetOverview returns the cross-pipeline retained-set summary
// GET /api/overview
func (h *RetentionHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.reports.BuildOverview(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build overview")
		respondError(w, http.StatusInternalServerError, "Failed to build overview")
		return
	}

	respondJSON(w, http.StatusOK, overview)
}

// parseKind reads and validates the kind query parameter
func parseKind(w http.ResponseWriter, r *http.Request) (contracts.CriteriaKind, bool) {
	kind := contracts.CriteriaKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = contracts.CriteriaMomentum
	}
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown criteria kind")
		return "", false
	}
	return kind, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
