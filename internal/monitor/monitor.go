// Package monitor re-evaluates the retained set and prunes symbols that no
// longer meet their criteria. It only ever shrinks or re-scores the active
// set; growing it is the scan engine's job.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/internal/scan"
	"github.com/wonny/scout/backend/pkg/config"
	"github.com/wonny/scout/backend/pkg/logger"
)

// Monitor walks the active set for one criteria kind.
type Monitor struct {
	store    contracts.RetentionStore
	locker   contracts.Locker
	universe contracts.UniverseProvider
	scanCfg  config.ScanConfig
	config   config.MonitorConfig
	logger   *logger.Logger
}

// Summary reports one monitor pass.
type Summary struct {
	Kind      contracts.CriteriaKind
	Checked   int
	Pruned    int
	Failed    int // evaluation failures, records left untouched
	StartedAt time.Time
	EndedAt   time.Time
}

// New creates a monitor
func New(store contracts.RetentionStore, locker contracts.Locker, universe contracts.UniverseProvider, scanCfg config.ScanConfig, cfg config.MonitorConfig, log *logger.Logger) *Monitor {
	return &Monitor{
		store:    store,
		locker:   locker,
		universe: universe,
		scanCfg:  scanCfg,
		config:   cfg,
		logger:   log,
	}
}

// Run re-evaluates every active and manual record for the evaluator's kind.
// It holds the same lease as a scan run, so the two never interleave on one
// kind.
func (m *Monitor) Run(ctx context.Context, evaluator contracts.Evaluator) (*Summary, error) {
	kind := evaluator.Kind()

	release, err := m.locker.Acquire(ctx, "scan:"+string(kind), m.scanCfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire scan lease: %w", err)
	}
	defer release()

	records, err := m.store.ListActive(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list active records: %w", err)
	}

	summary := &Summary{Kind: kind, StartedAt: time.Now().UTC()}

	for _, record := range records {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", contracts.ErrInterrupted, ctx.Err())
		}

		if record.Status == contracts.StatusManual && !m.config.ReevaluateManual {
			continue
		}

		summary.Checked++

		result, err := m.evaluateWithRetry(ctx, evaluator, record.Symbol)
		if err != nil {
			// Transient failure is not grounds for pruning; keep the record
			// and revisit next pass.
			summary.Failed++
			m.logger.WithFields(map[string]interface{}{
				"symbol": record.Symbol.String(),
				"error":  err.Error(),
			}).Warn("Monitor evaluation failed, record kept")
			continue
		}

		next := scan.Transition(record, result)
		if next == nil {
			continue
		}
		if err := m.store.UpsertRecord(ctx, next); err != nil {
			return nil, fmt.Errorf("upsert record: %w", err)
		}

		if record.Status == contracts.StatusActive && next.Status == contracts.StatusPruned {
			summary.Pruned++
			m.logger.WithFields(map[string]interface{}{
				"symbol": record.Symbol.String(),
				"kind":   string(kind),
				"score":  result.Score,
			}).Info("Pruned symbol from retained set")
		}
	}

	summary.EndedAt = time.Now().UTC()

	m.logger.WithFields(map[string]interface{}{
		"kind":    string(kind),
		"checked": summary.Checked,
		"pruned":  summary.Pruned,
		"failed":  summary.Failed,
	}).Info("Monitor pass completed")

	return summary, nil
}

func (m *Monitor) evaluateWithRetry(ctx context.Context, evaluator contracts.Evaluator, symbol contracts.Symbol) (contracts.ScanResult, error) {
	delay := m.scanCfg.RetryDelay
	var lastErr error

	for attempt := 0; attempt <= m.scanCfg.MaxRetries; attempt++ {
		evalCtx, cancel := context.WithTimeout(ctx, m.scanCfg.EvalTimeout)
		result, err := evaluator.Evaluate(evalCtx, symbol)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		var evalErr *contracts.EvaluationError
		if errors.As(err, &evalErr) && !evalErr.Retryable() {
			return contracts.ScanResult{}, err
		}
		if attempt == m.scanCfg.MaxRetries {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return contracts.ScanResult{}, ctx.Err()
		}
		delay *= 2
	}

	return contracts.ScanResult{}, lastErr
}

// Retain forces a symbol into the retained set with manual status. The
// evaluator, when given, supplies a current score best-effort; a failed
// evaluation still retains.
func (m *Monitor) Retain(ctx context.Context, symbol contracts.Symbol, kind contracts.CriteriaKind, evaluator contracts.Evaluator) (*contracts.RetentionRecord, error) {
	// Unknown symbols are rejected; only universe members can be retained.
	if _, err := m.universe.PositionOf(ctx, symbol); err != nil {
		return nil, fmt.Errorf("retain %s: %w", symbol, err)
	}

	now := time.Now().UTC()

	result := contracts.ScanResult{
		Symbol:      symbol,
		Kind:        kind,
		Passed:      false,
		EvaluatedAt: now,
		Detail:      map[string]string{"manual": "true"},
	}

	if evaluator != nil {
		scored, err := evaluator.Evaluate(ctx, symbol)
		if err != nil {
			m.logger.WithFields(map[string]interface{}{
				"symbol": symbol.String(),
				"error":  err.Error(),
			}).Warn("Manual retain: evaluation failed, retaining unscored")
		} else {
			scored.Detail = withManualFlag(scored.Detail)
			scored.EvaluatedAt = now
			result = scored
		}
	}

	existing, err := m.store.GetRecord(ctx, symbol, kind)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	record := &contracts.RetentionRecord{
		Symbol:          symbol,
		Kind:            kind,
		Current:         result,
		FirstRetainedAt: now,
		LastEvaluatedAt: now,
		Status:          contracts.StatusManual,
	}
	if existing != nil && existing.Status == contracts.StatusActive {
		record.FirstRetainedAt = existing.FirstRetainedAt
	}

	if err := m.store.UpsertRecord(ctx, record); err != nil {
		return nil, err
	}

	m.logger.WithFields(map[string]interface{}{
		"symbol": symbol.String(),
		"kind":   string(kind),
	}).Info("Manually retained symbol")

	return record, nil
}

// Unretain removes a manually or automatically retained symbol by pruning
// its record. The record stays queryable for audit.
func (m *Monitor) Unretain(ctx context.Context, symbol contracts.Symbol, kind contracts.CriteriaKind) error {
	existing, err := m.store.GetRecord(ctx, symbol, kind)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("%w: %s (%s)", contracts.ErrSymbolNotFound, symbol, kind)
	}
	if existing.Status == contracts.StatusPruned {
		return nil
	}

	now := time.Now().UTC()
	next := *existing
	next.Status = contracts.StatusPruned
	next.PrunedAt = &now
	next.LastEvaluatedAt = now
	next.Current.EvaluatedAt = now // supersedes the stored result

	if err := m.store.UpsertRecord(ctx, &next); err != nil {
		return err
	}

	m.logger.WithFields(map[string]interface{}{
		"symbol": symbol.String(),
		"kind":   string(kind),
	}).Info("Unretained symbol")

	return nil
}

func withManualFlag(detail map[string]string) map[string]string {
	if detail == nil {
		detail = make(map[string]string, 1)
	}
	detail["manual"] = "true"
	return detail
}
