// Package scan walks the symbol universe through an evaluation pipeline and
// retains what passes. Runs are resumable: every retained result is written
// before the cursor moves past it, so a crash re-evaluates at most the
// in-flight window and never skips a symbol.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/config"
	"github.com/wonny/scout/backend/pkg/logger"
)

// Engine drives one evaluation pipeline across the universe.
type Engine struct {
	universe contracts.UniverseProvider
	store    contracts.RetentionStore
	locker   contracts.Locker
	config   config.ScanConfig
	logger   *logger.Logger
}

// Options tunes a single run.
type Options struct {
	// StartFrom overrides any persisted cursor. A symbol not in the universe
	// logs a warning and the run starts from the beginning.
	StartFrom contracts.Symbol

	// Fresh discards the persisted cursor and starts from the beginning.
	Fresh bool
}

// New creates a scan engine
func New(universe contracts.UniverseProvider, store contracts.RetentionStore, locker contracts.Locker, cfg config.ScanConfig, log *logger.Logger) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{
		universe: universe,
		store:    store,
		locker:   locker,
		config:   cfg,
		logger:   log,
	}
}

type job struct {
	idx    int
	symbol contracts.Symbol
}

type outcome struct {
	idx        int
	passed     bool
	evalFailed bool
	err        error // fatal: halts the run
}

// Run scans the universe through evaluator. On clean completion it appends a
// run summary and clears the cursor; on interruption it leaves the cursor at
// the last contiguous completed symbol and returns ErrInterrupted.
func (e *Engine) Run(ctx context.Context, evaluator contracts.Evaluator, opts Options) (*contracts.RunSummary, error) {
	kind := evaluator.Kind()

	release, err := e.locker.Acquire(ctx, "scan:"+string(kind), e.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire scan lease: %w", err)
	}
	defer release()

	symbols, err := e.universe.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list universe: %w", err)
	}

	startIdx, runStartedAt, err := e.startPosition(ctx, kind, opts)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"kind":     string(kind),
		"universe": len(symbols),
		"start":    startIdx,
		"workers":  e.config.Workers,
	}).Info("Scan run starting")

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	// A stop cancels workerCtx, which only gates *starting* work. In-flight
	// evaluations and their record/cursor writes run on persistCtx, which
	// survives the cancellation, so everything already started lands in the
	// store before the run winds down.
	persistCtx := context.WithoutCancel(ctx)

	jobs := make(chan job)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < e.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- e.process(workerCtx, persistCtx, evaluator, j)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := startIdx; i < len(symbols); i++ {
			select {
			case jobs <- job{idx: i, symbol: symbols[i]}:
			case <-workerCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &contracts.RunSummary{Kind: kind, StartedAt: runStartedAt}
	tracker := newProgress(startIdx)
	savedFrontier := startIdx
	var fatal error

	for oc := range results {
		if fatal != nil {
			continue // draining after halt
		}
		if oc.err != nil {
			fatal = oc.err
			cancelWorkers()
			continue
		}

		summary.SymbolsAttempted++
		if oc.passed {
			summary.SymbolsPassed++
		}
		if oc.evalFailed {
			summary.SymbolsFailed++
		}

		frontier := tracker.mark(oc.idx)
		if frontier > savedFrontier {
			cursor := &contracts.ScanCursor{
				Kind:         kind,
				LastSymbol:   symbols[frontier-1],
				RunStartedAt: runStartedAt,
			}
			if err := e.store.SaveCursor(persistCtx, cursor); err != nil {
				fatal = err
				cancelWorkers()
				continue
			}
			savedFrontier = frontier
		}
	}

	if fatal == nil && ctx.Err() != nil && tracker.frontier() < len(symbols) {
		fatal = contracts.ErrInterrupted
	}

	if fatal != nil {
		if errors.Is(fatal, contracts.ErrInterrupted) {
			e.logger.WithFields(map[string]interface{}{
				"kind":      string(kind),
				"completed": tracker.frontier(),
				"universe":  len(symbols),
			}).Warn("Scan run interrupted, cursor saved for resumption")
			return nil, contracts.ErrInterrupted
		}
		return nil, fatal
	}

	summary.EndedAt = time.Now().UTC()
	if err := e.store.AppendRunSummary(persistCtx, summary); err != nil {
		return nil, fmt.Errorf("append run summary: %w", err)
	}
	if err := e.store.ClearCursor(persistCtx, kind); err != nil {
		return nil, fmt.Errorf("clear cursor: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"kind":      string(kind),
		"attempted": summary.SymbolsAttempted,
		"passed":    summary.SymbolsPassed,
		"failed":    summary.SymbolsFailed,
		"duration":  summary.Duration().String(),
	}).Info("Scan run completed")

	return summary, nil
}

// startPosition resolves where the run begins: an explicit StartFrom beats
// the persisted cursor, which beats the beginning of the universe.
func (e *Engine) startPosition(ctx context.Context, kind contracts.CriteriaKind, opts Options) (int, time.Time, error) {
	now := time.Now().UTC()

	if opts.Fresh {
		if err := e.store.ClearCursor(ctx, kind); err != nil {
			return 0, time.Time{}, fmt.Errorf("clear cursor: %w", err)
		}
		return 0, now, nil
	}

	if !opts.StartFrom.IsZero() {
		pos, err := e.universe.PositionOf(ctx, opts.StartFrom)
		if errors.Is(err, contracts.ErrSymbolNotFound) {
			e.logger.WithField("symbol", opts.StartFrom.String()).
				Warn("Start symbol not in universe, scanning from the beginning")
			return 0, now, nil
		}
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("resolve start symbol: %w", err)
		}
		return pos, now, nil
	}

	cursor, err := e.store.LoadCursor(ctx, kind)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("load cursor: %w", err)
	}
	if cursor == nil {
		return 0, now, nil
	}

	pos, err := e.universe.PositionOf(ctx, cursor.LastSymbol)
	if errors.Is(err, contracts.ErrSymbolNotFound) {
		// Universe changed under the cursor; a partial resume could skip
		// symbols, so restart.
		e.logger.WithField("symbol", cursor.LastSymbol.String()).
			Warn("Cursor symbol no longer in universe, scanning from the beginning")
		return 0, now, nil
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("resolve cursor symbol: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"kind":        string(kind),
		"last_symbol": cursor.LastSymbol.String(),
	}).Info("Resuming scan from saved cursor")

	return pos + 1, cursor.RunStartedAt, nil
}

// process evaluates one symbol and writes its retention record. The record
// write happens here, before the outcome reaches the committer, which is
// what keeps the record-before-cursor ordering. ctx gates starting and
// retry waits; an evaluation already under way finishes on persistCtx even
// when ctx is cancelled, and its result is written.
func (e *Engine) process(ctx, persistCtx context.Context, evaluator contracts.Evaluator, j job) outcome {
	if ctx.Err() != nil {
		return outcome{idx: j.idx, err: contracts.ErrInterrupted}
	}

	result, err := e.evaluateWithRetry(ctx, persistCtx, evaluator, j.symbol)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{idx: j.idx, err: contracts.ErrInterrupted}
		}
		e.logger.WithFields(map[string]interface{}{
			"symbol": j.symbol.String(),
			"error":  err.Error(),
		}).Warn("Symbol evaluation failed, skipping")
		return outcome{idx: j.idx, evalFailed: true}
	}

	if err := e.applyResult(persistCtx, result); err != nil {
		return outcome{idx: j.idx, err: err}
	}

	return outcome{idx: j.idx, passed: result.Passed}
}

// evaluateWithRetry retries transient failures with exponential backoff.
// Invalid-input failures are never retried. Attempts run against evalBase
// with only the per-attempt timeout, so a run cancellation never aborts an
// attempt mid-flight; it surfaces in the backoff wait between attempts.
func (e *Engine) evaluateWithRetry(ctx, evalBase context.Context, evaluator contracts.Evaluator, symbol contracts.Symbol) (contracts.ScanResult, error) {
	delay := e.config.RetryDelay
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		evalCtx, cancel := context.WithTimeout(evalBase, e.config.EvalTimeout)
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

		if attempt == e.config.MaxRetries {
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

// applyResult folds the result into the retention store
func (e *Engine) applyResult(ctx context.Context, result contracts.ScanResult) error {
	existing, err := e.store.GetRecord(ctx, result.Symbol, result.Kind)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}

	record := Transition(existing, result)
	if record == nil {
		return nil
	}
	return e.store.UpsertRecord(ctx, record)
}

// Transition computes the next retention record for a fresh result. It
// returns nil when no record should exist (a failing symbol that was never
// retained). Manual records keep their status whatever the result says;
// operators prune those explicitly.
func Transition(existing *contracts.RetentionRecord, result contracts.ScanResult) *contracts.RetentionRecord {
	if existing == nil {
		if !result.Passed {
			return nil
		}
		return &contracts.RetentionRecord{
			Symbol:          result.Symbol,
			Kind:            result.Kind,
			Current:         result,
			FirstRetainedAt: result.EvaluatedAt,
			LastEvaluatedAt: result.EvaluatedAt,
			Status:          contracts.StatusActive,
		}
	}

	next := *existing
	next.Current = result
	next.LastEvaluatedAt = result.EvaluatedAt

	switch {
	case existing.Status == contracts.StatusManual:
		// Re-scored for drift visibility, never auto-pruned

	case result.Passed:
		next.Status = contracts.StatusActive
		next.PrunedAt = nil
		if existing.Status == contracts.StatusPruned {
			// A new retention spell, not a continuation of the old one
			next.FirstRetainedAt = result.EvaluatedAt
		}

	case existing.Status == contracts.StatusActive:
		next.Status = contracts.StatusPruned
		prunedAt := result.EvaluatedAt
		next.PrunedAt = &prunedAt
	}

	return &next
}
