// Package sync refreshes the local market-data mirror: the universe
// snapshot and the daily price bars scans read. Running it off-hours keeps
// scan runs from paying the chart API's latency and rate budget.
package sync

import (
	"context"
	"time"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/logger"
)

// SnapshotStore persists universe snapshots (universe.Repository in
// production).
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, date time.Time, symbols []contracts.Symbol) error
}

// BarStore persists daily bars (marketdata.Repository in production).
type BarStore interface {
	SaveBars(ctx context.Context, bars []contracts.Price) error
}

// Syncer mirrors external market data into Postgres.
type Syncer struct {
	universe  contracts.UniverseProvider
	uniRepo   SnapshotStore
	prices    contracts.PriceSource
	priceRepo BarStore
	store     contracts.RetentionStore
	lookback  int
	logger    *logger.Logger
}

// Summary reports one sync pass.
type Summary struct {
	UniverseSize  int
	SymbolsSynced int
	SymbolsFailed int
	StartedAt     time.Time
	EndedAt       time.Time
}

// New creates a syncer
func New(uni contracts.UniverseProvider, uniRepo SnapshotStore, prices contracts.PriceSource, priceRepo BarStore, store contracts.RetentionStore, lookbackDays int, log *logger.Logger) *Syncer {
	return &Syncer{
		universe:  uni,
		uniRepo:   uniRepo,
		prices:    prices,
		priceRepo: priceRepo,
		store:     store,
		lookback:  lookbackDays,
		logger:    log,
	}
}

// Run snapshots the universe and mirrors price bars. With full set it syncs
// every universe symbol; otherwise only the currently retained set, which is
// what the monitor needs fresh.
func (s *Syncer) Run(ctx context.Context, full bool) (*Summary, error) {
	summary := &Summary{StartedAt: time.Now().UTC()}

	symbols, err := s.universe.List(ctx)
	if err != nil {
		return nil, err
	}
	summary.UniverseSize = len(symbols)

	if err := s.uniRepo.SaveSnapshot(ctx, summary.StartedAt, symbols); err != nil {
		return nil, err
	}

	targets := symbols
	if !full {
		targets, err = s.retainedSymbols(ctx)
		if err != nil {
			return nil, err
		}
	}

	for _, symbol := range targets {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		bars, err := s.prices.GetDailyBars(ctx, symbol, s.lookback)
		if err != nil {
			summary.SymbolsFailed++
			s.logger.WithFields(map[string]interface{}{
				"symbol": symbol.String(),
				"error":  err.Error(),
			}).Warn("Price sync failed for symbol")
			continue
		}

		if err := s.priceRepo.SaveBars(ctx, bars); err != nil {
			summary.SymbolsFailed++
			s.logger.WithFields(map[string]interface{}{
				"symbol": symbol.String(),
				"error":  err.Error(),
			}).Warn("Price store failed for symbol")
			continue
		}

		summary.SymbolsSynced++
	}

	summary.EndedAt = time.Now().UTC()

	s.logger.WithFields(map[string]interface{}{
		"universe": summary.UniverseSize,
		"synced":   summary.SymbolsSynced,
		"failed":   summary.SymbolsFailed,
	}).Info("Sync completed")

	return summary, nil
}

// retainedSymbols unions the active sets of every pipeline, deduplicated in
// universe order
func (s *Syncer) retainedSymbols(ctx context.Context) ([]contracts.Symbol, error) {
	seen := make(map[contracts.Symbol]struct{})
	var out []contracts.Symbol

	for _, kind := range contracts.AllCriteriaKinds() {
		records, err := s.store.ListActive(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if _, dup := seen[rec.Symbol]; dup {
				continue
			}
			seen[rec.Symbol] = struct{}{}
			out = append(out, rec.Symbol)
		}
	}

	return out, nil
}
