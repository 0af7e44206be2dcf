package marketdata

import (
	"context"
	"time"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/logger"
)

// BarReader reads mirrored daily bars.
type BarReader interface {
	GetRecentBars(ctx context.Context, symbol contracts.Symbol, days int) ([]contracts.Price, error)
	LatestTradeDate(ctx context.Context, symbol contracts.Symbol) (time.Time, error)
}

// MirrorSource serves daily bars from the local mirror when it is fresh
// enough, falling back to the chart API. After a sync, scans read from
// Postgres instead of paying API latency for every symbol.
type MirrorSource struct {
	local  BarReader
	remote contracts.PriceSource
	maxAge time.Duration
	logger *logger.Logger
}

// NewMirrorSource creates a mirror-first price source. maxAge bounds how
// stale the mirrored data may be before the remote source is consulted.
func NewMirrorSource(local BarReader, remote contracts.PriceSource, maxAge time.Duration, log *logger.Logger) *MirrorSource {
	return &MirrorSource{
		local:  local,
		remote: remote,
		maxAge: maxAge,
		logger: log,
	}
}

// GetDailyBars returns up to days recent bars, most recent first. The mirror
// answers only when it holds a full, fresh window for the symbol; anything
// less goes to the remote source.
func (m *MirrorSource) GetDailyBars(ctx context.Context, symbol contracts.Symbol, days int) ([]contracts.Price, error) {
	latest, err := m.local.LatestTradeDate(ctx, symbol)
	if err != nil {
		m.logger.WithFields(map[string]interface{}{
			"symbol": symbol.String(),
			"error":  err.Error(),
		}).Debug("Mirror unreadable, using remote source")
		return m.remote.GetDailyBars(ctx, symbol, days)
	}

	if !latest.IsZero() && time.Since(latest) <= m.maxAge {
		bars, err := m.local.GetRecentBars(ctx, symbol, days)
		if err == nil && len(bars) >= days {
			return bars, nil
		}
		// Short history or read failure: the remote has the full window
	}

	return m.remote.GetDailyBars(ctx, symbol, days)
}
