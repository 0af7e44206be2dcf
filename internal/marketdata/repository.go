package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/scout/backend/internal/contracts"
)

// Repository persists daily bars fetched during sync so later scans can read
// them without re-hitting the chart API.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new price repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveBars upserts a batch of daily bars
func (r *Repository) SaveBars(ctx context.Context, bars []contracts.Price) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO scout.daily_prices (symbol, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open_price  = EXCLUDED.open_price,
			high_price  = EXCLUDED.high_price,
			low_price   = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume      = EXCLUDED.volume
	`

	for _, bar := range bars {
		_, err := r.pool.Exec(ctx, query,
			bar.Symbol.String(), bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		)
		if err != nil {
			return fmt.Errorf("save bar %s/%s: %w", bar.Symbol, bar.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

// GetRecentBars returns up to days recent bars for a symbol, most recent
// first
func (r *Repository) GetRecentBars(ctx context.Context, symbol contracts.Symbol, days int) ([]contracts.Price, error) {
	query := `
		SELECT symbol, trade_date, open_price, high_price, low_price, close_price, volume
		FROM scout.daily_prices
		WHERE symbol = $1
		ORDER BY trade_date DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, symbol.String(), days)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []contracts.Price
	for rows.Next() {
		var bar contracts.Price
		var sym string
		if err := rows.Scan(&sym, &bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bar.Symbol = contracts.Symbol(sym)
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// LatestTradeDate returns the most recent trade date stored for a symbol, or
// the zero time when none exists
func (r *Repository) LatestTradeDate(ctx context.Context, symbol contracts.Symbol) (time.Time, error) {
	query := `
		SELECT COALESCE(MAX(trade_date), 'epoch'::timestamptz)
		FROM scout.daily_prices
		WHERE symbol = $1
	`

	var latest time.Time
	if err := r.pool.QueryRow(ctx, query, symbol.String()).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("query latest trade date: %w", err)
	}
	if latest.Unix() == 0 {
		return time.Time{}, nil
	}
	return latest, nil
}
