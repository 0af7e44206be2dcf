package universe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/scout/backend/internal/contracts"
)

// Repository persists universe snapshots so a scan resumed on another day
// (or host) can replay the exact symbol set it started with.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveSnapshot stores the symbol set for a date, replacing any snapshot
// already stored for that date
func (r *Repository) SaveSnapshot(ctx context.Context, date time.Time, symbols []contracts.Symbol) error {
	codes := make([]string, len(symbols))
	for i, s := range symbols {
		codes[i] = s.String()
	}

	query := `
		INSERT INTO scout.universe_snapshots (snapshot_date, symbols, total_count, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (snapshot_date) DO UPDATE SET
			symbols     = EXCLUDED.symbols,
			total_count = EXCLUDED.total_count,
			created_at  = NOW()
	`

	_, err := r.db.Exec(ctx, query, date, codes, len(codes))
	if err != nil {
		return fmt.Errorf("insert universe snapshot: %w", err)
	}

	return nil
}

// GetLatest returns the most recent snapshot, or ErrUniverseUnavailable when
// none has been stored yet
func (r *Repository) GetLatest(ctx context.Context) ([]contracts.Symbol, time.Time, error) {
	query := `
		SELECT snapshot_date, symbols
		FROM scout.universe_snapshots
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	var date time.Time
	var codes []string
	err := r.db.QueryRow(ctx, query).Scan(&date, &codes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("%w: no snapshot stored", contracts.ErrUniverseUnavailable)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query latest snapshot: %w", err)
	}

	symbols := make([]contracts.Symbol, len(codes))
	for i, c := range codes {
		symbols[i] = contracts.Symbol(c)
	}
	return symbols, date, nil
}

// SnapshotSource is a Source that reads the latest stored snapshot. It backs
// offline re-scans where hitting the exchange listing page is undesirable.
type SnapshotSource struct {
	repo *Repository
}

// NewSnapshotSource creates a Source over stored snapshots
func NewSnapshotSource(repo *Repository) *SnapshotSource {
	return &SnapshotSource{repo: repo}
}

// Fetch returns the latest snapshot's symbols
func (s *SnapshotSource) Fetch(ctx context.Context) ([]string, error) {
	symbols, _, err := s.repo.GetLatest(ctx)
	if err != nil {
		return nil, err
	}

	codes := make([]string, len(symbols))
	for i, sym := range symbols {
		codes[i] = sym.String()
	}
	return codes, nil
}
