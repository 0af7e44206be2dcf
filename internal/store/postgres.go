package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/scout/backend/internal/contracts"
)

// Postgres is the durable RetentionStore. One row per (symbol, kind) in
// scout.retention_records, one live cursor row per kind in
// scout.scan_cursors, and an append-only scout.run_summaries log.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed retention store
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// GetRecord returns the record for (symbol, kind), or nil when absent
func (s *Postgres) GetRecord(ctx context.Context, symbol contracts.Symbol, kind contracts.CriteriaKind) (*contracts.RetentionRecord, error) {
	query := `
		SELECT symbol, kind, passed, score, evaluated_at, detail,
		       first_retained_at, last_evaluated_at, status, pruned_at
		FROM scout.retention_records
		WHERE symbol = $1 AND kind = $2
	`

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, symbol.String(), string(kind)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	return rec, nil
}

// UpsertRecord stores the record, atomic per key, last-write-wins on
// evaluated_at
func (s *Postgres) UpsertRecord(ctx context.Context, record *contracts.RetentionRecord) error {
	detailJSON, err := json.Marshal(record.Current.Detail)
	if err != nil {
		return fmt.Errorf("marshal detail: %w", err)
	}

	query := `
		INSERT INTO scout.retention_records (
			symbol, kind, passed, score, evaluated_at, detail,
			first_retained_at, last_evaluated_at, status, pruned_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (symbol, kind) DO UPDATE SET
			passed            = EXCLUDED.passed,
			score             = EXCLUDED.score,
			evaluated_at      = EXCLUDED.evaluated_at,
			detail            = EXCLUDED.detail,
			first_retained_at = EXCLUDED.first_retained_at,
			last_evaluated_at = EXCLUDED.last_evaluated_at,
			status            = EXCLUDED.status,
			pruned_at         = EXCLUDED.pruned_at
		WHERE scout.retention_records.evaluated_at <= EXCLUDED.evaluated_at
	`

	_, err = s.pool.Exec(ctx, query,
		record.Symbol.String(),
		string(record.Kind),
		record.Current.Passed,
		record.Current.Score,
		record.Current.EvaluatedAt,
		detailJSON,
		record.FirstRetainedAt,
		record.LastEvaluatedAt,
		string(record.Status),
		record.PrunedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert record: %v", contracts.ErrStoreWrite, err)
	}

	return nil
}

// ListActive returns active and manual records for a kind, symbol-ordered
func (s *Postgres) ListActive(ctx context.Context, kind contracts.CriteriaKind) ([]*contracts.RetentionRecord, error) {
	query := `
		SELECT symbol, kind, passed, score, evaluated_at, detail,
		       first_retained_at, last_evaluated_at, status, pruned_at
		FROM scout.retention_records
		WHERE kind = $1 AND status IN ('active', 'manual')
		ORDER BY symbol
	`

	rows, err := s.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query active records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListPrunedSince returns records pruned at or after since, symbol-ordered
func (s *Postgres) ListPrunedSince(ctx context.Context, since time.Time) ([]*contracts.RetentionRecord, error) {
	query := `
		SELECT symbol, kind, passed, score, evaluated_at, detail,
		       first_retained_at, last_evaluated_at, status, pruned_at
		FROM scout.retention_records
		WHERE status = 'pruned' AND pruned_at >= $1
		ORDER BY symbol
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query pruned records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// SaveCursor persists the live cursor for the cursor's kind
func (s *Postgres) SaveCursor(ctx context.Context, cursor *contracts.ScanCursor) error {
	query := `
		INSERT INTO scout.scan_cursors (kind, last_symbol, run_started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind) DO UPDATE SET
			last_symbol    = EXCLUDED.last_symbol,
			run_started_at = EXCLUDED.run_started_at
	`

	_, err := s.pool.Exec(ctx, query,
		string(cursor.Kind),
		cursor.LastSymbol.String(),
		cursor.RunStartedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: save cursor: %v", contracts.ErrStoreWrite, err)
	}

	return nil
}

// LoadCursor returns the live cursor for a kind, or nil when absent
func (s *Postgres) LoadCursor(ctx context.Context, kind contracts.CriteriaKind) (*contracts.ScanCursor, error) {
	query := `
		SELECT kind, last_symbol, run_started_at
		FROM scout.scan_cursors
		WHERE kind = $1
	`

	var cursor contracts.ScanCursor
	var kindStr, lastSymbol string
	err := s.pool.QueryRow(ctx, query, string(kind)).Scan(&kindStr, &lastSymbol, &cursor.RunStartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cursor: %w", err)
	}

	cursor.Kind = contracts.CriteriaKind(kindStr)
	cursor.LastSymbol = contracts.Symbol(lastSymbol)
	return &cursor, nil
}

// ClearCursor deletes the live cursor for a kind
func (s *Postgres) ClearCursor(ctx context.Context, kind contracts.CriteriaKind) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM scout.scan_cursors WHERE kind = $1`, string(kind))
	if err != nil {
		return fmt.Errorf("%w: clear cursor: %v", contracts.ErrStoreWrite, err)
	}
	return nil
}

// AppendRunSummary appends to the run log
func (s *Postgres) AppendRunSummary(ctx context.Context, summary *contracts.RunSummary) error {
	query := `
		INSERT INTO scout.run_summaries (
			kind, symbols_attempted, symbols_passed, symbols_failed,
			started_at, ended_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		string(summary.Kind),
		summary.SymbolsAttempted,
		summary.SymbolsPassed,
		summary.SymbolsFailed,
		summary.StartedAt,
		summary.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: append run summary: %v", contracts.ErrStoreWrite, err)
	}

	return nil
}

// GetRunSummaries returns summaries for a kind with started_at in [from, to)
func (s *Postgres) GetRunSummaries(ctx context.Context, kind contracts.CriteriaKind, from, to time.Time) ([]*contracts.RunSummary, error) {
	query := `
		SELECT kind, symbols_attempted, symbols_passed, symbols_failed,
		       started_at, ended_at
		FROM scout.run_summaries
		WHERE kind = $1 AND started_at >= $2 AND started_at < $3
		ORDER BY started_at
	`

	rows, err := s.pool.Query(ctx, query, string(kind), from, to)
	if err != nil {
		return nil, fmt.Errorf("query run summaries: %w", err)
	}
	defer rows.Close()

	var out []*contracts.RunSummary
	for rows.Next() {
		var summary contracts.RunSummary
		var kindStr string
		err := rows.Scan(
			&kindStr,
			&summary.SymbolsAttempted,
			&summary.SymbolsPassed,
			&summary.SymbolsFailed,
			&summary.StartedAt,
			&summary.EndedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		summary.Kind = contracts.CriteriaKind(kindStr)
		out = append(out, &summary)
	}

	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*contracts.RetentionRecord, error) {
	var rec contracts.RetentionRecord
	var symbol, kind, status string
	var detailJSON []byte

	err := row.Scan(
		&symbol,
		&kind,
		&rec.Current.Passed,
		&rec.Current.Score,
		&rec.Current.EvaluatedAt,
		&detailJSON,
		&rec.FirstRetainedAt,
		&rec.LastEvaluatedAt,
		&status,
		&rec.PrunedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Symbol = contracts.Symbol(symbol)
	rec.Kind = contracts.CriteriaKind(kind)
	rec.Status = contracts.RecordStatus(status)
	rec.Current.Symbol = rec.Symbol
	rec.Current.Kind = rec.Kind

	if len(detailJSON) > 0 {
		if err := json.Unmarshal(detailJSON, &rec.Current.Detail); err != nil {
			return nil, fmt.Errorf("unmarshal detail: %w", err)
		}
	}

	return &rec, nil
}

func collectRecords(rows pgx.Rows) ([]*contracts.RetentionRecord, error) {
	var out []*contracts.RetentionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
