package contracts

import (
	"context"
	"time"
)

// UniverseProvider supplies the ordered set of scannable symbols. The order
// must be deterministic between calls within a run; providers backed by a
// changing source snapshot the list at run start. List returns
// ErrUniverseUnavailable when the backing source cannot be read.
type UniverseProvider interface {
	List(ctx context.Context) ([]Symbol, error)

	// PositionOf returns the index of symbol in List order, or
	// ErrSymbolNotFound.
	PositionOf(ctx context.Context, symbol Symbol) (int, error)
}

// Evaluator is the single capability shared by the momentum and fundamental
// pipelines. Evaluate must not mutate shared state and must be safe to
// retry; failures are reported as *EvaluationError.
type Evaluator interface {
	Kind() CriteriaKind
	Evaluate(ctx context.Context, symbol Symbol) (ScanResult, error)
}

// RetentionStore owns RetentionRecord, ScanCursor and RunSummary
// persistence. Upserts are atomic per (symbol, kind) key, last-write-wins on
// EvaluatedAt. The engine writes the record before advancing the cursor, so
// resuming from the last saved cursor never loses a result.
type RetentionStore interface {
	GetRecord(ctx context.Context, symbol Symbol, kind CriteriaKind) (*RetentionRecord, error)
	UpsertRecord(ctx context.Context, record *RetentionRecord) error
	ListActive(ctx context.Context, kind CriteriaKind) ([]*RetentionRecord, error)
	ListPrunedSince(ctx context.Context, since time.Time) ([]*RetentionRecord, error)

	SaveCursor(ctx context.Context, cursor *ScanCursor) error
	LoadCursor(ctx context.Context, kind CriteriaKind) (*ScanCursor, error)
	ClearCursor(ctx context.Context, kind CriteriaKind) error

	AppendRunSummary(ctx context.Context, summary *RunSummary) error
	GetRunSummaries(ctx context.Context, kind CriteriaKind, from, to time.Time) ([]*RunSummary, error)
}

// Locker guards a criteria kind's active set so a monitor prune cannot race
// a scan's fresh retain of the same symbol. Acquire returns
// ErrLockContention when the lease is already held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Price is one daily OHLCV bar.
type Price struct {
	Symbol Symbol    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSource provides recent daily bars for a symbol, most recent first.
type PriceSource interface {
	GetDailyBars(ctx context.Context, symbol Symbol, days int) ([]Price, error)
}

// Fundamentals is the per-symbol fundamental snapshot consumed by the
// fundamental evaluator.
type Fundamentals struct {
	Symbol      Symbol    `json:"symbol"`
	ROE         float64   `json:"roe"`          // percent
	DebtRatio   float64   `json:"debt_ratio"`   // percent
	GrossMargin float64   `json:"gross_margin"` // percent
	FScore      int       `json:"f_score"`      // Piotroski 0-9
	AsOf        time.Time `json:"as_of"`
}

// FundamentalSource provides the latest fundamental snapshot for a symbol.
type FundamentalSource interface {
	GetFundamentals(ctx context.Context, symbol Symbol) (*Fundamentals, error)
}
