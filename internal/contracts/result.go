package contracts

import "time"

// CriteriaKind selects which evaluation pipeline produced a result.
type CriteriaKind string

const (
	CriteriaMomentum    CriteriaKind = "momentum"
	CriteriaFundamental CriteriaKind = "fundamental"
)

// AllCriteriaKinds lists the pipelines in their canonical order.
func AllCriteriaKinds() []CriteriaKind {
	return []CriteriaKind{CriteriaMomentum, CriteriaFundamental}
}

// Valid reports whether the kind names a known pipeline.
func (k CriteriaKind) Valid() bool {
	return k == CriteriaMomentum || k == CriteriaFundamental
}

// ScanResult is a single evaluator verdict for one symbol. Results are
// immutable once created; a later result for the same (symbol, kind)
// supersedes an earlier one by EvaluatedAt, it never mutates it.
type ScanResult struct {
	Symbol      Symbol            `json:"symbol"`
	Kind        CriteriaKind      `json:"kind"`
	Passed      bool              `json:"passed"`
	Score       float64           `json:"score"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
	Detail      map[string]string `json:"detail,omitempty"`
}

// RecordStatus is the lifecycle state of a retention record.
type RecordStatus string

const (
	// StatusActive: the most recent scan for this (symbol, kind) passed.
	StatusActive RecordStatus = "active"
	// StatusPruned: a previously retained symbol failed re-evaluation.
	// Pruned records stay queryable for audit, they are never deleted.
	StatusPruned RecordStatus = "pruned"
	// StatusManual: an operator forced retention. Manual records are
	// re-scored by the monitor but never auto-pruned.
	StatusManual RecordStatus = "manual"
)

// RetentionRecord is the persisted retention decision for one
// (symbol, criteria kind) pair. There is at most one record per pair.
type RetentionRecord struct {
	Symbol          Symbol       `json:"symbol"`
	Kind            CriteriaKind `json:"kind"`
	Current         ScanResult   `json:"current"`
	FirstRetainedAt time.Time    `json:"first_retained_at"`
	LastEvaluatedAt time.Time    `json:"last_evaluated_at"`
	Status          RecordStatus `json:"status"`
	PrunedAt        *time.Time   `json:"pruned_at,omitempty"`
}

// IsActive reports whether the record counts toward the retained set.
func (r *RetentionRecord) IsActive() bool {
	return r.Status == StatusActive || r.Status == StatusManual
}

// ScanCursor marks scan progress through the universe so an interrupted run
// can resume after LastSymbol without re-processing or skipping symbols.
// At most one live cursor exists per criteria kind.
type ScanCursor struct {
	Kind         CriteriaKind `json:"kind"`
	LastSymbol   Symbol       `json:"last_symbol"`
	RunStartedAt time.Time    `json:"run_started_at"`
}

// RunSummary is the append-only record of one completed scan run.
type RunSummary struct {
	Kind             CriteriaKind `json:"kind"`
	SymbolsAttempted int          `json:"symbols_attempted"`
	SymbolsPassed    int          `json:"symbols_passed"`
	SymbolsFailed    int          `json:"symbols_failed_to_evaluate"`
	StartedAt        time.Time    `json:"started_at"`
	EndedAt          time.Time    `json:"ended_at"`
}

// Duration returns the wall-clock length of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}
