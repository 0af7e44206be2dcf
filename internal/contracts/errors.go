package contracts

import (
	"errors"
	"fmt"
)

// Run-level errors. These abort the run and surface as a nonzero exit.
var (
	// ErrUniverseUnavailable: the symbol source could not be read. Fatal for
	// a scan run, since resumption depends on a stable ordering; no partial
	// universe is acceptable.
	ErrUniverseUnavailable = errors.New("universe unavailable")

	// ErrSymbolNotFound: the requested symbol is not in the universe.
	ErrSymbolNotFound = errors.New("symbol not in universe")

	// ErrStoreWrite: a retention store write failed. The engine halts rather
	// than advance the cursor past an unwritten record.
	ErrStoreWrite = errors.New("retention store write failed")

	// ErrLockContention: scan and monitor overlap on the same criteria kind.
	// Retryable; the caller may wait and try again.
	ErrLockContention = errors.New("scan lock held by another run")

	// ErrInterrupted: the run was stopped before reaching the end of the
	// universe. The cursor is left intact for resumption.
	ErrInterrupted = errors.New("run interrupted")
)

// EvaluationCause distinguishes per-symbol evaluation failures.
type EvaluationCause string

const (
	// CauseDataUnavailable: a transient upstream failure, retry-eligible.
	CauseDataUnavailable EvaluationCause = "data_unavailable"
	// CauseInvalidInput: the symbol cannot be evaluated, not retryable.
	CauseInvalidInput EvaluationCause = "invalid_input"
)

// EvaluationError wraps a per-symbol evaluator failure. These never abort a
// run; the engine retries or skips and counts them in the run summary.
type EvaluationError struct {
	Symbol Symbol
	Kind   CriteriaKind
	Cause  EvaluationCause
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s (%s): %s: %v", e.Symbol, e.Kind, e.Cause, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth retrying.
func (e *EvaluationError) Retryable() bool {
	return e.Cause == CauseDataUnavailable
}

// NewDataUnavailable builds a retryable evaluation error.
func NewDataUnavailable(symbol Symbol, kind CriteriaKind, err error) *EvaluationError {
	return &EvaluationError{Symbol: symbol, Kind: kind, Cause: CauseDataUnavailable, Err: err}
}

// NewInvalidInput builds a non-retryable evaluation error.
func NewInvalidInput(symbol Symbol, kind CriteriaKind, err error) *EvaluationError {
	return &EvaluationError{Symbol: symbol, Kind: kind, Cause: CauseInvalidInput, Err: err}
}
