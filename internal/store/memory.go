package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/scout/backend/internal/contracts"
)

// Memory is an in-process RetentionStore. It backs unit tests and small
// single-host deployments that have no Postgres; the scan engine treats it
// exactly like the durable store.
type Memory struct {
	mu        sync.Mutex
	records   map[recordKey]*contracts.RetentionRecord
	cursors   map[contracts.CriteriaKind]*contracts.ScanCursor
	summaries []*contracts.RunSummary
}

type recordKey struct {
	symbol contracts.Symbol
	kind   contracts.CriteriaKind
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		records: make(map[recordKey]*contracts.RetentionRecord),
		cursors: make(map[contracts.CriteriaKind]*contracts.ScanCursor),
	}
}

// GetRecord returns the record for (symbol, kind), or nil when absent
func (m *Memory) GetRecord(ctx context.Context, symbol contracts.Symbol, kind contracts.CriteriaKind) (*contracts.RetentionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordKey{symbol, kind}]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

// UpsertRecord stores the record, last-write-wins on EvaluatedAt
func (m *Memory) UpsertRecord(ctx context.Context, record *contracts.RetentionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{record.Symbol, record.Kind}
	if prev, ok := m.records[key]; ok {
		if record.Current.EvaluatedAt.Before(prev.Current.EvaluatedAt) {
			// Stale write, the stored result is newer
			return nil
		}
	}
	m.records[key] = copyRecord(record)
	return nil
}

// ListActive returns active and manual records for a kind, symbol-ordered
func (m *Memory) ListActive(ctx context.Context, kind contracts.CriteriaKind) ([]*contracts.RetentionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*contracts.RetentionRecord
	for key, rec := range m.records {
		if key.kind == kind && rec.IsActive() {
			out = append(out, copyRecord(rec))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// ListPrunedSince returns records pruned at or after since, symbol-ordered
func (m *Memory) ListPrunedSince(ctx context.Context, since time.Time) ([]*contracts.RetentionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*contracts.RetentionRecord
	for _, rec := range m.records {
		if rec.Status == contracts.StatusPruned && rec.PrunedAt != nil && !rec.PrunedAt.Before(since) {
			out = append(out, copyRecord(rec))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// SaveCursor persists the live cursor for the cursor's kind
func (m *Memory) SaveCursor(ctx context.Context, cursor *contracts.ScanCursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *cursor
	m.cursors[cursor.Kind] = &c
	return nil
}

// LoadCursor returns the live cursor for a kind, or nil when absent
func (m *Memory) LoadCursor(ctx context.Context, kind contracts.CriteriaKind) (*contracts.ScanCursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.cursors[kind]
	if !ok {
		return nil, nil
	}
	c := *cur
	return &c, nil
}

// ClearCursor deletes the live cursor for a kind
func (m *Memory) ClearCursor(ctx context.Context, kind contracts.CriteriaKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cursors, kind)
	return nil
}

// AppendRunSummary appends to the run log
func (m *Memory) AppendRunSummary(ctx context.Context, summary *contracts.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *summary
	m.summaries = append(m.summaries, &s)
	return nil
}

// GetRunSummaries returns summaries for a kind with StartedAt in [from, to)
func (m *Memory) GetRunSummaries(ctx context.Context, kind contracts.CriteriaKind, from, to time.Time) ([]*contracts.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*contracts.RunSummary
	for _, s := range m.summaries {
		if s.Kind != kind {
			continue
		}
		if s.StartedAt.Before(from) || !s.StartedAt.Before(to) {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

func copyRecord(rec *contracts.RetentionRecord) *contracts.RetentionRecord {
	c := *rec
	if rec.PrunedAt != nil {
		t := *rec.PrunedAt
		c.PrunedAt = &t
	}
	if rec.Current.Detail != nil {
		detail := make(map[string]string, len(rec.Current.Detail))
		for k, v := range rec.Current.Detail {
			detail[k] = v
		}
		c.Current.Detail = detail
	}
	return &c
}
