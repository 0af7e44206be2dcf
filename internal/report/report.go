// Package report builds operator-facing summaries from the retention store.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/logger"
)

// Builder assembles reports. It only reads; reports never mutate the store.
type Builder struct {
	store  contracts.RetentionStore
	logger *logger.Logger
}

// New creates a report builder
func New(store contracts.RetentionStore, log *logger.Logger) *Builder {
	return &Builder{store: store, logger: log}
}

// SymbolScore is one retained symbol's latest score.
type SymbolScore struct {
	Symbol      contracts.Symbol       `json:"symbol"`
	Score       float64                `json:"score"`
	Status      contracts.RecordStatus `json:"status"`
	EvaluatedAt time.Time              `json:"evaluated_at"`
}

// KindOverview summarizes one pipeline's retained set.
type KindOverview struct {
	Kind        contracts.CriteriaKind `json:"kind"`
	ActiveCount int                    `json:"active_count"`
	ManualCount int                    `json:"manual_count"`
	TopScores   []SymbolScore          `json:"top_scores"`
}

// Overview is the cross-pipeline retained-set summary.
type Overview struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Kinds       []KindOverview `json:"kinds"`
	PrunedToday int            `json:"pruned_today"`
}

// Daily reports one day's scan activity.
type Daily struct {
	Date   time.Time               `json:"date"`
	Runs   []*contracts.RunSummary `json:"runs"`
	Pruned []SymbolScore           `json:"pruned"`
}

// Weekly aggregates seven days of scan activity ending at Date.
type Weekly struct {
	Date   time.Time               `json:"date"` // last day of the window
	Runs   []*contracts.RunSummary `json:"runs"`
	Pruned []SymbolScore           `json:"pruned"`
}

// Stock reports everything known about one symbol.
type Stock struct {
	Symbol  contracts.Symbol             `json:"symbol"`
	Records []*contracts.RetentionRecord `json:"records"`
}

const topScoreCount = 10

// BuildOverview assembles the retained-set overview
func (b *Builder) BuildOverview(ctx context.Context) (*Overview, error) {
	now := time.Now().UTC()
	overview := &Overview{GeneratedAt: now}

	for _, kind := range contracts.AllCriteriaKinds() {
		records, err := b.store.ListActive(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list active %s: %w", kind, err)
		}

		ko := KindOverview{Kind: kind}
		for _, rec := range records {
			if rec.Status == contracts.StatusManual {
				ko.ManualCount++
			} else {
				ko.ActiveCount++
			}
			ko.TopScores = append(ko.TopScores, SymbolScore{
				Symbol:      rec.Symbol,
				Score:       rec.Current.Score,
				Status:      rec.Status,
				EvaluatedAt: rec.Current.EvaluatedAt,
			})
		}

		sort.Slice(ko.TopScores, func(i, j int) bool { return ko.TopScores[i].Score > ko.TopScores[j].Score })
		if len(ko.TopScores) > topScoreCount {
			ko.TopScores = ko.TopScores[:topScoreCount]
		}

		overview.Kinds = append(overview.Kinds, ko)
	}

	dayStart := now.Truncate(24 * time.Hour)
	pruned, err := b.store.ListPrunedSince(ctx, dayStart)
	if err != nil {
		return nil, fmt.Errorf("list pruned: %w", err)
	}
	overview.PrunedToday = len(pruned)

	return overview, nil
}

// BuildDaily assembles the activity report for one calendar day
func (b *Builder) BuildDaily(ctx context.Context, date time.Time) (*Daily, error) {
	dayStart := date.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	daily := &Daily{Date: dayStart}

	for _, kind := range contracts.AllCriteriaKinds() {
		runs, err := b.store.GetRunSummaries(ctx, kind, dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("get run summaries %s: %w", kind, err)
		}
		daily.Runs = append(daily.Runs, runs...)
	}

	pruned, err := b.store.ListPrunedSince(ctx, dayStart)
	if err != nil {
		return nil, fmt.Errorf("list pruned: %w", err)
	}
	for _, rec := range pruned {
		if rec.PrunedAt != nil && rec.PrunedAt.Before(dayEnd) {
			daily.Pruned = append(daily.Pruned, SymbolScore{
				Symbol:      rec.Symbol,
				Score:       rec.Current.Score,
				Status:      rec.Status,
				EvaluatedAt: rec.Current.EvaluatedAt,
			})
		}
	}

	return daily, nil
}

// BuildWeekly assembles the activity report for the seven days ending at date
func (b *Builder) BuildWeekly(ctx context.Context, date time.Time) (*Weekly, error) {
	weekEnd := date.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	weekStart := weekEnd.Add(-7 * 24 * time.Hour)

	weekly := &Weekly{Date: weekEnd.Add(-24 * time.Hour)}

	for _, kind := range contracts.AllCriteriaKinds() {
		runs, err := b.store.GetRunSummaries(ctx, kind, weekStart, weekEnd)
		if err != nil {
			return nil, fmt.Errorf("get run summaries %s: %w", kind, err)
		}
		weekly.Runs = append(weekly.Runs, runs...)
	}

	pruned, err := b.store.ListPrunedSince(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("list pruned: %w", err)
	}
	for _, rec := range pruned {
		if rec.PrunedAt != nil && rec.PrunedAt.Before(weekEnd) {
			weekly.Pruned = append(weekly.Pruned, SymbolScore{
				Symbol:      rec.Symbol,
				Score:       rec.Current.Score,
				Status:      rec.Status,
				EvaluatedAt: rec.Current.EvaluatedAt,
			})
		}
	}

	return weekly, nil
}

// BuildStock assembles the per-symbol report across pipelines
func (b *Builder) BuildStock(ctx context.Context, symbol contracts.Symbol) (*Stock, error) {
	stock := &Stock{Symbol: symbol}

	for _, kind := range contracts.AllCriteriaKinds() {
		rec, err := b.store.GetRecord(ctx, symbol, kind)
		if err != nil {
			return nil, fmt.Errorf("get record %s/%s: %w", symbol, kind, err)
		}
		if rec != nil {
			stock.Records = append(stock.Records, rec)
		}
	}

	if len(stock.Records) == 0 {
		return nil, fmt.Errorf("%w: %s", contracts.ErrSymbolNotFound, symbol)
	}

	return stock, nil
}

// Render formats the overview for terminal output
func (o *Overview) Render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Retained set as of %s\n", o.GeneratedAt.Format("2006-01-02 15:04 MST"))
	for _, ko := range o.Kinds {
		fmt.Fprintf(&sb, "\n[%s] active=%d manual=%d\n", ko.Kind, ko.ActiveCount, ko.ManualCount)
		for _, ts := range ko.TopScores {
			marker := ""
			if ts.Status == contracts.StatusManual {
				marker = " (manual)"
			}
			fmt.Fprintf(&sb, "  %-8s %+.3f%s\n", ts.Symbol, ts.Score, marker)
		}
	}
	fmt.Fprintf(&sb, "\npruned today: %d\n", o.PrunedToday)

	return sb.String()
}

// Render formats the daily report for terminal output
func (d *Daily) Render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Scan activity for %s\n", d.Date.Format("2006-01-02"))
	if len(d.Runs) == 0 {
		sb.WriteString("  no completed runs\n")
	}
	for _, run := range d.Runs {
		fmt.Fprintf(&sb, "  [%s] attempted=%d passed=%d failed=%d duration=%s\n",
			run.Kind, run.SymbolsAttempted, run.SymbolsPassed, run.SymbolsFailed, run.Duration().Round(time.Second))
	}

	if len(d.Pruned) > 0 {
		sb.WriteString("\npruned:\n")
		for _, p := range d.Pruned {
			fmt.Fprintf(&sb, "  %-8s %+.3f\n", p.Symbol, p.Score)
		}
	}

	return sb.String()
}

// Render formats the weekly report for terminal output
func (w *Weekly) Render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Scan activity for week ending %s\n", w.Date.Format("2006-01-02"))
	if len(w.Runs) == 0 {
		sb.WriteString("  no completed runs\n")
	}
	for _, run := range w.Runs {
		fmt.Fprintf(&sb, "  %s [%s] attempted=%d passed=%d failed=%d\n",
			run.StartedAt.Format("01-02"), run.Kind, run.SymbolsAttempted, run.SymbolsPassed, run.SymbolsFailed)
	}

	if len(w.Pruned) > 0 {
		fmt.Fprintf(&sb, "\npruned this week: %d\n", len(w.Pruned))
		for _, p := range w.Pruned {
			fmt.Fprintf(&sb, "  %-8s %+.3f\n", p.Symbol, p.Score)
		}
	}

	return sb.String()
}

// Render formats the stock report for terminal output
func (s *Stock) Render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Symbol %s\n", s.Symbol)
	for _, rec := range s.Records {
		fmt.Fprintf(&sb, "\n[%s] status=%s score=%+.3f evaluated=%s\n",
			rec.Kind, rec.Status, rec.Current.Score, rec.Current.EvaluatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(&sb, "  first retained: %s\n", rec.FirstRetainedAt.Format("2006-01-02"))
		if rec.PrunedAt != nil {
			fmt.Fprintf(&sb, "  pruned at:      %s\n", rec.PrunedAt.Format("2006-01-02 15:04"))
		}

		keys := make([]string, 0, len(rec.Current.Detail))
		for k := range rec.Current.Detail {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %-12s %s\n", k, rec.Current.Detail[k])
		}
	}

	return sb.String()
}
