// Package jobs adapts the scan, monitor and sync entry points to the
// scheduler's Job interface.
package jobs

import (
	"context"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/internal/scan"
)

// ScanJob runs a full scan for one pipeline on a schedule. Resumption comes
// for free: if the previous run was interrupted, the engine picks up from
// its cursor.
type ScanJob struct {
	engine    *scan.Engine
	evaluator contracts.Evaluator
	schedule  string
}

// NewScanJob creates a scheduled scan job
func NewScanJob(engine *scan.Engine, evaluator contracts.Evaluator, schedule string) *ScanJob {
	return &ScanJob{
		engine:    engine,
		evaluator: evaluator,
		schedule:  schedule,
	}
}

func (j *ScanJob) Name() string {
	return "scan:" + string(j.evaluator.Kind())
}

func (j *ScanJob) Schedule() string {
	return j.schedule
}

func (j *ScanJob) Run(ctx context.Context) error {
	_, err := j.engine.Run(ctx, j.evaluator, scan.Options{})
	return err
}
