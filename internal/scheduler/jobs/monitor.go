package jobs

import (
	"context"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/internal/monitor"
)

// MonitorJob re-evaluates one pipeline's retained set on a schedule.
type MonitorJob struct {
	monitor   *monitor.Monitor
	evaluator contracts.Evaluator
	schedule  string
}

// NewMonitorJob creates a scheduled monitor job
func NewMonitorJob(mon *monitor.Monitor, evaluator contracts.Evaluator, schedule string) *MonitorJob {
	return &MonitorJob{
		monitor:   mon,
		evaluator: evaluator,
		schedule:  schedule,
	}
}

func (j *MonitorJob) Name() string {
	return "monitor:" + string(j.evaluator.Kind())
}

func (j *MonitorJob) Schedule() string {
	return j.schedule
}

func (j *MonitorJob) Run(ctx context.Context) error {
	_, err := j.monitor.Run(ctx, j.evaluator)
	return err
}
