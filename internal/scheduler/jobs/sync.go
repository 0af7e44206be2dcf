package jobs

import (
	"context"

	datasync "github.com/wonny/scout/backend/internal/sync"
)

// SyncJob refreshes the market-data mirror on a schedule.
type SyncJob struct {
	syncer   *datasync.Syncer
	full     bool
	schedule string
}

// NewSyncJob creates a scheduled sync job. full controls whether the whole
// universe is mirrored or only the retained set.
func NewSyncJob(syncer *datasync.Syncer, full bool, schedule string) *SyncJob {
	return &SyncJob{
		syncer:   syncer,
		full:     full,
		schedule: schedule,
	}
}

func (j *SyncJob) Name() string {
	if j.full {
		return "sync:full"
	}
	return "sync:retained"
}

func (j *SyncJob) Schedule() string {
	return j.schedule
}

func (j *SyncJob) Run(ctx context.Context) error {
	_, err := j.syncer.Run(ctx, j.full)
	return err
}
