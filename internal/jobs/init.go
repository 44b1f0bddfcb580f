package jobs

import (
	"context"
	"time"

	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"
)

// InitializeJobs builds the background jobs and starts the ones with a schedule.
// A zero interval leaves the sync job available for manual runs only.
func InitializeJobs(ctx context.Context, store *repositories.Store, syncer Syncer, interval time.Duration, workers int) *ScheduledSyncJob {
	job := NewScheduledSyncJob(store, syncer, workers)
	if interval <= 0 {
		logging.Info("Scheduled sync disabled")
		return job
	}

	logging.Info("Scheduled sync enabled", "interval", interval.String(), "workers", workers)
	go job.RunScheduled(ctx, interval)
	return job
}
