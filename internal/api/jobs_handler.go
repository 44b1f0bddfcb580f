package api

import (
	"errors"
	"net/http"
	"time"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/jobs"
)

// TriggerScheduledSyncHandler handles POST /api/v1/jobs/sync
//
// Runs one sweep over every syncable connection and returns its report.
func TriggerScheduledSyncHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		if deps.SyncJob == nil {
			common.RespondError(w, initTime, nil, "Scheduled sync is not configured", http.StatusServiceUnavailable)
			return
		}

		report, err := deps.SyncJob.Run(r.Context())
		if errors.Is(err, jobs.ErrSweepRunning) {
			common.RespondError(w, initTime, err, "A scheduled sync is already running", http.StatusConflict)
			return
		}
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to run scheduled sync", http.StatusInternalServerError)
			return
		}
		common.RespondSuccess(w, initTime, "Scheduled sync completed", report)
	}
}

// JobStatusHandler handles GET /api/v1/jobs/status
func JobStatusHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		if deps.SyncJob == nil {
			common.RespondError(w, initTime, nil, "Scheduled sync is not configured", http.StatusServiceUnavailable)
			return
		}
		common.RespondSuccess(w, initTime, "Job status retrieved", deps.SyncJob.LastReport())
	}
}
