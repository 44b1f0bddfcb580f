package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/metrics"
	"summer-miles/ledger/internal/services"

	"golang.org/x/sync/errgroup"
)

// ErrSweepRunning is returned by Run while another sweep is in progress.
var ErrSweepRunning = errors.New("scheduled sync already running")

// Syncer is the part of the sync orchestrator the job drives.
type Syncer interface {
	SyncUser(ctx context.Context, userID, provider string) services.SyncResult
}

// SweepReport summarises one pass over every syncable connection.
type SweepReport struct {
	Connections int                          `json:"connections"`
	ByStatus    map[constants.SyncStatus]int `json:"by_status"`
	Added       int                          `json:"added"`
	Duration    time.Duration                `json:"duration"`
}

// ScheduledSyncJob syncs every non-revoked connection with bounded concurrency.
type ScheduledSyncJob struct {
	store   *repositories.Store
	syncer  Syncer
	workers int

	mu      sync.Mutex
	running bool
	last    *SweepReport
}

func NewScheduledSyncJob(store *repositories.Store, syncer Syncer, workers int) *ScheduledSyncJob {
	if workers <= 0 {
		workers = 1
	}
	return &ScheduledSyncJob{store: store, syncer: syncer, workers: workers}
}

// Run performs one sweep. Overlapping sweeps are refused.
func (j *ScheduledSyncJob) Run(ctx context.Context) (*SweepReport, error) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil, ErrSweepRunning
	}
	j.running = true
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	start := time.Now()
	conns, err := repositories.NewConnectionRepo(j.store.DB()).ListSyncable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	report := &SweepReport{Connections: len(conns), ByStatus: map[constants.SyncStatus]int{}}
	var reportMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers)
	for _, conn := range conns {
		conn := conn
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			result := j.syncer.SyncUser(gctx, conn.UserID, conn.Provider)

			reportMu.Lock()
			report.ByStatus[result.Status]++
			report.Added += result.Added
			reportMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	metrics.ScheduledSyncDuration.Observe(report.Duration.Seconds())
	logging.Info("Scheduled sync completed",
		"connections", report.Connections,
		"added", report.Added,
		"duration_ms", report.Duration.Milliseconds(),
	)

	j.mu.Lock()
	j.last = report
	j.mu.Unlock()
	return report, nil
}

// LastReport returns the most recent completed sweep, if any.
func (j *ScheduledSyncJob) LastReport() *SweepReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

// RunScheduled sweeps every interval until ctx is cancelled.
func (j *ScheduledSyncJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				logging.Error("Scheduled sync failed", "error", err)
			}
		case <-ctx.Done():
			logging.Info("Scheduled sync shutting down")
			return
		}
	}
}
