package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/metrics"
	gormModels "summer-miles/ledger/internal/models/gorm"
	"summer-miles/ledger/internal/providers"

	"github.com/google/uuid"
)

// SyncResult is what a caller sees. Status is success, error or rate_limited; Code names the
// failure behind any result that is not a success.
type SyncResult struct {
	Status  constants.SyncStatus `json:"status"`
	Added   int                  `json:"added"`
	Dupes   int                  `json:"dupes"`
	Message string               `json:"message,omitempty"`
	Code    string               `json:"code,omitempty"`
}

// ProgressFunc receives stage updates while a sync runs.
type ProgressFunc func(stage, message string)

type SyncOptions struct {
	Delay        time.Duration
	Timeout      time.Duration
	LookbackDays int
}

// SyncService is the provider sync orchestrator.
type SyncService struct {
	store       *repositories.Store
	connections *ConnectionService
	ingestion   *IngestionService
	registry    *providers.Registry
	opts        SyncOptions
	clock       Clock
}

func NewSyncService(
	store *repositories.Store,
	connections *ConnectionService,
	ingestion *IngestionService,
	registry *providers.Registry,
	opts SyncOptions,
) *SyncService {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 1
	}
	return &SyncService{
		store:       store,
		connections: connections,
		ingestion:   ingestion,
		registry:    registry,
		opts:        opts,
	}
}

func (s *SyncService) WithClock(clock Clock) *SyncService {
	s.clock = clock
	return s
}

// SyncUser runs one sync attempt. Failures are reported in the result, never returned.
func (s *SyncService) SyncUser(ctx context.Context, userID, provider string) SyncResult {
	return s.SyncUserWithProgress(ctx, userID, provider, nil)
}

// SyncUserWithProgress is SyncUser with stage callbacks for streaming callers.
func (s *SyncService) SyncUserWithProgress(ctx context.Context, userID, provider string, progress ProgressFunc) (result SyncResult) {
	log := logging.WithSync(userID, provider)
	if progress == nil {
		progress = func(string, string) {}
	}

	source, ok := s.registry.Get(provider)
	if !ok {
		return errorResult(constants.ErrCodeUnsupportedProvider)
	}

	run := &gormModels.SyncRun{UserID: userID, Provider: provider}
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("Sync panicked", "panic", r)
			result = errorResult(constants.ErrCodeInternal)
			run.Status, run.Added, run.Dupes = constants.SyncError, 0, 0
			run.Message = result.Message
		}
		s.recordRun(ctx, run)
	}()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	progress(constants.SyncStageConnection, "checking connection")
	conn, err := s.connections.GetConnectionDetails(ctx, userID, provider)
	if err != nil {
		log.Errorw("Connection lookup failed", "error", err)
		return s.fail(run, failureCode(err))
	}

	switch conn.Status {
	case constants.ConnectionRevoked:
		return s.fail(run, constants.ErrCodeConnectionRevoked)
	case constants.ConnectionExpired:
		progress(constants.SyncStageRefresh, "refreshing token")
		if _, err := s.connections.RefreshSimulatedToken(ctx, userID, provider); err != nil {
			log.Warnw("Token refresh failed", "error", err)
			s.recordIncident(ctx, userID, provider, err)
			return s.fail(run, constants.ErrCodeRefreshFailed)
		}
	}

	progress(constants.SyncStageConditions, "checking provider conditions")
	cond, err := s.connections.GetConditions(ctx, provider)
	if err != nil {
		log.Errorw("Condition lookup failed", "error", err)
		return s.fail(run, failureCode(err))
	}
	if cond.Outage {
		run.Status = constants.SyncOutage
		run.Message = constants.GetErrorMessage(constants.ErrCodeProviderOutage)
		return errorResult(constants.ErrCodeProviderOutage)
	}
	if cond.RateLimit {
		run.Status = constants.SyncRateLimited
		run.RateLimited = 1
		run.Message = constants.GetErrorMessage(constants.ErrCodeRateLimited)
		return SyncResult{Status: constants.SyncRateLimited, Message: run.Message, Code: constants.ErrCodeRateLimited}
	}
	if cond.Delay {
		progress(constants.SyncStageDelay, "provider is slow")
		run.Delayed = 1
		if err := sleepCtx(ctx, s.opts.Delay); err != nil {
			return s.fail(run, failureCode(err))
		}
	}

	progress(constants.SyncStageFetch, "fetching activities")
	since := s.clock.now().Truncate(24*time.Hour).AddDate(0, 0, -(s.opts.LookbackDays - 1))
	fetched, err := source.FetchActivities(ctx, userID, since)
	if err != nil {
		log.Errorw("Fetch failed", "error", err)
		return s.fail(run, failureCode(err))
	}

	progress(constants.SyncStageIngest, fmt.Sprintf("ingesting %d activities", len(fetched)))
	inputs := make([]ActivityInput, 0, len(fetched))
	for _, a := range fetched {
		inputs = append(inputs, ActivityInput{
			Provider:           provider,
			ExternalActivityID: a.ExternalActivityID,
			Timestamp:          a.Timestamp,
			DistanceMiles:      a.DistanceMiles,
			DurationMin:        a.DurationMin,
		})
	}
	ingested, err := s.ingestion.InsertActivities(ctx, userID, inputs)
	if err != nil {
		log.Errorw("Ingestion failed", "error", err)
		return s.fail(run, failureCode(err))
	}

	run.Status = constants.SyncSuccess
	run.Added, run.Dupes = ingested.Added, ingested.Dupes
	log.Infow("Sync completed", "added", ingested.Added, "dupes", ingested.Dupes)
	return SyncResult{Status: constants.SyncSuccess, Added: ingested.Added, Dupes: ingested.Dupes}
}

// fail logs an error run with zero counts and returns the matching caller-facing result.
func (s *SyncService) fail(run *gormModels.SyncRun, code string) SyncResult {
	result := errorResult(code)
	run.Status = constants.SyncError
	run.Added, run.Dupes = 0, 0
	run.Message = result.Message
	return result
}

func errorResult(code string) SyncResult {
	return SyncResult{Status: constants.SyncError, Message: constants.GetErrorMessage(code), Code: code}
}

func failureCode(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return constants.ErrCodeTimeout
	}
	return constants.ErrCodeInternal
}

// recordRun appends the audit row even when the request context has already been cancelled.
func (s *SyncService) recordRun(ctx context.Context, run *gormModels.SyncRun) {
	if run.Status == "" {
		return
	}
	run.ID = uuid.NewString()
	run.CreatedAt = s.clock.now()
	if err := repositories.NewSyncRunRepo(s.store.DB()).Record(context.WithoutCancel(ctx), run); err != nil {
		logging.Error("Failed to record sync run", "user_id", run.UserID, "provider", run.Provider, "error", err)
	}
	metrics.SyncRunsTotal.WithLabelValues(run.Provider, run.Status.String()).Inc()
}

func (s *SyncService) recordIncident(ctx context.Context, userID, provider string, cause error) {
	err := repositories.NewSyncRunRepo(s.store.DB()).RecordIncident(context.WithoutCancel(ctx), &gormModels.Incident{
		ID:        uuid.NewString(),
		UserID:    userID,
		Provider:  provider,
		Kind:      constants.IncidentRefreshFailed,
		Detail:    cause.Error(),
		CreatedAt: s.clock.now(),
	})
	if err != nil {
		logging.Error("Failed to record incident", "user_id", userID, "provider", provider, "error", err)
	}
}

// ListRuns returns the user's most recent sync runs.
func (s *SyncService) ListRuns(ctx context.Context, userID string, limit int) ([]gormModels.SyncRun, error) {
	return repositories.NewSyncRunRepo(s.store.DB()).ListByUser(ctx, userID, limit)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
