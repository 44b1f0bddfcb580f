package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/metrics"
	gormModels "summer-miles/ledger/internal/models/gorm"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityInput is one activity handed to ingestion by a provider sync or manual logging.
type ActivityInput struct {
	Provider           string
	ExternalActivityID string
	Timestamp          time.Time
	DistanceMiles      float64
	DurationMin        float64
}

type IngestResult struct {
	Added int `json:"added"`
	Dupes int `json:"dupes"`
}

// IngestionService validates and idempotently upserts activities.
type IngestionService struct {
	store         *repositories.Store
	aggregation   *AggregationService
	locks         *common.UserLocks
	mirrorEnabled bool
	clock         Clock
}

func NewIngestionService(store *repositories.Store, aggregation *AggregationService, locks *common.UserLocks, mirrorEnabled bool) *IngestionService {
	return &IngestionService{
		store:         store,
		aggregation:   aggregation,
		locks:         locks,
		mirrorEnabled: mirrorEnabled,
	}
}

func (s *IngestionService) WithClock(clock Clock) *IngestionService {
	s.clock = clock
	return s
}

// ActivityID builds the opaque identity of an activity.
func ActivityID(provider, externalActivityID string) string {
	return provider + ":" + externalActivityID
}

// ApplyIntegrityRules classifies a reported distance. The first matching rule wins.
func ApplyIntegrityRules(distanceMiles float64) (excluded bool, reason *string) {
	switch {
	case distanceMiles > constants.MaxDailyMiles:
		r := constants.ExclusionSuspiciousDistance
		return true, &r
	case distanceMiles <= 0:
		r := constants.ExclusionZeroDistance
		return true, &r
	default:
		return false, nil
	}
}

// InsertActivities upserts the batch in one transaction, recomputes the user's aggregate and
// refreshes the daily stats of every day the batch touched.
func (s *IngestionService) InsertActivities(ctx context.Context, userID string, inputs []ActivityInput) (IngestResult, error) {
	if strings.TrimSpace(userID) == "" {
		return IngestResult{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	release := s.locks.Lock(userID)
	defer release()

	var (
		result   IngestResult
		excluded int
	)
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		result, excluded = IngestResult{}, 0

		if err := repositories.NewLedgerRepo(tx).EnsureUser(ctx, userID); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}

		days := daySet{}
		for _, input := range inputs {
			activity, err := s.buildActivity(userID, input)
			if err != nil {
				logging.Debug("Activity rejected by constraints", "user_id", userID, "error", err)
				result.Dupes++
				continue
			}

			existing, err := s.upsertOne(ctx, tx, activity)
			if errors.Is(err, errConstraintViolation) {
				logging.Debug("Activity folded into dupes", "user_id", userID, "activity_id", activity.ID, "error", err)
				result.Dupes++
				continue
			}
			if err != nil {
				return fmt.Errorf("upsert activity %s: %w", activity.ID, err)
			}

			if existing == nil {
				result.Added++
			} else {
				result.Dupes++
				// a resync can move the activity off its previous day
				days.add(repositories.DayKey(existing.Ts))
			}
			if activity.IsExcluded {
				excluded++
			}
			days.add(repositories.DayKey(activity.Ts))

			if s.mirrorEnabled {
				s.enqueueMirror(ctx, tx, activity)
			}
		}

		if err := s.aggregation.recalculateInTx(ctx, tx, userID); err != nil {
			return err
		}
		return s.aggregation.refreshDailyStatsInTx(ctx, tx, userID, days.sorted())
	})
	if err != nil {
		return IngestResult{}, err
	}

	metrics.ActivitiesIngestedTotal.WithLabelValues("added").Add(float64(result.Added))
	metrics.ActivitiesIngestedTotal.WithLabelValues("dupe").Add(float64(result.Dupes))
	metrics.ActivitiesIngestedTotal.WithLabelValues("excluded").Add(float64(excluded))
	return result, nil
}

func (s *IngestionService) buildActivity(userID string, input ActivityInput) (*gormModels.Activity, error) {
	provider := strings.TrimSpace(input.Provider)
	externalID := strings.TrimSpace(input.ExternalActivityID)
	switch {
	case provider == "":
		return nil, fmt.Errorf("%w: provider is required", errConstraintViolation)
	case externalID == "":
		return nil, fmt.Errorf("%w: external_activity_id is required", errConstraintViolation)
	case input.Timestamp.IsZero():
		return nil, fmt.Errorf("%w: timestamp is required", errConstraintViolation)
	case math.IsNaN(input.DistanceMiles) || math.IsInf(input.DistanceMiles, 0):
		return nil, fmt.Errorf("%w: distance is not a number", errConstraintViolation)
	}

	isExcluded, reason := ApplyIntegrityRules(input.DistanceMiles)
	return &gormModels.Activity{
		ID:                 ActivityID(provider, externalID),
		Provider:           provider,
		ExternalActivityID: externalID,
		UserID:             userID,
		Ts:                 input.Timestamp.UTC(),
		Miles:              input.DistanceMiles,
		DurationMin:        input.DurationMin,
		IsExcluded:         isExcluded,
		ExclusionReason:    reason,
	}, nil
}

// upsertOne writes one activity inside a savepoint so a constraint failure only discards that record.
// It returns the row as it was before the write, or nil when the activity is new.
func (s *IngestionService) upsertOne(ctx context.Context, tx *gorm.DB, activity *gormModels.Activity) (*gormModels.Activity, error) {
	var previous *gormModels.Activity
	err := tx.Transaction(func(sp *gorm.DB) error {
		ledger := repositories.NewLedgerRepo(sp)

		existing, err := ledger.FindActivity(ctx, activity.ID)
		if err != nil {
			return err
		}
		if existing != nil && existing.UserID != activity.UserID {
			return fmt.Errorf("%w: activity %s belongs to another user", errConstraintViolation, activity.ID)
		}

		written, err := ledger.UpsertActivity(ctx, activity)
		if err != nil {
			if isConstraintError(err) {
				return fmt.Errorf("%w: %v", errConstraintViolation, err)
			}
			return err
		}
		// Nothing written means another user claimed the identity after the read above.
		if written == 0 {
			return fmt.Errorf("%w: activity %s belongs to another user", errConstraintViolation, activity.ID)
		}
		previous = existing
		return nil
	})
	return previous, err
}

func isConstraintError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated)
}

type mirroredActivity struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Provider           string    `json:"provider"`
	ExternalActivityID string    `json:"external_activity_id"`
	Ts                 time.Time `json:"ts"`
	Miles              float64   `json:"miles"`
	DurationMin        float64   `json:"duration_min"`
	IsExcluded         bool      `json:"is_excluded"`
	ExclusionReason    *string   `json:"exclusion_reason"`
}

// enqueueMirror writes the outbox row in its own savepoint. Mirror failures never fail ingestion.
func (s *IngestionService) enqueueMirror(ctx context.Context, tx *gorm.DB, activity *gormModels.Activity) {
	payload, err := json.Marshal(mirroredActivity{
		ID:                 activity.ID,
		UserID:             activity.UserID,
		Provider:           activity.Provider,
		ExternalActivityID: activity.ExternalActivityID,
		Ts:                 activity.Ts,
		Miles:              activity.Miles,
		DurationMin:        activity.DurationMin,
		IsExcluded:         activity.IsExcluded,
		ExclusionReason:    activity.ExclusionReason,
	})
	if err != nil {
		logging.Warn("Mirror payload encode failed", "activity_id", activity.ID, "error", err)
		return
	}

	err = tx.Transaction(func(sp *gorm.DB) error {
		return repositories.NewOutboxRepo(sp).Enqueue(ctx, &gormModels.OutboxEvent{
			UserID:      activity.UserID,
			AggregateID: activity.ID,
			EventType:   constants.EventActivityUpserted,
			Payload:     datatypes.JSON(payload),
			CreatedAt:   s.clock.now(),
		})
	})
	if err != nil {
		logging.Warn("Mirror enqueue failed", "activity_id", activity.ID, "error", err)
	}
}
