package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/metrics"
	gormModels "summer-miles/ledger/internal/models/gorm"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CorrectionInput struct {
	UserID     string
	ActivityID string
	DeltaMiles float64
	Reason     string
	Source     string
	// Note, when set, is appended to the activity in the same transaction.
	Note string
}

// CorrectionService appends corrections and notes. It never mutates activity rows.
type CorrectionService struct {
	store       *repositories.Store
	aggregation *AggregationService
	locks       *common.UserLocks
	clock       Clock
}

func NewCorrectionService(store *repositories.Store, aggregation *AggregationService, locks *common.UserLocks) *CorrectionService {
	return &CorrectionService{store: store, aggregation: aggregation, locks: locks}
}

func (s *CorrectionService) WithClock(clock Clock) *CorrectionService {
	s.clock = clock
	return s
}

// CorrectActivity appends one signed correction and fully recomputes the user's aggregate.
func (s *CorrectionService) CorrectActivity(ctx context.Context, input CorrectionInput) (string, error) {
	if math.IsNaN(input.DeltaMiles) || math.IsInf(input.DeltaMiles, 0) {
		return "", fmt.Errorf("%w: delta_miles must be a finite number", ErrInvalidInput)
	}
	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = constants.CorrectionSourceManual
	}

	release := s.locks.Lock(input.UserID)
	defer release()

	correctionID := uuid.NewString()
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		ledger := repositories.NewLedgerRepo(tx)

		activity, err := ledger.FindActivityForUser(ctx, input.UserID, input.ActivityID)
		if err != nil {
			return fmt.Errorf("load activity: %w", err)
		}
		if activity == nil {
			return ErrNotFound
		}

		now := s.clock.now()
		err = ledger.AppendCorrection(ctx, &gormModels.ActivityCorrection{
			ID:         correctionID,
			ActivityID: activity.ID,
			UserID:     input.UserID,
			DeltaMiles: input.DeltaMiles,
			Reason:     input.Reason,
			Source:     source,
			CreatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("append correction: %w", err)
		}

		if note := strings.TrimSpace(input.Note); note != "" {
			err = ledger.AppendNote(ctx, &gormModels.ActivityNote{
				ID:         uuid.NewString(),
				ActivityID: activity.ID,
				UserID:     input.UserID,
				Body:       note,
				CreatedAt:  now,
			})
			if err != nil {
				return fmt.Errorf("append note: %w", err)
			}
		}

		if err := s.aggregation.recalculateInTx(ctx, tx, input.UserID); err != nil {
			return err
		}
		return s.aggregation.refreshDailyStatsInTx(ctx, tx, input.UserID, []string{repositories.DayKey(activity.Ts)})
	})
	if err != nil {
		return "", err
	}

	metrics.CorrectionsTotal.Inc()
	return correctionID, nil
}

// AddNote appends a note to an activity the user owns.
func (s *CorrectionService) AddNote(ctx context.Context, userID, activityID, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: note body is required", ErrInvalidInput)
	}

	release := s.locks.Lock(userID)
	defer release()

	noteID := uuid.NewString()
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		ledger := repositories.NewLedgerRepo(tx)

		activity, err := ledger.FindActivityForUser(ctx, userID, activityID)
		if err != nil {
			return fmt.Errorf("load activity: %w", err)
		}
		if activity == nil {
			return ErrNotFound
		}

		return ledger.AppendNote(ctx, &gormModels.ActivityNote{
			ID:         noteID,
			ActivityID: activity.ID,
			UserID:     userID,
			Body:       body,
			CreatedAt:  s.clock.now(),
		})
	})
	if err != nil {
		return "", err
	}
	return noteID, nil
}
