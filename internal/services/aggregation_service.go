package services

import (
	"context"
	"fmt"
	"sort"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/db/repositories"

	"gorm.io/gorm"
)

// AggregationService keeps user_aggregates and daily_stats in step with the ledger.
type AggregationService struct {
	store *repositories.Store
	locks *common.UserLocks
}

func NewAggregationService(store *repositories.Store, locks *common.UserLocks) *AggregationService {
	return &AggregationService{store: store, locks: locks}
}

// RecalculateAggregates recomputes a user's roll-up from the ledger and overwrites the cached row.
func (s *AggregationService) RecalculateAggregates(ctx context.Context, userID string) error {
	release := s.locks.Lock(userID)
	defer release()

	return s.store.Transaction(ctx, func(tx *gorm.DB) error {
		return s.recalculateInTx(ctx, tx, userID)
	})
}

// recalculateInTx is the variant other services call while they already hold the user lock.
func (s *AggregationService) recalculateInTx(ctx context.Context, tx *gorm.DB, userID string) error {
	totals, err := repositories.NewLedgerRepo(tx).ComputeTotals(ctx, userID)
	if err != nil {
		return fmt.Errorf("compute totals: %w", err)
	}
	if err := repositories.NewAggregateRepo(tx).Upsert(ctx, userID, totals); err != nil {
		return fmt.Errorf("upsert aggregate: %w", err)
	}
	return nil
}

// refreshDailyStatsInTx rebuilds the community rows for each day, for the global crew and the user's crews.
func (s *AggregationService) refreshDailyStatsInTx(ctx context.Context, tx *gorm.DB, userID string, days []string) error {
	if len(days) == 0 {
		return nil
	}
	statsRepo := repositories.NewDailyStatRepo(tx)
	crewIDs, err := statsRepo.CrewsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load crews: %w", err)
	}
	return statsRepo.RefreshDays(ctx, days, crewIDs)
}

// daySet collects distinct UTC day keys in sorted order.
type daySet map[string]struct{}

func (d daySet) add(day string) {
	d[day] = struct{}{}
}

func (d daySet) sorted() []string {
	days := make([]string, 0, len(d))
	for day := range d {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}
