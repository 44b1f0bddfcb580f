package services

import (
	"context"
	"fmt"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"

	"gorm.io/gorm"
)

// UserDataService exports and erases everything stored for a user.
type UserDataService struct {
	store       *repositories.Store
	aggregation *AggregationService
	locks       *common.UserLocks
}

func NewUserDataService(store *repositories.Store, aggregation *AggregationService, locks *common.UserLocks) *UserDataService {
	return &UserDataService{store: store, aggregation: aggregation, locks: locks}
}

// Export returns a lossless dump of the user's data. It reads under the user lock so the
// snapshot never straddles a batch.
func (s *UserDataService) Export(ctx context.Context, userID string) (*repositories.UserExport, error) {
	release := s.locks.Lock(userID)
	defer release()

	var out *repositories.UserExport
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = repositories.NewUserDataRepo(tx).Export(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("export user data: %w", err)
	}
	return out, nil
}

// DeleteUserData removes the user's rows from every dependent table in one transaction and
// rebuilds the community stats of the days they had activity on.
func (s *UserDataService) DeleteUserData(ctx context.Context, userID string) error {
	release := s.locks.Lock(userID)
	defer release()

	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		days, crewIDs, err := repositories.NewUserDataRepo(tx).DeleteAll(ctx, userID)
		if err != nil {
			return err
		}
		return repositories.NewDailyStatRepo(tx).RefreshDays(ctx, days, crewIDs)
	})
	if err != nil {
		return fmt.Errorf("delete user data: %w", err)
	}

	logging.Info("User data deleted", "user_id", userID)
	return nil
}

// RemainingRows counts what is left for the user in each user-keyed table.
func (s *UserDataService) RemainingRows(ctx context.Context, userID string) (map[string]int64, error) {
	return repositories.NewUserDataRepo(s.store.DB()).CountOwnedRows(ctx, userID)
}
