package repositories

import (
	"context"
	"errors"
	"time"

	"summer-miles/ledger/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AggregateRepo struct {
	db *gormlib.DB
}

func NewAggregateRepo(db *gormlib.DB) *AggregateRepo {
	return &AggregateRepo{db: db}
}

// Upsert overwrites the cached roll-up for a user.
func (r *AggregateRepo) Upsert(ctx context.Context, userID string, totals Totals) error {
	aggregate := gorm.UserAggregate{
		UserID:         userID,
		TotalMiles:     totals.TotalMiles,
		LastActivityTs: totals.LastActivityTs,
		UpdatedAt:      time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_miles", "last_activity_ts", "updated_at"}),
		}).
		Create(&aggregate).Error
}

// Get returns the cached aggregate, or nil when the user has none yet.
func (r *AggregateRepo) Get(ctx context.Context, userID string) (*gorm.UserAggregate, error) {
	var aggregate gorm.UserAggregate
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&aggregate).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &aggregate, nil
}
