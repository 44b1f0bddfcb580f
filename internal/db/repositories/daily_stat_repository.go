package repositories

import (
	"context"
	"fmt"
	"time"

	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyStatRepo maintains the community per-day cache.
type DailyStatRepo struct {
	db *gormlib.DB
}

func NewDailyStatRepo(db *gormlib.DB) *DailyStatRepo {
	return &DailyStatRepo{db: db}
}

// CrewsForUser returns the crews a user's activity counts towards, always including the global crew.
func (r *DailyStatRepo) CrewsForUser(ctx context.Context, userID string) ([]string, error) {
	var crewIDs []string
	err := r.db.WithContext(ctx).
		Model(&gorm.CrewMember{}).
		Where("user_id = ?", userID).
		Order("crew_id").
		Pluck("crew_id", &crewIDs).Error
	if err != nil {
		return nil, err
	}
	return append([]string{constants.GlobalCrewID}, crewIDs...), nil
}

// Refresh recomputes one (day, crew) row from the ledger. Day is a UTC "2006-01-02" key.
func (r *DailyStatRepo) Refresh(ctx context.Context, day, crewID string) error {
	start, err := time.Parse(constants.DayLayout, day)
	if err != nil {
		return fmt.Errorf("invalid stat day %q: %w", day, err)
	}
	end := start.Add(24 * time.Hour)
	db := r.db.WithContext(ctx)

	scope := func(q *gormlib.DB, alias string) *gormlib.DB {
		q = q.Where(alias+".is_excluded = ? AND "+alias+".ts >= ? AND "+alias+".ts < ?", false, start, end)
		if crewID != constants.GlobalCrewID {
			q = q.Where(alias+".user_id IN (?)",
				r.db.Model(&gorm.CrewMember{}).Select("user_id").Where("crew_id = ?", crewID))
		}
		return q
	}

	var raw struct {
		Miles float64
		Count int64
	}
	err = scope(db.Table("activities AS a"), "a").
		Select("COALESCE(SUM(a.miles), 0) AS miles, COUNT(*) AS count").
		Scan(&raw).Error
	if err != nil {
		return err
	}

	var corrections float64
	err = scope(db.Table("activity_corrections AS c").Joins("JOIN activities a ON a.id = c.activity_id"), "a").
		Select("COALESCE(SUM(c.delta_miles), 0)").
		Scan(&corrections).Error
	if err != nil {
		return err
	}

	stat := gorm.DailyStat{
		Day:           day,
		CrewID:        crewID,
		Miles:         raw.Miles + corrections,
		ActivityCount: raw.Count,
		UpdatedAt:     time.Now().UTC(),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}, {Name: "crew_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"miles", "activity_count", "updated_at"}),
	}).Create(&stat).Error
}

// RefreshDays refreshes every listed day for every crew.
func (r *DailyStatRepo) RefreshDays(ctx context.Context, days []string, crewIDs []string) error {
	for _, day := range days {
		for _, crewID := range crewIDs {
			if err := r.Refresh(ctx, day, crewID); err != nil {
				return fmt.Errorf("refresh daily stat %s/%s: %w", day, crewID, err)
			}
		}
	}
	return nil
}

// ListSince returns a crew's stats from sinceDay onwards, oldest first.
func (r *DailyStatRepo) ListSince(ctx context.Context, crewID, sinceDay string) ([]gorm.DailyStat, error) {
	var stats []gorm.DailyStat
	err := r.db.WithContext(ctx).
		Where("crew_id = ? AND day >= ?", crewID, sinceDay).
		Order("day ASC").
		Find(&stats).Error
	return stats, err
}

// DayKey returns the UTC day key for ts.
func DayKey(ts time.Time) string {
	return ts.UTC().Format(constants.DayLayout)
}
