package gorm

import "time"

// UserAggregate caches a user's roll-up. It is always rewritten from a full recompute.
type UserAggregate struct {
	UserID         string     `gorm:"column:user_id;primaryKey;size:64" json:"user_id"`
	TotalMiles     float64    `gorm:"column:total_miles;not null" json:"total_miles"`
	LastActivityTs *time.Time `gorm:"column:last_activity_ts" json:"last_activity_ts"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (UserAggregate) TableName() string {
	return "user_aggregates"
}

// DailyStat is the community read cache keyed by UTC day and crew.
type DailyStat struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Day           string    `gorm:"column:day;size:10;not null;uniqueIndex:idx_daily_stats_day_crew,priority:1" json:"day"`
	CrewID        string    `gorm:"column:crew_id;size:64;not null;uniqueIndex:idx_daily_stats_day_crew,priority:2" json:"crew_id"`
	Miles         float64   `gorm:"column:miles;not null" json:"miles"`
	ActivityCount int64     `gorm:"column:activity_count;not null" json:"activity_count"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (DailyStat) TableName() string {
	return "daily_stats"
}
