package gorm

import "time"

// Activity is a single provider-reported or manually logged unit of movement.
// ID is "{provider}:{external_activity_id}".
type Activity struct {
	ID                 string    `gorm:"column:id;primaryKey;size:200" json:"id"`
	Provider           string    `gorm:"column:provider;size:50;not null;uniqueIndex:idx_activities_identity,priority:1" json:"provider"`
	ExternalActivityID string    `gorm:"column:external_activity_id;size:140;not null;uniqueIndex:idx_activities_identity,priority:2" json:"external_activity_id"`
	UserID             string    `gorm:"column:user_id;size:64;not null;index:idx_activities_user_ts,priority:1" json:"user_id"`
	Ts                 time.Time `gorm:"column:ts;not null;index:idx_activities_user_ts,priority:2" json:"ts"`
	Miles              float64   `gorm:"column:miles;not null" json:"miles"`
	DurationMin        float64   `gorm:"column:duration_min;not null" json:"duration_min"`
	IsExcluded         bool      `gorm:"column:is_excluded;not null" json:"is_excluded"`
	ExclusionReason    *string   `gorm:"column:exclusion_reason" json:"exclusion_reason"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Activity) TableName() string {
	return "activities"
}

// ActivityCorrection is an append-only signed adjustment to one activity's effective miles.
type ActivityCorrection struct {
	ID         string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	ActivityID string    `gorm:"column:activity_id;size:200;not null;index" json:"activity_id"`
	UserID     string    `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	DeltaMiles float64   `gorm:"column:delta_miles;not null" json:"delta_miles"`
	Reason     string    `gorm:"column:reason" json:"reason"`
	Source     string    `gorm:"column:source;size:40;not null" json:"source"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (ActivityCorrection) TableName() string {
	return "activity_corrections"
}

type ActivityNote struct {
	ID         string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	ActivityID string    `gorm:"column:activity_id;size:200;not null;index" json:"activity_id"`
	UserID     string    `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	Body       string    `gorm:"column:body;not null" json:"body"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (ActivityNote) TableName() string {
	return "activity_notes"
}
