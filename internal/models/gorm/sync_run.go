package gorm

import (
	"time"

	"summer-miles/ledger/internal/constants"
)

// SyncRun is the immutable audit row for one sync attempt.
type SyncRun struct {
	ID          string               `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID      string               `gorm:"column:user_id;size:64;not null;index:idx_sync_runs_user_created,priority:1" json:"user_id"`
	Provider    string               `gorm:"column:provider;size:50;not null" json:"provider"`
	Status      constants.SyncStatus `gorm:"column:status;size:20;not null" json:"status"`
	Added       int                  `gorm:"column:added;not null" json:"added"`
	Dupes       int                  `gorm:"column:dupes;not null" json:"dupes"`
	Delayed     int                  `gorm:"column:delayed;not null" json:"delayed"`
	RateLimited int                  `gorm:"column:rate_limited;not null" json:"rate_limited"`
	Message     string               `gorm:"column:message" json:"message"`
	CreatedAt   time.Time            `gorm:"column:created_at;index:idx_sync_runs_user_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for GORM
func (SyncRun) TableName() string {
	return "sync_runs"
}
