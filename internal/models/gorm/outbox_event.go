package gorm

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxEvent is written in the same transaction as the change it describes and
// published to the mirror sink afterwards.
type OutboxEvent struct {
	ID          uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID      string         `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	AggregateID string         `gorm:"column:aggregate_id;size:200;not null" json:"aggregate_id"`
	EventType   string         `gorm:"column:event_type;size:60;not null" json:"event_type"`
	Payload     datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	Attempts    int            `gorm:"column:attempts;not null" json:"attempts"`
	LastError   *string        `gorm:"column:last_error" json:"last_error"`
	ClaimedAt   *time.Time     `gorm:"column:claimed_at" json:"claimed_at"`
	PublishedAt *time.Time     `gorm:"column:published_at;index" json:"published_at"`
	FailedAt    *time.Time     `gorm:"column:failed_at" json:"failed_at"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (OutboxEvent) TableName() string {
	return "outbox_events"
}
