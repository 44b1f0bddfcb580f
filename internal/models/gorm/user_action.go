package gorm

import (
	"time"

	"gorm.io/datatypes"
)

// UserAction records a reversible mutation. Payload is the JSON form of the undo variant named by ActionType.
type UserAction struct {
	ID         string         `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID     string         `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	ActionType string         `gorm:"column:action_type;size:40;not null" json:"action_type"`
	Payload    datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	ExpiresAt  time.Time      `gorm:"column:expires_at;not null" json:"expires_at"`
	UndoneAt   *time.Time     `gorm:"column:undone_at" json:"undone_at"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table name for GORM
func (UserAction) TableName() string {
	return "user_actions"
}
