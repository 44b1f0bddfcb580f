package gorm

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID          string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	Email       *string   `gorm:"column:email" json:"email"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

type Crew struct {
	ID        string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Crew) TableName() string {
	return "crews"
}

type CrewMember struct {
	ID       string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	CrewID   string    `gorm:"column:crew_id;size:64;not null;uniqueIndex:idx_crew_members_crew_user,priority:1" json:"crew_id"`
	UserID   string    `gorm:"column:user_id;size:64;not null;uniqueIndex:idx_crew_members_crew_user,priority:2;index" json:"user_id"`
	Role     string    `gorm:"column:role;size:20" json:"role"`
	JoinedAt time.Time `gorm:"column:joined_at;autoCreateTime" json:"joined_at"`
}

// TableName specifies the table name for GORM
func (CrewMember) TableName() string {
	return "crew_members"
}

// UserState is a free-form per-user document (onboarding progress, preferences).
type UserState struct {
	UserID    string         `gorm:"column:user_id;primaryKey;size:64" json:"user_id"`
	State     datatypes.JSON `gorm:"column:state" json:"state"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (UserState) TableName() string {
	return "user_states"
}

type MotivationEvent struct {
	ID        string         `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID    string         `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	Kind      string         `gorm:"column:kind;size:40;not null" json:"kind"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (MotivationEvent) TableName() string {
	return "motivation_events"
}
