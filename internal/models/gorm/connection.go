package gorm

import (
	"time"

	"summer-miles/ledger/internal/constants"
)

// ProviderConnection holds the simulated token state for one (user, provider) pair.
type ProviderConnection struct {
	ID            string                     `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID        string                     `gorm:"column:user_id;size:64;not null;uniqueIndex:idx_connections_user_provider,priority:1" json:"user_id"`
	Provider      string                     `gorm:"column:provider;size:50;not null;uniqueIndex:idx_connections_user_provider,priority:2" json:"provider"`
	Status        constants.ConnectionStatus `gorm:"column:status;size:20;not null" json:"status"`
	ExpiresAt     time.Time                  `gorm:"column:expires_at;not null" json:"expires_at"`
	LastRefreshAt *time.Time                 `gorm:"column:last_refresh_at" json:"last_refresh_at"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ProviderConnection) TableName() string {
	return "provider_connections"
}

// ProviderCondition carries the simulated network flags for a provider.
type ProviderCondition struct {
	Provider  string    `gorm:"column:provider;primaryKey;size:50" json:"provider"`
	Outage    bool      `gorm:"column:outage;not null" json:"outage"`
	RateLimit bool      `gorm:"column:rate_limit;not null" json:"rate_limit"`
	Delay     bool      `gorm:"column:delay;not null" json:"delay"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ProviderCondition) TableName() string {
	return "provider_conditions"
}

// Incident records a sync failure that needs operator attention.
type Incident struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	Provider  string    `gorm:"column:provider;size:50;not null" json:"provider"`
	Kind      string    `gorm:"column:kind;size:50;not null" json:"kind"`
	Detail    string    `gorm:"column:detail" json:"detail"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Incident) TableName() string {
	return "incidents"
}
