package repositories

import (
	"context"
	"errors"

	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConnectionRepo handles provider_connections and provider_conditions
type ConnectionRepo struct {
	db *gormlib.DB
}

func NewConnectionRepo(db *gormlib.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

// Get returns the stored connection, or nil when none exists.
func (r *ConnectionRepo) Get(ctx context.Context, userID, provider string) (*gorm.ProviderConnection, error) {
	var conn gorm.ProviderConnection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Take(&conn).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

// Create inserts a connection unless one already exists for the pair, then returns the stored row.
func (r *ConnectionRepo) Create(ctx context.Context, conn *gorm.ProviderConnection) (*gorm.ProviderConnection, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
			DoNothing: true,
		}).
		Create(conn).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, conn.UserID, conn.Provider)
}

// Save writes status and expiry fields back.
func (r *ConnectionRepo) Save(ctx context.Context, conn *gorm.ProviderConnection) error {
	return r.db.WithContext(ctx).
		Model(&gorm.ProviderConnection{}).
		Where("id = ?", conn.ID).
		Updates(map[string]interface{}{
			"status":          conn.Status,
			"expires_at":      conn.ExpiresAt,
			"last_refresh_at": conn.LastRefreshAt,
		}).Error
}

// ListSyncable returns every connection that is not revoked.
func (r *ConnectionRepo) ListSyncable(ctx context.Context) ([]gorm.ProviderConnection, error) {
	var conns []gorm.ProviderConnection
	err := r.db.WithContext(ctx).
		Where("status <> ?", constants.ConnectionRevoked).
		Order("user_id, provider").
		Find(&conns).Error
	return conns, err
}

func (r *ConnectionRepo) ListForUser(ctx context.Context, userID string) ([]gorm.ProviderConnection, error) {
	var conns []gorm.ProviderConnection
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("provider").Find(&conns).Error
	return conns, err
}

// GetCondition returns the simulated flags for a provider; absent rows mean all clear.
func (r *ConnectionRepo) GetCondition(ctx context.Context, provider string) (gorm.ProviderCondition, error) {
	cond := gorm.ProviderCondition{Provider: provider}
	err := r.db.WithContext(ctx).Where("provider = ?", provider).Take(&cond).Error
	if err != nil && !errors.Is(err, gormlib.ErrRecordNotFound) {
		return cond, err
	}
	return cond, nil
}

func (r *ConnectionRepo) SetCondition(ctx context.Context, cond *gorm.ProviderCondition) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{"outage", "rate_limit", "delay", "updated_at"}),
		}).
		Create(cond).Error
}
