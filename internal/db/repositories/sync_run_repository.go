package repositories

import (
	"context"

	"summer-miles/ledger/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// SyncRunRepo appends sync audit rows and incidents. Rows are never updated.
type SyncRunRepo struct {
	db *gormlib.DB
}

func NewSyncRunRepo(db *gormlib.DB) *SyncRunRepo {
	return &SyncRunRepo{db: db}
}

func (r *SyncRunRepo) Record(ctx context.Context, run *gorm.SyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// ListByUser returns the most recent runs first. A limit of zero returns all.
func (r *SyncRunRepo) ListByUser(ctx context.Context, userID string, limit int) ([]gorm.SyncRun, error) {
	var runs []gorm.SyncRun
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

func (r *SyncRunRepo) RecordIncident(ctx context.Context, incident *gorm.Incident) error {
	return r.db.WithContext(ctx).Create(incident).Error
}

func (r *SyncRunRepo) ListIncidents(ctx context.Context, userID string) ([]gorm.Incident, error) {
	var incidents []gorm.Incident
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&incidents).Error
	return incidents, err
}
