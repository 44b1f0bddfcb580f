package repositories

import (
	"context"
	"errors"
	"time"

	"summer-miles/ledger/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// ActionRepo stores undoable user actions
type ActionRepo struct {
	db *gormlib.DB
}

func NewActionRepo(db *gormlib.DB) *ActionRepo {
	return &ActionRepo{db: db}
}

func (r *ActionRepo) Create(ctx context.Context, action *gorm.UserAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

// FindForUser returns the action only when userID owns it, otherwise nil.
func (r *ActionRepo) FindForUser(ctx context.Context, userID, id string) (*gorm.UserAction, error) {
	var action gorm.UserAction
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&action).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

// MarkUndone stamps undone_at if it is still unset and reports whether this call did it.
func (r *ActionRepo) MarkUndone(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&gorm.UserAction{}).
		Where("id = ? AND undone_at IS NULL", id).
		Update("undone_at", at)
	return result.RowsAffected == 1, result.Error
}
