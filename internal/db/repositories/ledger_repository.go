package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"summer-miles/ledger/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepo handles activities, corrections and notes
type LedgerRepo struct {
	db *gormlib.DB
}

// NewLedgerRepo creates a new ledger repository
func NewLedgerRepo(db *gormlib.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// FindActivity returns the activity with the given id, or nil when it does not exist.
func (r *LedgerRepo) FindActivity(ctx context.Context, id string) (*gorm.Activity, error) {
	var activity gorm.Activity

	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&activity)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &activity, nil
}

// FindActivityForUser returns the activity only when userID owns it.
func (r *LedgerRepo) FindActivityForUser(ctx context.Context, userID, id string) (*gorm.Activity, error) {
	activity, err := r.FindActivity(ctx, id)
	if err != nil || activity == nil {
		return nil, err
	}
	if activity.UserID != userID {
		return nil, nil
	}
	return activity, nil
}

// UpsertActivity inserts or updates an activity by identity and reports the rows written.
// The update only applies to the owner's row; a conflict on another user's identity writes nothing.
func (r *LedgerRepo) UpsertActivity(ctx context.Context, activity *gorm.Activity) (int64, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"ts", "miles", "duration_min", "is_excluded", "exclusion_reason", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "activities.user_id = excluded.user_id"},
			}},
		}).
		Create(activity)
	return result.RowsAffected, result.Error
}

// ListActivities returns every activity owned by the user, newest first.
func (r *LedgerRepo) ListActivities(ctx context.Context, userID string) ([]gorm.Activity, error) {
	var activities []gorm.Activity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("ts DESC").
		Find(&activities).Error
	return activities, err
}

func (r *LedgerRepo) AppendCorrection(ctx context.Context, correction *gorm.ActivityCorrection) error {
	return r.db.WithContext(ctx).Create(correction).Error
}

// FindCorrection returns the correction with the given id, or nil.
func (r *LedgerRepo) FindCorrection(ctx context.Context, id string) (*gorm.ActivityCorrection, error) {
	var correction gorm.ActivityCorrection
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&correction).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &correction, nil
}

// DeleteCorrection hard-deletes one correction. Undo is the only caller.
func (r *LedgerRepo) DeleteCorrection(ctx context.Context, userID, id string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&gorm.ActivityCorrection{})
	return result.RowsAffected, result.Error
}

// ListCorrections returns an activity's corrections in the order they were applied.
func (r *LedgerRepo) ListCorrections(ctx context.Context, activityID string) ([]gorm.ActivityCorrection, error) {
	var corrections []gorm.ActivityCorrection
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("created_at ASC").
		Find(&corrections).Error
	return corrections, err
}

func (r *LedgerRepo) AppendNote(ctx context.Context, note *gorm.ActivityNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

// ListNotes returns an activity's notes, newest first.
func (r *LedgerRepo) ListNotes(ctx context.Context, activityID string) ([]gorm.ActivityNote, error) {
	var notes []gorm.ActivityNote
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

// DeleteLatestNoteWithPrefix removes the most recent note on the activity whose body starts with prefix.
func (r *LedgerRepo) DeleteLatestNoteWithPrefix(ctx context.Context, userID, activityID, prefix string) (int64, error) {
	notes, err := r.ListNotes(ctx, activityID)
	if err != nil {
		return 0, err
	}
	for _, note := range notes {
		if note.UserID != userID || !strings.HasPrefix(note.Body, prefix) {
			continue
		}
		result := r.db.WithContext(ctx).Where("id = ?", note.ID).Delete(&gorm.ActivityNote{})
		return result.RowsAffected, result.Error
	}
	return 0, nil
}

// Totals is the from-ledger roll-up over a user's non-excluded activities.
type Totals struct {
	TotalMiles     float64
	LastActivityTs *time.Time
}

// ComputeTotals sums effective miles and finds the latest timestamp over non-excluded activities.
func (r *LedgerRepo) ComputeTotals(ctx context.Context, userID string) (Totals, error) {
	var totals Totals
	db := r.db.WithContext(ctx)

	var raw float64
	err := db.Model(&gorm.Activity{}).
		Where("user_id = ? AND is_excluded = ?", userID, false).
		Select("COALESCE(SUM(miles), 0)").
		Scan(&raw).Error
	if err != nil {
		return totals, err
	}

	var corrections float64
	err = db.Table("activity_corrections AS c").
		Joins("JOIN activities a ON a.id = c.activity_id").
		Where("a.user_id = ? AND a.is_excluded = ?", userID, false).
		Select("COALESCE(SUM(c.delta_miles), 0)").
		Scan(&corrections).Error
	if err != nil {
		return totals, err
	}

	var latest []gorm.Activity
	err = db.Where("user_id = ? AND is_excluded = ?", userID, false).
		Order("ts DESC").
		Limit(1).
		Find(&latest).Error
	if err != nil {
		return totals, err
	}

	totals.TotalMiles = raw + corrections
	if len(latest) == 1 {
		ts := latest[0].Ts.UTC()
		totals.LastActivityTs = &ts
	}
	return totals, nil
}

// EnsureUser creates the user row on first contact.
func (r *LedgerRepo) EnsureUser(ctx context.Context, userID string) error {
	user := gorm.User{ID: userID, DisplayName: userID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user).Error
}
