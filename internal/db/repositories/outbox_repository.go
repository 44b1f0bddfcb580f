package repositories

import (
	"context"
	"time"

	"summer-miles/ledger/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxRepo persists mirror events and tracks their delivery.
type OutboxRepo struct {
	db *gormlib.DB
}

func NewOutboxRepo(db *gormlib.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// Enqueue writes an event. Call it with the transaction of the change it describes.
func (r *OutboxRepo) Enqueue(ctx context.Context, event *gorm.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// Claim selects up to limit deliverable events and stamps claimed_at so concurrent workers skip them.
// Claims older than lease are considered abandoned and may be taken again.
func (r *OutboxRepo) Claim(ctx context.Context, limit int, lease time.Duration, now time.Time) ([]gorm.OutboxEvent, error) {
	var events []gorm.OutboxEvent

	err := r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		query := tx.Where("published_at IS NULL AND failed_at IS NULL").
			Where("claimed_at IS NULL OR claimed_at < ?", now.Add(-lease)).
			Order("id ASC").
			Limit(limit)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := query.Find(&events).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]uint64, 0, len(events))
		for _, event := range events {
			ids = append(ids, event.ID)
		}
		return tx.Model(&gorm.OutboxEvent{}).
			Where("id IN ?", ids).
			Update("claimed_at", now).Error
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&gorm.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"published_at": at, "claimed_at": nil}).Error
}

// MarkAttemptFailed records a failed delivery. When dead is set the event is parked and never retried.
func (r *OutboxRepo) MarkAttemptFailed(ctx context.Context, id uint64, attempts int, lastErr string, dead bool, at time.Time) error {
	updates := map[string]interface{}{
		"attempts":   attempts,
		"last_error": lastErr,
		"claimed_at": nil,
	}
	if dead {
		updates["failed_at"] = at
	}
	return r.db.WithContext(ctx).
		Model(&gorm.OutboxEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CountPending reports events still waiting for delivery.
func (r *OutboxRepo) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&gorm.OutboxEvent{}).
		Where("published_at IS NULL AND failed_at IS NULL").
		Count(&count).Error
	return count, err
}
