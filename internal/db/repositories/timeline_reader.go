package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// TimelineRow is one activity with its effective-miles view.
type TimelineRow struct {
	ID                 string         `db:"id"`
	Provider           string         `db:"provider"`
	ExternalActivityID string         `db:"external_activity_id"`
	Ts                 time.Time      `db:"ts"`
	Miles              float64        `db:"miles"`
	DurationMin        float64        `db:"duration_min"`
	IsExcluded         bool           `db:"is_excluded"`
	ExclusionReason    sql.NullString `db:"exclusion_reason"`
	TotalCorrection    float64        `db:"total_correction"`
	CorrectionsCount   int64          `db:"corrections_count"`
	LatestNote         sql.NullString `db:"latest_note"`
}

// EffectiveMiles is raw miles plus every correction.
func (r TimelineRow) EffectiveMiles() float64 {
	return r.Miles + r.TotalCorrection
}

const timelineQuery = `
	SELECT a.id, a.provider, a.external_activity_id, a.ts, a.miles, a.duration_min,
	       a.is_excluded, a.exclusion_reason,
	       COALESCE((SELECT SUM(c.delta_miles) FROM activity_corrections c WHERE c.activity_id = a.id), 0) AS total_correction,
	       (SELECT COUNT(*) FROM activity_corrections c WHERE c.activity_id = a.id) AS corrections_count,
	       (SELECT n.body FROM activity_notes n WHERE n.activity_id = a.id
	        ORDER BY n.created_at DESC LIMIT 1) AS latest_note
	FROM activities a
	WHERE a.user_id = ?`

// TimelineReader serves the read-only effective-miles views through sqlx.
type TimelineReader struct {
	db *sqlx.DB
}

func NewTimelineReader(db *sqlx.DB) *TimelineReader {
	return &TimelineReader{db: db}
}

// Page returns up to limit activities older than before (or the newest when before is nil), newest first.
func (r *TimelineReader) Page(ctx context.Context, userID string, limit int, before *time.Time) ([]TimelineRow, error) {
	query := timelineQuery
	args := []interface{}{userID}
	if before != nil {
		query += ` AND a.ts < ?`
		args = append(args, before.UTC())
	}
	query += ` ORDER BY a.ts DESC, a.id DESC LIMIT ?`
	args = append(args, limit)

	rows := []TimelineRow{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Activity returns the view row for a single activity, or nil.
func (r *TimelineReader) Activity(ctx context.Context, userID, activityID string) (*TimelineRow, error) {
	var row TimelineRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(timelineQuery+` AND a.id = ?`), userID, activityID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
