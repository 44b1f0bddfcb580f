package dtos

import "time"

type HealthResponse struct {
	Status   string            `json:"status"`
	Uptime   string            `json:"uptime"`
	Services map[string]string `json:"services"`
}

// UndoableResponse is returned by every mutation that can be undone.
type UndoableResponse struct {
	CorrectionID  string    `json:"correction_id,omitempty"`
	NoteID        string    `json:"note_id,omitempty"`
	ActionID      string    `json:"action_id"`
	UndoExpiresAt time.Time `json:"undo_expires_at"`
}

type UndoResponse struct {
	ActionID string `json:"action_id"`
	NoOp     bool   `json:"noop"`
}

// TimelineItem is one activity as shown in the timeline.
type TimelineItem struct {
	ID                 string    `json:"id"`
	Provider           string    `json:"provider"`
	ExternalActivityID string    `json:"external_activity_id"`
	Ts                 time.Time `json:"ts"`
	Miles              float64   `json:"miles"`
	DurationMin        float64   `json:"duration_min"`
	IsExcluded         bool      `json:"is_excluded"`
	ExclusionReason    *string   `json:"exclusion_reason"`
	EffectiveMiles     float64   `json:"effective_miles"`
	TotalCorrection    float64   `json:"total_correction"`
	CorrectionsCount   int64     `json:"corrections_count"`
	LatestNote         *string   `json:"latest_note"`
}

type TimelinePage struct {
	Items      []TimelineItem `json:"items"`
	NextCursor *string        `json:"next_cursor"`
}

type AggregateResponse struct {
	UserID         string     `json:"user_id"`
	TotalMiles     float64    `json:"total_miles"`
	LastActivityTs *time.Time `json:"last_activity_ts"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

type DailyStatResponse struct {
	Day           string  `json:"day"`
	CrewID        string  `json:"crew_id"`
	Miles         float64 `json:"miles"`
	ActivityCount int64   `json:"activity_count"`
}

// SyncEvent is one server-sent progress event of a streaming sync.
type SyncEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message,omitempty"`
}
