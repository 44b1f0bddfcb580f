package dtos

import "time"

type ActivityRequest struct {
	Provider           string    `json:"provider"`
	ExternalActivityID string    `json:"external_activity_id"`
	Timestamp          time.Time `json:"timestamp"`
	DistanceMiles      float64   `json:"distance_miles"`
	DurationMin        float64   `json:"duration_min"`
}

type LogActivitiesRequest struct {
	Activities []ActivityRequest `json:"activities"`
}

type CorrectionRequest struct {
	DeltaMiles float64 `json:"delta_miles"`
	Reason     string  `json:"reason"`
	Source     string  `json:"source,omitempty"`
	Note       string  `json:"note,omitempty"`
}

type NoteRequest struct {
	Body string `json:"body"`
}

type BreakConnectionRequest struct {
	Mode string `json:"mode"`
}

type ProviderConditionsRequest struct {
	Outage    bool `json:"outage"`
	RateLimit bool `json:"rate_limit"`
	Delay     bool `json:"delay"`
}
