package constants

// Integrity thresholds applied on ingestion.
const (
	MaxDailyMiles = 100.0

	ExclusionSuspiciousDistance = "Distance exceeds daily threshold (Suspicious activity)"
	ExclusionZeroDistance       = "Zero distance activity filtered"
)

const CorrectionSourceManual = "manual"

// Undoable action types, stored in user_actions.action_type.
const (
	ActionCorrectMiles = "correct_miles"
	ActionAddNote      = "add_note"
)

// Outbox event types.
const (
	EventActivityUpserted = "activity.upserted"
)

const (
	IncidentRefreshFailed = "token_refresh_failed"
)

// Supported providers.
const (
	ProviderStrava = "strava"
	ProviderGarmin = "garmin"
	ProviderFitbit = "fitbit"
	ProviderManual = "manual"
)
