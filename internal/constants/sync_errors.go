package constants

// Sync error codes. Messages are what callers see; details stay in the logs.
const (
	ErrCodeConnectionRevoked   = "CONNECTION_REVOKED"
	ErrCodeRefreshFailed       = "REFRESH_FAILED"
	ErrCodeProviderOutage      = "PROVIDER_OUTAGE"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeUnsupportedProvider = "UNSUPPORTED_PROVIDER"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

var SyncErrorMessages = map[string]string{
	ErrCodeConnectionRevoked:   "Connection revoked. Please reconnect the provider",
	ErrCodeRefreshFailed:       "Token refresh failed. Please try again later",
	ErrCodeProviderOutage:      "Provider is experiencing an outage. Please try again later",
	ErrCodeRateLimited:         "Provider rate limit reached. Please try again later",
	ErrCodeUnsupportedProvider: "Unsupported provider",
	ErrCodeTimeout:             "Sync timed out. Please try again later",
	ErrCodeInternal:            "Sync failed due to an internal error",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := SyncErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}

// Progress stages emitted while a sync runs.
const (
	SyncStageConnection = "connection"
	SyncStageRefresh    = "refresh"
	SyncStageConditions = "conditions"
	SyncStageDelay      = "delay"
	SyncStageFetch      = "fetch"
	SyncStageIngest     = "ingest"
)
