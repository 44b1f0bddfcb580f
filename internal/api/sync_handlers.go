package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/models/dtos"
	"summer-miles/ledger/internal/services"

	"github.com/go-chi/chi/v5"
)

const defaultRunsLimit = 20

// SyncHandler handles POST /api/v1/sync/{provider}. Clients that accept text/event-stream get
// progress events followed by one terminal event named after the result status.
func SyncHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		provider := chi.URLParam(r, "provider")
		if !deps.Services.Connections.Supports(provider) {
			common.RespondError(w, initTime, nil, constants.GetErrorMessage(constants.ErrCodeUnsupportedProvider), http.StatusNotFound)
			return
		}

		if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
			if flusher, ok := w.(http.Flusher); ok {
				streamSync(w, r, flusher, deps, userID, provider)
				return
			}
		}

		result := deps.Services.Sync.SyncUser(r.Context(), userID, provider)
		switch result.Status {
		case constants.SyncSuccess:
			common.RespondSuccess(w, initTime, "Sync completed", result)
		case constants.SyncRateLimited:
			common.RespondError(w, initTime, nil, result.Message, http.StatusTooManyRequests)
		default:
			common.RespondError(w, initTime, nil, result.Message, syncFailureStatus(result.Code))
		}
	}
}

// syncFailureStatus maps an error result's code onto the HTTP status of the JSON response.
func syncFailureStatus(code string) int {
	switch code {
	case constants.ErrCodeProviderOutage:
		return http.StatusServiceUnavailable
	case constants.ErrCodeConnectionRevoked:
		return http.StatusConflict
	case constants.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func streamSync(w http.ResponseWriter, r *http.Request, flusher http.Flusher, deps *Dependencies, userID, provider string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	progress := func(stage, message string) {
		writeEvent(w, "progress", dtos.SyncEvent{Stage: stage, Message: message})
		flusher.Flush()
	}
	result := deps.Services.Sync.SyncUserWithProgress(r.Context(), userID, provider, progress)

	writeEvent(w, result.Status.String(), result)
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		logging.Error("SSE encode failed", "event", event, "error", err)
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

// SyncRunsHandler handles GET /api/v1/sync/runs
func SyncRunsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		limit := defaultRunsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				common.RespondError(w, initTime, nil, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(parsed, 100)
		}

		runs, err := deps.Services.Sync.ListRuns(r.Context(), userID, limit)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to load sync runs", http.StatusInternalServerError)
			return
		}
		common.RespondSuccess(w, initTime, "Sync runs fetched successfully", runs)
	}
}

// SetConditionsHandler handles PUT /api/v1/sync/conditions/{provider}
func SetConditionsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ProviderConditionsRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}

		cond, err := deps.Services.Connections.SetConditions(r.Context(), services.ProviderConditions{
			Provider:  chi.URLParam(r, "provider"),
			Outage:    req.Outage,
			RateLimit: req.RateLimit,
			Delay:     req.Delay,
		})
		if err != nil {
			handleConnectionError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Provider conditions updated", cond)
	}
}

// GetConditionsHandler handles GET /api/v1/sync/conditions/{provider}
func GetConditionsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		provider := chi.URLParam(r, "provider")
		if !deps.Services.Connections.Supports(provider) {
			handleConnectionError(w, initTime, services.ErrUnsupportedProvider)
			return
		}

		cond, err := deps.Services.Connections.GetConditions(r.Context(), provider)
		if err != nil {
			handleConnectionError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Provider conditions fetched", cond)
	}
}
