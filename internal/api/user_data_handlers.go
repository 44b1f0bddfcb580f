package api

import (
	"net/http"
	"strconv"
	"time"

	"summer-miles/ledger/internal/common"
)

// AggregateHandler handles GET /api/v1/aggregate
func AggregateHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		agg, err := deps.Services.Query.Aggregate(r.Context(), userID)
		if err != nil {
			handleLedgerError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Aggregate fetched successfully", agg)
	}
}

// CommunityDailyHandler handles GET /api/v1/community/daily?days&crew_id
func CommunityDailyHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		days := 0
		if raw := r.URL.Query().Get("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				common.RespondError(w, initTime, nil, "days must be a positive integer", http.StatusBadRequest)
				return
			}
			days = parsed
		}

		stats, err := deps.Services.Query.CommunityDaily(r.Context(), r.URL.Query().Get("crew_id"), days)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to load community stats", http.StatusInternalServerError)
			return
		}
		common.RespondSuccess(w, initTime, "Community stats fetched successfully", stats)
	}
}

// ExportHandler handles GET /api/v1/export
func ExportHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		export, err := deps.Services.UserData.Export(r.Context(), userID)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to export user data", http.StatusInternalServerError)
			return
		}
		common.RespondSuccess(w, initTime, "User data exported", export)
	}
}

// DeleteMeHandler handles DELETE /api/v1/me
func DeleteMeHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		if err := deps.Services.UserData.DeleteUserData(r.Context(), userID); err != nil {
			common.RespondError(w, initTime, err, "Failed to delete user data", http.StatusInternalServerError)
			return
		}
		common.RespondSuccess(w, initTime, "User data deleted", nil)
	}
}
