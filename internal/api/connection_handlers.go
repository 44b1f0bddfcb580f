package api

import (
	"net/http"
	"time"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/models/dtos"

	"github.com/go-chi/chi/v5"
)

// GetConnectionHandler handles GET /api/v1/connections/{provider}
func GetConnectionHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		details, err := deps.Services.Connections.GetConnectionDetails(r.Context(), userID, chi.URLParam(r, "provider"))
		if err != nil {
			handleConnectionError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection fetched successfully", details)
	}
}

// RefreshConnectionHandler handles POST /api/v1/connections/{provider}/refresh
func RefreshConnectionHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		details, err := deps.Services.Connections.RefreshSimulatedToken(r.Context(), userID, chi.URLParam(r, "provider"))
		if err != nil {
			handleConnectionError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Token refreshed", details)
	}
}

// BreakConnectionHandler handles POST /api/v1/connections/{provider}/break
func BreakConnectionHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		var req dtos.BreakConnectionRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}

		details, err := deps.Services.Connections.SimulateBreak(r.Context(), userID, chi.URLParam(r, "provider"), constants.BreakMode(req.Mode))
		if err != nil {
			handleConnectionError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection broken", details)
	}
}

// ReconnectHandler handles POST /api/v1/connections/{provider}/reconnect
func ReconnectHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		details, err := deps.Services.Connections.Reconnect(r.Context(), userID, chi.URLParam(r, "provider"))
		if err != nil {
			handleConnectionError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection restored", details)
	}
}
