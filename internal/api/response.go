package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"summer-miles/ledger/internal/auth"
	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/services"
)

const maxBodyBytes = 1 << 20

// currentUserID returns the acting user or writes a 401.
func currentUserID(w http.ResponseWriter, r *http.Request, initTime time.Time) (string, bool) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil || claims.UserID() == "" {
		common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
		return "", false
	}
	return claims.UserID(), true
}

// decodeJSON reads a bounded JSON body into dest or writes a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, initTime time.Time, dest interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// handleLedgerError maps activity, correction and query failures.
func handleLedgerError(w http.ResponseWriter, initTime time.Time, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		common.RespondError(w, initTime, err, "Activity not found", http.StatusNotFound)
	case errors.Is(err, services.ErrInvalidInput):
		common.RespondError(w, initTime, err, err.Error(), http.StatusBadRequest)
	default:
		common.RespondError(w, initTime, err, "An unexpected error occurred", http.StatusInternalServerError)
	}
}

// handleUndoError maps undo failures. An expired window is gone for good, hence 410.
func handleUndoError(w http.ResponseWriter, initTime time.Time, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		common.RespondError(w, initTime, err, "Action not found", http.StatusNotFound)
	case errors.Is(err, services.ErrExpired):
		common.RespondError(w, initTime, err, "Undo window has expired", http.StatusGone)
	default:
		common.RespondError(w, initTime, err, "An unexpected error occurred", http.StatusInternalServerError)
	}
}

// handleConnectionError maps token lifecycle failures.
func handleConnectionError(w http.ResponseWriter, initTime time.Time, err error) {
	switch {
	case errors.Is(err, services.ErrUnsupportedProvider):
		common.RespondError(w, initTime, err, constants.GetErrorMessage(constants.ErrCodeUnsupportedProvider), http.StatusNotFound)
	case errors.Is(err, services.ErrConnectionRevoked):
		common.RespondError(w, initTime, err, constants.GetErrorMessage(constants.ErrCodeConnectionRevoked), http.StatusConflict)
	case errors.Is(err, services.ErrProviderOutage):
		common.RespondError(w, initTime, err, constants.GetErrorMessage(constants.ErrCodeProviderOutage), http.StatusServiceUnavailable)
	case errors.Is(err, services.ErrInvalidInput):
		common.RespondError(w, initTime, err, err.Error(), http.StatusBadRequest)
	default:
		common.RespondError(w, initTime, err, "An unexpected error occurred", http.StatusInternalServerError)
	}
}
