package api

import (
	"net/http"
	"strconv"
	"time"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/models/dtos"
	"summer-miles/ledger/internal/services"

	"github.com/go-chi/chi/v5"
)

// LogActivitiesHandler handles POST /api/v1/activities
func LogActivitiesHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		var req dtos.LogActivitiesRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if len(req.Activities) == 0 {
			common.RespondError(w, initTime, nil, "activities must not be empty", http.StatusBadRequest)
			return
		}

		inputs := make([]services.ActivityInput, 0, len(req.Activities))
		for _, a := range req.Activities {
			inputs = append(inputs, services.ActivityInput{
				Provider:           a.Provider,
				ExternalActivityID: a.ExternalActivityID,
				Timestamp:          a.Timestamp,
				DistanceMiles:      a.DistanceMiles,
				DurationMin:        a.DurationMin,
			})
		}

		result, err := deps.Services.Ingestion.InsertActivities(r.Context(), userID, inputs)
		if err != nil {
			handleLedgerError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Activities logged", result)
	}
}

// TimelineHandler handles GET /api/v1/activities?limit&cursor
func TimelineHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				common.RespondError(w, initTime, nil, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		page, err := deps.Services.Query.Timeline(r.Context(), userID, limit, r.URL.Query().Get("cursor"))
		if err != nil {
			handleLedgerError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Timeline fetched successfully", page)
	}
}

// GetActivityHandler handles GET /api/v1/activities/{activityID}
func GetActivityHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		item, err := deps.Services.Query.ActivityView(r.Context(), userID, chi.URLParam(r, "activityID"))
		if err != nil {
			handleLedgerError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Activity fetched successfully", item)
	}
}

// CorrectActivityHandler handles POST /api/v1/activities/{activityID}/corrections
func CorrectActivityHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		var req dtos.CorrectionRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}

		activityID := chi.URLParam(r, "activityID")
		correctionID, err := deps.Services.Corrections.CorrectActivity(r.Context(), services.CorrectionInput{
			UserID:     userID,
			ActivityID: activityID,
			DeltaMiles: req.DeltaMiles,
			Reason:     req.Reason,
			Source:     req.Source,
			Note:       req.Note,
		})
		if err != nil {
			handleLedgerError(w, initTime, err)
			return
		}

		resp := dtos.UndoableResponse{CorrectionID: correctionID}
		action, err := deps.Services.Undo.RecordAction(r.Context(), userID, services.CorrectMilesUndo{CorrectionID: correctionID})
		if err != nil {
			// The correction is committed; only the undo handle is missing.
			logging.Error("Failed to record undo action", "user_id", userID, "correction_id", correctionID, "error", err)
		} else {
			resp.ActionID = action.ID
			resp.UndoExpiresAt = action.ExpiresAt
		}
		common.RespondSuccess(w, initTime, "Correction recorded", resp, http.StatusCreated)
	}
}

// AddNoteHandler handles POST /api/v1/activities/{activityID}/notes
func AddNoteHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		var req dtos.NoteRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}

		activityID := chi.URLParam(r, "activityID")
		noteID, err := deps.Services.Corrections.AddNote(r.Context(), userID, activityID, req.Body)
		if err != nil {
			handleLedgerError(w, initTime, err)
			return
		}

		resp := dtos.UndoableResponse{NoteID: noteID}
		action, err := deps.Services.Undo.RecordAction(r.Context(), userID, services.NewAddNoteUndo(activityID, req.Body))
		if err != nil {
			logging.Error("Failed to record undo action", "user_id", userID, "note_id", noteID, "error", err)
		} else {
			resp.ActionID = action.ID
			resp.UndoExpiresAt = action.ExpiresAt
		}
		common.RespondSuccess(w, initTime, "Note added", resp, http.StatusCreated)
	}
}

// UndoHandler handles POST /api/v1/actions/{actionID}/undo
func UndoHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		userID, ok := currentUserID(w, r, initTime)
		if !ok {
			return
		}

		result, err := deps.Services.Undo.Undo(r.Context(), userID, chi.URLParam(r, "actionID"))
		if err != nil {
			handleUndoError(w, initTime, err)
			return
		}

		message := "Action undone"
		if result.NoOp {
			message = "Action was already undone"
		}
		common.RespondSuccess(w, initTime, message, dtos.UndoResponse{ActionID: result.ActionID, NoOp: result.NoOp})
	}
}
