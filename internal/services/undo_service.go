package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/constants"
	"summer-miles/ledger/internal/db/repositories"
	"summer-miles/ledger/internal/logging"
	"summer-miles/ledger/internal/metrics"
	gormModels "summer-miles/ledger/internal/models/gorm"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UndoAction is a reversible mutation. Each variant knows its stored type and how to reverse itself.
type UndoAction interface {
	Kind() string
	// Reverse undoes the mutation inside tx and returns the activity it touched, if any.
	Reverse(ctx context.Context, tx *gorm.DB, userID string) (activityID string, err error)
}

// CorrectMilesUndo removes the correction it refers to.
type CorrectMilesUndo struct {
	CorrectionID string `json:"correction_id"`
}

func (CorrectMilesUndo) Kind() string { return constants.ActionCorrectMiles }

func (u CorrectMilesUndo) Reverse(ctx context.Context, tx *gorm.DB, userID string) (string, error) {
	ledger := repositories.NewLedgerRepo(tx)
	correction, err := ledger.FindCorrection(ctx, u.CorrectionID)
	if err != nil {
		return "", err
	}
	if correction == nil {
		return "", nil
	}
	if _, err := ledger.DeleteCorrection(ctx, userID, u.CorrectionID); err != nil {
		return "", err
	}
	return correction.ActivityID, nil
}

// AddNoteUndo removes the most recent note on the activity that starts with NotePrefix.
type AddNoteUndo struct {
	ActivityID string `json:"activity_id"`
	NotePrefix string `json:"note_prefix"`
}

const notePrefixRunes = 40

// NewAddNoteUndo captures enough of body to find the note again.
func NewAddNoteUndo(activityID, body string) AddNoteUndo {
	body = strings.TrimSpace(body)
	if runes := []rune(body); len(runes) > notePrefixRunes {
		body = string(runes[:notePrefixRunes])
	}
	return AddNoteUndo{ActivityID: activityID, NotePrefix: body}
}

func (AddNoteUndo) Kind() string { return constants.ActionAddNote }

func (u AddNoteUndo) Reverse(ctx context.Context, tx *gorm.DB, userID string) (string, error) {
	if _, err := repositories.NewLedgerRepo(tx).DeleteLatestNoteWithPrefix(ctx, userID, u.ActivityID, u.NotePrefix); err != nil {
		return "", err
	}
	return u.ActivityID, nil
}

// undoDecoders maps a stored action_type to its variant.
var undoDecoders = map[string]func(datatypes.JSON) (UndoAction, error){
	constants.ActionCorrectMiles: decodeUndo[CorrectMilesUndo],
	constants.ActionAddNote:      decodeUndo[AddNoteUndo],
}

func decodeUndo[T UndoAction](payload datatypes.JSON) (UndoAction, error) {
	var action T
	if err := json.Unmarshal(payload, &action); err != nil {
		return nil, err
	}
	return action, nil
}

// DecodeUndoAction rebuilds the variant stored on a UserAction row.
func DecodeUndoAction(actionType string, payload datatypes.JSON) (UndoAction, error) {
	decode, ok := undoDecoders[actionType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownUndoAction, actionType)
	}
	return decode(payload)
}

type UndoResult struct {
	ActionID string
	NoOp     bool
}

// UndoService records undoable actions and reverses them within a fixed window.
type UndoService struct {
	store       *repositories.Store
	aggregation *AggregationService
	locks       *common.UserLocks
	window      time.Duration
	clock       Clock
}

func NewUndoService(store *repositories.Store, aggregation *AggregationService, locks *common.UserLocks, window time.Duration) *UndoService {
	return &UndoService{store: store, aggregation: aggregation, locks: locks, window: window}
}

func (s *UndoService) WithClock(clock Clock) *UndoService {
	s.clock = clock
	return s
}

// RecordAction stores action as pending with an expiry of now + window.
func (s *UndoService) RecordAction(ctx context.Context, userID string, action UndoAction) (*gormModels.UserAction, error) {
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("encode undo payload: %w", err)
	}

	now := s.clock.now()
	row := &gormModels.UserAction{
		ID:         uuid.NewString(),
		UserID:     userID,
		ActionType: action.Kind(),
		Payload:    datatypes.JSON(payload),
		ExpiresAt:  now.Add(s.window),
		CreatedAt:  now,
	}
	if err := repositories.NewActionRepo(s.store.DB()).Create(ctx, row); err != nil {
		return nil, fmt.Errorf("record action: %w", err)
	}
	return row, nil
}

// Undo reverses a pending action. Undoing an already undone action is a successful no-op.
func (s *UndoService) Undo(ctx context.Context, userID, actionID string) (UndoResult, error) {
	release := s.locks.Lock(userID)
	defer release()

	result := UndoResult{ActionID: actionID}
	var actionType string
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		actions := repositories.NewActionRepo(tx)

		row, err := actions.FindForUser(ctx, userID, actionID)
		if err != nil {
			return fmt.Errorf("load action: %w", err)
		}
		if row == nil {
			return ErrNotFound
		}
		actionType = row.ActionType

		if row.UndoneAt != nil {
			result.NoOp = true
			return nil
		}
		now := s.clock.now()
		if now.After(row.ExpiresAt) {
			return ErrExpired
		}

		action, err := DecodeUndoAction(row.ActionType, row.Payload)
		if err != nil {
			return err
		}
		activityID, err := action.Reverse(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("reverse %s: %w", row.ActionType, err)
		}

		marked, err := actions.MarkUndone(ctx, row.ID, now)
		if err != nil {
			return fmt.Errorf("mark undone: %w", err)
		}
		if !marked {
			return errors.New("action was undone concurrently")
		}

		if err := s.aggregation.recalculateInTx(ctx, tx, userID); err != nil {
			return err
		}
		if activityID == "" {
			return nil
		}
		activity, err := repositories.NewLedgerRepo(tx).FindActivity(ctx, activityID)
		if err != nil || activity == nil {
			return err
		}
		return s.aggregation.refreshDailyStatsInTx(ctx, tx, userID, []string{repositories.DayKey(activity.Ts)})
	})

	switch {
	case errors.Is(err, ErrNotFound):
		metrics.UndoTotal.WithLabelValues("unknown", "not_found").Inc()
		return result, err
	case errors.Is(err, ErrExpired):
		metrics.UndoTotal.WithLabelValues(actionType, "expired").Inc()
		return result, err
	case err != nil:
		logging.Error("Undo failed", "user_id", userID, "action_id", actionID, "error", err)
		return result, err
	case result.NoOp:
		metrics.UndoTotal.WithLabelValues(actionType, "noop").Inc()
	default:
		metrics.UndoTotal.WithLabelValues(actionType, "undone").Inc()
	}
	return result, nil
}
