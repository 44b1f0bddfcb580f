package services

import (
	"errors"
	"time"
)

var (
	// ErrNotFound means the referenced activity or action does not exist or is owned by someone else.
	ErrNotFound = errors.New("not found")

	// ErrExpired means the undo window has elapsed.
	ErrExpired = errors.New("undo window has expired")

	// ErrProviderOutage is returned when the provider is flagged as down.
	ErrProviderOutage = errors.New("provider outage")

	// ErrConnectionRevoked is terminal until the user reconnects.
	ErrConnectionRevoked = errors.New("connection revoked")

	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrInvalidInput        = errors.New("invalid input")

	errConstraintViolation = errors.New("constraint violation")
	errUnknownUndoAction   = errors.New("unknown undo action type")
)

// Clock returns the current time. Services take one so tests can move time.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
