package connector

import (
	"fmt"

	"github.com/simbridge/simbridge/internal/common/apperrors"
)

var (
	// ErrConnector is the base error for all connector errors.
	ErrConnector apperrors.Error = apperrors.New("connector error")

	// ErrInvalidState is matched by every *ValidationError. The snapshot was
	// rejected before any platform call.
	ErrInvalidState apperrors.Error = ErrConnector.New("invalid simulator state")

	// ErrInvalidDescriptor is returned when the descriptor cannot be decoded
	// into a registration body at all.
	ErrInvalidDescriptor apperrors.Error = ErrConnector.New("invalid simulator descriptor")

	// ErrRegistrationFailed wraps a failed session registration.
	ErrRegistrationFailed apperrors.Error = ErrConnector.New("simulator registration failed")

	// ErrUnknownEvent is returned when the platform sends an event type outside
	// the known set. The protocol is out of sync and the call cannot be retried.
	ErrUnknownEvent apperrors.Error = ErrConnector.New("unknown event type")

	// ErrSessionRevoked is matched by every *SessionRevokedError.
	ErrSessionRevoked apperrors.Error = ErrConnector.New("simulator session unregistered by platform")

	// ErrSessionNotRegistered is returned when advancing a connector with no
	// live session, e.g. after a revocation.
	ErrSessionNotRegistered apperrors.Error = ErrConnector.New("simulator session is not registered")

	// ErrSessionClosed is returned by any call on a closed connector.
	ErrSessionClosed apperrors.Error = ErrConnector.New("simulator session is closed")
)

// ValidationError describes the first value in a state snapshot that cannot
// be sent to the platform.
type ValidationError struct {
	Path  string // JSON pointer to the value, "" for the root
	Value any
	Type  string // Go type of Value
}

func (e *ValidationError) Error() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("element '%v' at %s not supported: %s", e.Value, path, e.Type)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidState
}

// SessionRevokedError is returned when the platform unregisters the session
// and the connector does not, or may no longer, re-register.
type SessionRevokedError struct {
	SessionID string
	Reason    string
	Details   string
}

func (e *SessionRevokedError) Error() string {
	msg := fmt.Sprintf("simulator session %s unregistered by platform", e.SessionID)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Details != "" {
		msg += " because of: " + e.Details
	}
	return msg
}

func (e *SessionRevokedError) Unwrap() error {
	return ErrSessionRevoked
}
