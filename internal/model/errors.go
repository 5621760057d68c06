package model

import "errors"

// Kind classifies an error for callers that need to decide how to report it
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidState
	KindInvalidInput
	KindUnimplemented
	KindUnavailable
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnimplemented:
		return "unimplemented"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a domain error with a kind
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of the first domain error in err's chain,
// or KindInternal if there is none
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Common errors used across the application
var (
	// Not found
	ErrSessionNotFound     = newError(KindNotFound, "session not found")
	ErrParticipantNotFound = newError(KindNotFound, "player not found in session")

	// Conflict
	ErrSessionFull     = newError(KindConflict, "session is full")
	ErrAlreadyJoined   = newError(KindConflict, "client has already joined this session")
	ErrSessionExists   = newError(KindConflict, "session key already in use")
	ErrVersionConflict = newError(KindConflict, "session was modified concurrently")

	// Invalid state
	ErrWrongPhase             = newError(KindInvalidState, "session is not in the required phase")
	ErrNotYourTurn            = newError(KindInvalidState, "not your turn")
	ErrSecretAlreadySubmitted = newError(KindInvalidState, "secret already submitted")
	ErrOpponentSecretMissing  = newError(KindInvalidState, "opponent has not set a secret yet")
	ErrGameFinished           = newError(KindInvalidState, "game is already finished")

	// Invalid input
	ErrInvalidLength   = newError(KindInvalidInput, "word has the wrong length")
	ErrInvalidClientID = newError(KindInvalidInput, "client id is required")
	ErrInvalidKey      = newError(KindInvalidInput, "session key is malformed")

	// Unavailable
	ErrKeyGeneration = newError(KindUnavailable, "could not allocate a unique session key")

	// Unimplemented
	ErrEvaluationUnavailable = newError(KindUnimplemented, "server-side evaluation is not available")
)
