package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/wordduel/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeSessionNotFound        = "SESSION_NOT_FOUND"
	CodePlayerNotFound         = "PLAYER_NOT_FOUND"
	CodeSessionFull            = "SESSION_FULL"
	CodeAlreadyJoined          = "ALREADY_JOINED"
	CodeConflict               = "CONFLICT"
	CodeWrongPhase             = "WRONG_PHASE"
	CodeNotYourTurn            = "NOT_YOUR_TURN"
	CodeGameFinished           = "GAME_FINISHED"
	CodeSecretAlreadySubmitted = "SECRET_ALREADY_SUBMITTED"
	CodeOpponentSecretMissing  = "OPPONENT_SECRET_MISSING"
	CodeInvalidLength          = "INVALID_LENGTH"
	CodeNotFound               = "NOT_FOUND"
	CodeRejected               = "REJECTED"
	CodeNotSupported           = "NOT_SUPPORTED"
	CodeUnavailable            = "SERVICE_UNAVAILABLE"
	CodeInternalError          = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: he.apiError})
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	kind := model.KindOf(err)
	if kind == model.KindInternal {
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
	return &httpError{statusForKind(kind), APIError{codeFor(err, kind), err.Error()}}
}

func statusForKind(kind model.Kind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	case model.KindInvalidState, model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindUnimplemented:
		return http.StatusNotImplemented
	case model.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(err error, kind model.Kind) string {
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, model.ErrParticipantNotFound):
		return CodePlayerNotFound
	case errors.Is(err, model.ErrSessionFull):
		return CodeSessionFull
	case errors.Is(err, model.ErrAlreadyJoined):
		return CodeAlreadyJoined
	case errors.Is(err, model.ErrVersionConflict):
		return CodeConflict
	case errors.Is(err, model.ErrWrongPhase):
		return CodeWrongPhase
	case errors.Is(err, model.ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, model.ErrGameFinished):
		return CodeGameFinished
	case errors.Is(err, model.ErrSecretAlreadySubmitted):
		return CodeSecretAlreadySubmitted
	case errors.Is(err, model.ErrOpponentSecretMissing):
		return CodeOpponentSecretMissing
	case errors.Is(err, model.ErrInvalidLength):
		return CodeInvalidLength
	case errors.Is(err, model.ErrInvalidClientID), errors.Is(err, model.ErrInvalidKey):
		return CodeInvalidRequest
	}

	switch kind {
	case model.KindNotFound:
		return CodeNotFound
	case model.KindUnimplemented:
		return CodeNotSupported
	case model.KindUnavailable:
		return CodeUnavailable
	case model.KindConflict:
		return CodeConflict
	default:
		return CodeRejected
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
