package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mcoot/wordduel/internal/api/request"
	"github.com/mcoot/wordduel/internal/api/response"
	"github.com/mcoot/wordduel/internal/model"
	"github.com/mcoot/wordduel/internal/services/session"
	"github.com/mcoot/wordduel/internal/web/sse"
	"github.com/mcoot/wordduel/internal/web/ws"
)

// SessionHandler handles session endpoints
type SessionHandler struct {
	controller *session.Controller
	hubManager *sse.HubManager
	wsHandler  *ws.Handler
	logger     *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(controller *session.Controller, hubManager *sse.HubManager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		hubManager: hubManager,
		wsHandler:  ws.NewHandler(logger),
		logger:     logger,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := h.controller.CreateSession(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.CreateSessionFromModel(s))
}

// Get handles GET /api/v1/sessions/{key}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, err := sessionKey(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	state, err := h.controller.GetState(r.Context(), key)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionStateFromModel(*state))
}

// Join handles POST /api/v1/sessions/{key}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	key, err := sessionKey(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.ClientID == "" {
		WriteError(w, NewInvalidRequestError("client_id is required"))
		return
	}

	index, err := h.controller.JoinSession(r.Context(), key, model.ClientID(req.ClientID), req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.JoinResponse{
		Success:     true,
		Message:     "joined session",
		PlayerIndex: index,
	})
}

// Secret handles POST /api/v1/sessions/{key}/secret
func (h *SessionHandler) Secret(w http.ResponseWriter, r *http.Request) {
	key, err := sessionKey(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.SecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.ClientID == "" {
		WriteError(w, NewInvalidRequestError("client_id is required"))
		return
	}

	if err := h.controller.SubmitSecret(r.Context(), key, model.ClientID(req.ClientID), req.Secret); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SuccessResponse{
		Success: true,
		Message: "secret accepted",
	})
}

// Guess handles POST /api/v1/sessions/{key}/guess
func (h *SessionHandler) Guess(w http.ResponseWriter, r *http.Request) {
	key, err := sessionKey(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.GuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.ClientID == "" {
		WriteError(w, NewInvalidRequestError("client_id is required"))
		return
	}

	result, err := h.controller.SubmitGuess(r.Context(), key, model.ClientID(req.ClientID), req.Guess)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GuessResultFromModel(*result))
}

// Events handles the SSE stream at GET /api/v1/sessions/{key}/events
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	key, client, initial, ok := h.subscribe(w, r, "sse")
	if !ok {
		return
	}
	h.logger.Debug("sse subscriber connected", slog.String("session", string(key)))

	sse.ServeSSE(w, r, client, initial)
}

// WebSocket handles the WebSocket stream at GET /api/v1/sessions/{key}/ws
func (h *SessionHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	key, client, initial, ok := h.subscribe(w, r, "ws")
	if !ok {
		return
	}
	h.logger.Debug("ws subscriber connected", slog.String("session", string(key)))

	h.wsHandler.Serve(w, r, client, initial)
}

// subscribe registers a hub client and captures the initial snapshot.
// Subscribing before loading the state means no committed change can fall
// between the snapshot and the first pushed event.
func (h *SessionHandler) subscribe(w http.ResponseWriter, r *http.Request, transport string) (model.SessionKey, *sse.Client, *sse.Event, bool) {
	key, err := sessionKey(r)
	if err != nil {
		WriteError(w, err)
		return "", nil, nil, false
	}

	client := h.hubManager.Subscribe(key, uuid.NewString(), transport)

	state, err := h.controller.GetState(r.Context(), key)
	if err != nil {
		client.Close()
		if errors.Is(err, model.ErrSessionNotFound) {
			// Nobody can follow a session that does not exist
			h.hubManager.RemoveHub(key)
		}
		WriteError(w, err)
		return "", nil, nil, false
	}

	initial, err := sse.NewEvent(model.EventState, response.SessionStateFromModel(*state))
	if err != nil {
		client.Close()
		WriteError(w, err)
		return "", nil, nil, false
	}

	return key, client, &initial, true
}

func sessionKey(r *http.Request) (model.SessionKey, error) {
	return session.ParseKey(mux.Vars(r)["key"])
}
