package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/wordduel/internal/api/handler"
	"github.com/mcoot/wordduel/internal/api/middleware"
	"github.com/mcoot/wordduel/internal/api/response"
	sharedmw "github.com/mcoot/wordduel/internal/middleware"
	"github.com/mcoot/wordduel/internal/services/session"
	"github.com/mcoot/wordduel/internal/web/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger            *slog.Logger
	SessionController *session.Controller
	HubManager        *sse.HubManager
	StorageType       string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(cfg.SessionController, cfg.HubManager, cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(sharedmw.Logging(cfg.Logger))

	sessions := api.PathPrefix("/sessions").Subrouter()
	sessions.HandleFunc("", sessionHandler.Create).Methods(http.MethodPost)
	sessions.HandleFunc("/{key}", sessionHandler.Get).Methods(http.MethodGet)
	sessions.HandleFunc("/{key}/join", sessionHandler.Join).Methods(http.MethodPost)
	sessions.HandleFunc("/{key}/secret", sessionHandler.Secret).Methods(http.MethodPost)
	sessions.HandleFunc("/{key}/guess", sessionHandler.Guess).Methods(http.MethodPost)
	sessions.HandleFunc("/{key}/events", sessionHandler.Events).Methods(http.MethodGet)
	sessions.HandleFunc("/{key}/ws", sessionHandler.WebSocket).Methods(http.MethodGet)

	api.HandleFunc("/health", healthHandler(cfg.StorageType)).Methods(http.MethodGet)

	return r
}

func healthHandler(storageType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, response.Health{Status: "ok", Storage: storageType})
	}
}
