package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/diamondsgame/internal/api/handler"
	"github.com/mcoot/diamondsgame/internal/api/middleware"
	"github.com/mcoot/diamondsgame/internal/services/auth"
	"github.com/mcoot/diamondsgame/internal/services/extraction"
	"github.com/mcoot/diamondsgame/internal/services/phase"
	"github.com/mcoot/diamondsgame/internal/services/session"
	"github.com/mcoot/diamondsgame/internal/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger             *slog.Logger
	AuthService        *auth.Service
	SessionController  *session.Controller
	Coordinator        *phase.Coordinator
	ExtractionResolver *extraction.Resolver
	HubManager         *sse.HubManager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	sessionHandler := handler.NewSessionHandler(cfg.SessionController, cfg.Coordinator, cfg.ExtractionResolver, cfg.Logger)
	adminHandler := handler.NewAdminHandler(cfg.SessionController, cfg.Coordinator, cfg.Logger)
	eventsHandler := handler.NewEventsHandler(cfg.SessionController, cfg.HubManager, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)

	// Session routes (all require auth)
	sessions := api.PathPrefix("/sessions").Subrouter()
	sessions.Use(authMiddleware)
	sessions.HandleFunc("", sessionHandler.List).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}", sessionHandler.Get).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}/join", sessionHandler.Join).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/slots", sessionHandler.SubmitSlots).Methods(http.MethodPut)
	sessions.HandleFunc("/{id}/refresh", sessionHandler.Refresh).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/detector", sessionHandler.Detector).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/extraction", sessionHandler.GetExtraction).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}/extraction/claim", sessionHandler.ClaimExtraction).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/extraction/decline", sessionHandler.DeclineExtraction).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/tick", sessionHandler.Tick).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/events", eventsHandler.Stream).Methods(http.MethodGet)

	// Admin routes
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }
	sessions.Handle("", admin(adminHandler.Create)).Methods(http.MethodPost)
	sessions.Handle("/{id}/start", admin(adminHandler.Start)).Methods(http.MethodPost)
	sessions.Handle("/{id}/pause", admin(adminHandler.Pause)).Methods(http.MethodPost)
	sessions.Handle("/{id}/resume", admin(adminHandler.Resume)).Methods(http.MethodPost)
	sessions.Handle("/{id}/reset", admin(adminHandler.Reset)).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
