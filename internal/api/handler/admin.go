package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mcoot/diamondsgame/internal/api/middleware"
	"github.com/mcoot/diamondsgame/internal/api/response"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/services/phase"
	"github.com/mcoot/diamondsgame/internal/services/session"
)

// AdminHandler handles session control endpoints for elevated identities
type AdminHandler struct {
	sessions    *session.Controller
	coordinator *phase.Coordinator
	logger      *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sessions *session.Controller, coordinator *phase.Coordinator, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		sessions:    sessions,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Create handles POST /api/v1/sessions
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	state, err := h.sessions.CreateSession(r.Context(), *identity)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.SessionFromModel(state))
}

// Start handles POST /api/v1/sessions/{id}/start
func (h *AdminHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "start", h.coordinator.Start)
}

// Pause handles POST /api/v1/sessions/{id}/pause
func (h *AdminHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "pause", h.coordinator.Pause)
}

// Resume handles POST /api/v1/sessions/{id}/resume
func (h *AdminHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "resume", h.coordinator.Resume)
}

// Reset handles POST /api/v1/sessions/{id}/reset
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "reset", h.coordinator.Reset)
}

// control runs one admin action and answers with the resulting summary
func (h *AdminHandler) control(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, id model.SessionID) error) {
	id := sessionID(r)
	if err := fn(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("admin action",
		slog.String("action", action),
		slog.String("session_id", string(id)),
		slog.String("player_id", string(middleware.MustGetIdentity(r.Context()).PlayerID)),
	)

	state, err := h.sessions.GetState(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.SessionFromModel(state))
}
