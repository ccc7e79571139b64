package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/diamondsgame/internal/api/apierr"
	"github.com/mcoot/diamondsgame/internal/api/middleware"
	"github.com/mcoot/diamondsgame/internal/services/session"
	"github.com/mcoot/diamondsgame/internal/sse"
)

// EventsHandler streams session events over SSE
type EventsHandler struct {
	sessions   *session.Controller
	hubManager *sse.HubManager
	logger     *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(sessions *session.Controller, hubManager *sse.HubManager, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		sessions:   sessions,
		hubManager: hubManager,
		logger:     logger,
	}
}

// Stream handles GET /api/v1/sessions/{id}/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	id := sessionID(r)

	if _, err := h.sessions.GetState(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	hub, err := h.hubManager.GetOrCreateHub(id)
	if err != nil {
		h.logger.Error("failed to open session stream",
			slog.String("session_id", string(id)),
			slog.String("error", err.Error()),
		)
		writeError(w, apierr.NewInternalError())
		return
	}

	sse.ServeSSE(w, r, hub, identity.PlayerID)
}
