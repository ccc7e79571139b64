package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/diamondsgame/internal/api/middleware"
	"github.com/mcoot/diamondsgame/internal/api/request"
	"github.com/mcoot/diamondsgame/internal/api/response"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/services/extraction"
	"github.com/mcoot/diamondsgame/internal/services/phase"
	"github.com/mcoot/diamondsgame/internal/services/session"
)

// SessionHandler handles participant-facing session endpoints
type SessionHandler struct {
	sessions    *session.Controller
	coordinator *phase.Coordinator
	resolver    *extraction.Resolver
	logger      *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Controller, coordinator *phase.Coordinator, resolver *extraction.Resolver, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:    sessions,
		coordinator: coordinator,
		resolver:    resolver,
		logger:      logger,
	}
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	states, err := h.sessions.ListSessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]response.Session, len(states))
	for i, s := range states {
		out[i] = response.SessionFromModel(s)
	}
	response.JSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	view, err := h.sessions.View(r.Context(), sessionID(r), *identity)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, view)
}

// Join handles POST /api/v1/sessions/{id}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	if err := h.sessions.Join(r.Context(), sessionID(r), *identity); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// SubmitSlots handles PUT /api/v1/sessions/{id}/slots
func (h *SessionHandler) SubmitSlots(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.SubmitSlotsRequest
	if !decode(w, r, &req) {
		return
	}

	var cardIDs [model.SlotCount]model.CardID
	for i, id := range req.Slots {
		cardIDs[i] = model.CardID(id)
	}

	id := sessionID(r)
	assignment, err := h.sessions.SubmitSlots(r.Context(), id, identity.PlayerID, cardIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	// The last commitment in a round ends slotting early
	if _, err := h.coordinator.TryEarlyAdvance(r.Context(), id); err != nil {
		h.logger.Warn("early advance failed",
			slog.String("session_id", string(id)),
			slog.String("error", err.Error()),
		)
	}

	response.JSON(w, http.StatusOK, response.SlotsFromModel(assignment))
}

// Refresh handles POST /api/v1/sessions/{id}/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	hand, err := h.sessions.Refresh(r.Context(), sessionID(r), identity.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Hand{Cards: hand.Cards})
}

// Detector handles POST /api/v1/sessions/{id}/detector
func (h *SessionHandler) Detector(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	counts, err := h.sessions.Detector(r.Context(), sessionID(r), identity.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.DetectionFromModel(counts))
}

// GetExtraction handles GET /api/v1/sessions/{id}/extraction
func (h *SessionHandler) GetExtraction(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	offer, err := h.resolver.Offer(r.Context(), sessionID(r), identity.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, offer)
}

// ClaimExtraction handles POST /api/v1/sessions/{id}/extraction/claim
func (h *SessionHandler) ClaimExtraction(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.ClaimExtractionRequest
	if !decode(w, r, &req) {
		return
	}

	taken, err := h.resolver.Claim(r.Context(), sessionID(r), identity.PlayerID, model.CardID(req.CardID))
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, taken)
}

// DeclineExtraction handles POST /api/v1/sessions/{id}/extraction/decline
func (h *SessionHandler) DeclineExtraction(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	if err := h.resolver.Decline(r.Context(), sessionID(r), identity.PlayerID); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// Tick handles POST /api/v1/sessions/{id}/tick. Any participant may nudge
// an expired phase along when no driver is running.
func (h *SessionHandler) Tick(w http.ResponseWriter, r *http.Request) {
	advanced, err := h.coordinator.Tick(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Advanced{Advanced: advanced})
}
