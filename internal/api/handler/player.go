package handler

import (
	"net/http"

	"github.com/mcoot/diamondsgame/internal/api/middleware"
	"github.com/mcoot/diamondsgame/internal/api/request"
	"github.com/mcoot/diamondsgame/internal/api/response"
	"github.com/mcoot/diamondsgame/internal/services/auth"
)

// PlayerHandler handles identity endpoints
type PlayerHandler struct {
	auth *auth.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service) *PlayerHandler {
	return &PlayerHandler{auth: authService}
}

// CreateGuest handles POST /api/v1/players/guest
func (h *PlayerHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGuestRequest
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, http.StatusCreated)(h.auth.Guest(req.DisplayName))
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, http.StatusCreated)(h.auth.Register(r.Context(), req.Username, req.Password, req.DisplayName))
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	h.respond(w, http.StatusOK)(h.auth.Login(r.Context(), req.Username, req.Password))
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	response.JSON(w, http.StatusOK, response.PlayerFromIdentity(identity))
}

// respond writes an issued token or the error that prevented it
func (h *PlayerHandler) respond(w http.ResponseWriter, status int) func(*auth.Token, error) {
	return func(token *auth.Token, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		response.JSON(w, status, response.AuthResponseFromToken(token))
	}
}
