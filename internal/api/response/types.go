package response

import (
	"time"

	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/services/auth"
)

// Player represents an identity in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	IsAdmin     bool   `json:"is_admin,omitempty"`
}

// PlayerFromIdentity converts a model.Identity to a response Player
func PlayerFromIdentity(i *model.Identity) Player {
	return Player{
		ID:          string(i.PlayerID),
		DisplayName: i.DisplayName,
		IsGuest:     i.IsGuest,
		IsAdmin:     i.IsAdmin,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player    Player    `json:"player"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromToken creates an AuthResponse from an issued token
func AuthResponseFromToken(t *auth.Token) AuthResponse {
	return AuthResponse{
		Player:    PlayerFromIdentity(&t.Identity),
		Token:     t.Token,
		ExpiresAt: t.ExpiresAt,
	}
}

// Session summarises a session for listings
type Session struct {
	ID           string `json:"id"`
	Phase        string `json:"phase"`
	Round        int    `json:"round"`
	IsPaused     bool   `json:"is_paused"`
	Participants int    `json:"participants"`
	Active       int    `json:"active"`
}

// SessionFromModel converts model.GameState
func SessionFromModel(s *model.GameState) Session {
	return Session{
		ID:           string(s.SessionID),
		Phase:        string(s.Phase),
		Round:        s.Round,
		IsPaused:     s.IsPaused,
		Participants: len(s.Participants),
		Active:       len(s.ActivePlayers()),
	}
}

// Slots is a committed array. Unfilled slots are null.
type Slots struct {
	Round int           `json:"round"`
	Slots []*model.Card `json:"slots"`
}

// SlotsFromModel converts model.SlotAssignment
func SlotsFromModel(a *model.SlotAssignment) Slots {
	slots := make([]*model.Card, len(a.Slots))
	copy(slots, a.Slots[:])
	return Slots{
		Round: a.Round,
		Slots: slots,
	}
}

// Hand is a player's held cards
type Hand struct {
	Cards []model.Card `json:"cards"`
}

// Detection is the special-card count of each groupmate
type Detection struct {
	Groupmates map[string]map[string]int `json:"groupmates"`
}

// DetectionFromModel converts a detector reading
func DetectionFromModel(counts map[model.PlayerID]map[model.SpecialType]int) Detection {
	out := make(map[string]map[string]int, len(counts))
	for pid, byType := range counts {
		inner := make(map[string]int, len(byType))
		for t, n := range byType {
			inner[string(t)] = n
		}
		out[string(pid)] = inner
	}
	return Detection{Groupmates: out}
}

// Advanced reports whether a call moved the session on
type Advanced struct {
	Advanced bool `json:"advanced"`
}
