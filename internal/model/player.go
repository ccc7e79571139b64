package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// PlayerStatus is a participant's standing within a session
type PlayerStatus string

const (
	StatusActive     PlayerStatus = "active"
	StatusEliminated PlayerStatus = "eliminated"
	StatusSurvived   PlayerStatus = "survived"
)

// GroupID identifies a dueling unit within a round
type GroupID string

// Player is a session participant. Owned by the session's GameState and
// never removed, only marked eliminated.
type Player struct {
	ID          PlayerID     `json:"id"`
	DisplayName string       `json:"display_name"`
	Score       int          `json:"score"`
	Status      PlayerStatus `json:"status"`
	GroupID     GroupID      `json:"group_id,omitempty"`
	IsZombie    bool         `json:"is_zombie"`

	// One-shot powers
	UsedRefresh            bool `json:"used_refresh"`
	UsedDetector           bool `json:"used_detector"`
	UsedFiveSlotDeployment bool `json:"used_five_slot_deployment"`
	FiveSlotRound          int  `json:"five_slot_round,omitempty"`

	// RoundAdjustment is the net score delta of the last resolution, for display
	RoundAdjustment int `json:"round_adjustment"`
}

// IsActive reports whether the player is still competing
func (p *Player) IsActive() bool {
	return p.Status == StatusActive
}

// Identity is an authenticated caller as resolved by the identity provider
type Identity struct {
	PlayerID    PlayerID `json:"player_id"`
	DisplayName string   `json:"display_name"`
	IsAdmin     bool     `json:"is_admin"`
	IsGuest     bool     `json:"is_guest"`
}

// Account is a registered identity
type Account struct {
	PlayerID     PlayerID  `json:"player_id"`
	Username     string    `json:"username"` // login username (immutable)
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"password_hash"` // bcrypt hash
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Entrant is a player who has joined a session
type Entrant struct {
	PlayerID    PlayerID  `json:"player_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Profile is the persisted cross-session record for a player
type Profile struct {
	PlayerID  PlayerID  `json:"player_id"`
	Score     int       `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}
