package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Session events
	EventPlayerJoined EventType = "player_joined"
	EventPhaseChanged EventType = "phase_changed"
	EventPaused       EventType = "paused"
	EventResumed      EventType = "resumed"
	EventSessionReset EventType = "session_reset"
	EventStateChanged EventType = "state_changed"

	// Player events
	EventSlotsCommitted     EventType = "slots_committed"
	EventHandChanged        EventType = "hand_changed"
	EventExtractionResolved EventType = "extraction_resolved"
)

// Event is a change notification published for a session. Subscribers
// treat it as a hint to re-fetch; it never carries authoritative state.
type Event struct {
	Type      EventType `json:"type"`
	SessionID SessionID `json:"session_id"`
	PlayerID  PlayerID  `json:"player_id,omitempty"` // The player who triggered or is affected
	Phase     Phase     `json:"phase,omitempty"`
	Round     int       `json:"round,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
