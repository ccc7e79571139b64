package model

import "time"

// SessionID uniquely identifies a trial session
type SessionID string

// Phase is a step of the session state machine
type Phase string

const (
	PhaseIdle       Phase = "idle"       // Waiting for the external start signal
	PhaseBriefing   Phase = "briefing"   // Roster assembled, rules shown
	PhaseShuffle    Phase = "shuffle"    // Cards spent, groups assigned
	PhaseDealing    Phase = "dealing"    // Round 1 only: hands dealt
	PhaseSlotting   Phase = "slotting"   // Players arrange battle arrays
	PhaseEvaluation Phase = "evaluation" // Battles resolved
	PhaseScoring    Phase = "scoring"    // Score deltas applied
	PhasePicking    Phase = "picking"    // Winners extract a card
	PhaseEnd        Phase = "end"        // Terminal
)

// phaseOrder is the fixed ordering used to check forward progress
var phaseOrder = map[Phase]int{
	PhaseIdle:       0,
	PhaseBriefing:   1,
	PhaseShuffle:    2,
	PhaseDealing:    3,
	PhaseSlotting:   4,
	PhaseEvaluation: 5,
	PhaseScoring:    6,
	PhasePicking:    7,
	PhaseEnd:        8,
}

// Valid reports whether p is a known phase
func (p Phase) Valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// IsRest reports whether the phase never advances on a timer
func (p Phase) IsRest() bool {
	return p == PhaseIdle || p == PhaseEnd
}

// Before reports whether (p, round) strictly precedes (other, otherRound)
// in the session's forward sequence.
func (p Phase) Before(round int, other Phase, otherRound int) bool {
	if p == PhaseEnd || other == PhaseEnd {
		return p != PhaseEnd && other == PhaseEnd
	}
	if round != otherRound {
		return round < otherRound
	}
	return phaseOrder[p] < phaseOrder[other]
}

// RevealsSlots reports whether committed arrays are visible to opponents
func (p Phase) RevealsSlots() bool {
	return p == PhaseEvaluation || p == PhaseScoring || p == PhasePicking
}

// Group is one dueling unit for a round
type Group struct {
	ID      GroupID    `json:"id"`
	Members []PlayerID `json:"members"`
}

// ExtractionCandidate is a committed card a winner may take
type ExtractionCandidate struct {
	Owner PlayerID `json:"owner"`
	Card  Card     `json:"card"`
}

// ExtractionOffer is a single winner's steal opportunity for one group
type ExtractionOffer struct {
	GroupID    GroupID               `json:"group_id"`
	Winner     PlayerID              `json:"winner"`
	Candidates []ExtractionCandidate `json:"candidates"`
	Resolved   bool                  `json:"resolved"`
	Taken      *CardID               `json:"taken,omitempty"`
	// Escrow holds the chosen card, as its owner held it, while it moves
	// between hands. Any holder of the session's election guard can finish
	// the move from it.
	Escrow *ExtractionCandidate `json:"escrow,omitempty"`
}

// RoundData is transient per-round scratch, discarded at the next shuffle
// (the deck pool survives for bookkeeping).
type RoundData struct {
	Deck        []Card            `json:"deck,omitempty"`
	Groups      []Group           `json:"groups,omitempty"`
	Results     []BattleResult    `json:"results,omitempty"`
	Extractions []ExtractionOffer `json:"extractions,omitempty"`
}

// GameState is the singleton record of one session
type GameState struct {
	SessionID            SessionID     `json:"session_id"`
	Phase                Phase         `json:"phase"`
	Round                int           `json:"round"`
	Participants         []Player      `json:"participants"`
	RoundData            RoundData     `json:"round_data"`
	PhaseStartedAt       time.Time     `json:"phase_started_at"`
	PhaseDurationSeconds int           `json:"phase_duration_seconds"`
	IsPaused             bool          `json:"is_paused"`
	PausedElapsed        time.Duration `json:"paused_elapsed"`
	SystemStart          bool          `json:"system_start"`
	Seed                 uint64        `json:"seed"`

	// Election lease: set by the client that won the right to run the
	// current transition, cleared when it commits.
	UpdateMarker string    `json:"update_marker,omitempty"`
	MarkerAt     time.Time `json:"marker_at,omitempty"`

	// Epoch increments on every forced reset
	Epoch     int       `json:"epoch"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Participant returns the participant with the given id, or nil
func (g *GameState) Participant(id PlayerID) *Player {
	for i := range g.Participants {
		if g.Participants[i].ID == id {
			return &g.Participants[i]
		}
	}
	return nil
}

// ActivePlayers returns the ids of every active participant in roster order
func (g *GameState) ActivePlayers() []PlayerID {
	var ids []PlayerID
	for _, p := range g.Participants {
		if p.IsActive() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// GroupOf returns the group containing the player this round, or nil
func (g *GameState) GroupOf(id PlayerID) *Group {
	for i := range g.RoundData.Groups {
		for _, m := range g.RoundData.Groups[i].Members {
			if m == id {
				return &g.RoundData.Groups[i]
			}
		}
	}
	return nil
}

// Remaining returns the time left in the current phase, clamped at zero.
// While paused the clock is frozen at the elapsed time recorded on pause.
func (g *GameState) Remaining(now time.Time) time.Duration {
	duration := time.Duration(g.PhaseDurationSeconds) * time.Second
	elapsed := now.Sub(g.PhaseStartedAt)
	if g.IsPaused {
		elapsed = g.PausedElapsed
	}
	remaining := duration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clone returns a deep copy so callers can mutate without aliasing storage
func (g *GameState) Clone() *GameState {
	c := *g
	c.Participants = append([]Player(nil), g.Participants...)
	c.RoundData = g.RoundData.clone()
	return &c
}

func (r RoundData) clone() RoundData {
	c := RoundData{
		Results: make([]BattleResult, len(r.Results)),
	}
	for _, card := range r.Deck {
		c.Deck = append(c.Deck, card.clone())
	}
	for i, res := range r.Results {
		c.Results[i] = res.Clone()
	}
	for _, grp := range r.Groups {
		c.Groups = append(c.Groups, Group{ID: grp.ID, Members: append([]PlayerID(nil), grp.Members...)})
	}
	for _, off := range r.Extractions {
		o := off
		o.Candidates = nil
		for _, cand := range off.Candidates {
			o.Candidates = append(o.Candidates, ExtractionCandidate{Owner: cand.Owner, Card: cand.Card.clone()})
		}
		if off.Taken != nil {
			taken := *off.Taken
			o.Taken = &taken
		}
		if off.Escrow != nil {
			o.Escrow = &ExtractionCandidate{Owner: off.Escrow.Owner, Card: off.Escrow.Card.clone()}
		}
		c.Extractions = append(c.Extractions, o)
	}
	if len(c.Results) == 0 {
		c.Results = nil
	}
	return c
}
