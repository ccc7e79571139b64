package model

// ZombieValue is the slot value of an untreated zombie card
const ZombieValue = 999

// EffectKind tags a status change produced by a battle
type EffectKind string

const (
	EffectInfected    EffectKind = "infected"
	EffectCured       EffectKind = "cured"
	EffectNeutralized EffectKind = "neutralized"
	EffectEliminated  EffectKind = "eliminated"
)

// Effect reasons
const (
	ReasonZombieBite  = "zombie_bite"
	ReasonZombieHorde = "zombie_horde"
	ReasonInjection   = "injection"
	ReasonShotgun     = "shotgun"
	ReasonReinfected  = "reinfected"
	ReasonNoCards     = "no_cards"
)

// HandSlot marks an effect on a card still in hand rather than in a slot
const HandSlot = -1

// Effect records which player was affected by a battle, how and why.
// CardID and Replacement are set for card mutations (cure, neutralize): the
// card is replaced in place, keeping its id, by the standard Replacement.
type Effect struct {
	Kind        EffectKind `json:"kind"`
	PlayerID    PlayerID   `json:"player_id"`
	By          PlayerID   `json:"by,omitempty"`
	Slot        int        `json:"slot"`
	CardID      CardID     `json:"card_id,omitempty"`
	Replacement *Card      `json:"replacement,omitempty"`
	Reason      string     `json:"reason"`
}

// SlotValue is one participant's contribution to one slot
type SlotValue struct {
	Value int   `json:"value"`
	Card  *Card `json:"card,omitempty"`
}

// Breakdown is one participant's per-slot values and total
type Breakdown struct {
	PlayerID PlayerID             `json:"player_id"`
	Slots    [SlotCount]SlotValue `json:"slots"`
	Total    int                  `json:"total"`
}

// BattleResult is the outcome of one group's battle in one round
type BattleResult struct {
	GroupID    GroupID     `json:"group_id"`
	Round      int         `json:"round"`
	Winners    []PlayerID  `json:"winners"`
	Losers     []PlayerID  `json:"losers"`
	Eliminated []PlayerID  `json:"eliminated"`
	Breakdown  []Breakdown `json:"breakdown"`
	Effects    []Effect    `json:"effects"`
}

// HasOutcome reports whether the player received a win, loss or elimination
func (r *BattleResult) HasOutcome(id PlayerID) bool {
	return containsPlayer(r.Winners, id) || containsPlayer(r.Losers, id) || containsPlayer(r.Eliminated, id)
}

// IsWinner reports whether the player won this battle
func (r *BattleResult) IsWinner(id PlayerID) bool {
	return containsPlayer(r.Winners, id)
}

// IsLoser reports whether the player lost this battle
func (r *BattleResult) IsLoser(id PlayerID) bool {
	return containsPlayer(r.Losers, id)
}

// IsEliminated reports whether the player was eliminated by this battle
func (r *BattleResult) IsEliminated(id PlayerID) bool {
	return containsPlayer(r.Eliminated, id)
}

// BreakdownFor returns the participant's breakdown, or nil
func (r *BattleResult) BreakdownFor(id PlayerID) *Breakdown {
	for i := range r.Breakdown {
		if r.Breakdown[i].PlayerID == id {
			return &r.Breakdown[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the result
func (r BattleResult) Clone() BattleResult {
	c := r
	c.Winners = append([]PlayerID(nil), r.Winners...)
	c.Losers = append([]PlayerID(nil), r.Losers...)
	c.Eliminated = append([]PlayerID(nil), r.Eliminated...)
	c.Effects = make([]Effect, len(r.Effects))
	for i, e := range r.Effects {
		if e.Replacement != nil {
			rc := e.Replacement.clone()
			e.Replacement = &rc
		}
		c.Effects[i] = e
	}
	c.Breakdown = make([]Breakdown, len(r.Breakdown))
	for i, b := range r.Breakdown {
		for j, sv := range b.Slots {
			if sv.Card != nil {
				cc := sv.Card.clone()
				b.Slots[j].Card = &cc
			}
		}
		c.Breakdown[i] = b
	}
	return c
}

func containsPlayer(ids []PlayerID, id PlayerID) bool {
	for _, p := range ids {
		if p == id {
			return true
		}
	}
	return false
}
