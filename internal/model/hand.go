package model

// SlotCount is the number of positions in a battle array
const SlotCount = 5

// Hand is a player's private card holding, stored apart from GameState so
// that self-directed edits never contend with phase transitions.
type Hand struct {
	SessionID SessionID `json:"session_id"`
	PlayerID  PlayerID  `json:"player_id"`
	Cards     []Card    `json:"cards"`

	// SpentRound is the last round whose committed cards were consumed
	SpentRound int `json:"spent_round"`
	// EffectRound is the last round whose battle effects were applied
	EffectRound int `json:"effect_round"`
	// EvaluatedCards is the hand as it stood when EffectRound was
	// evaluated, written in the same update as the effects
	EvaluatedCards []Card `json:"evaluated_cards,omitempty"`
}

// EvaluationInput returns the cards a round's battle must be evaluated
// against. Once that round's effects are applied the live cards already
// carry cures and replacements, so the recorded pre-effect hand is used.
func (h *Hand) EvaluationInput(round int) []Card {
	if h.EffectRound >= round && h.EvaluatedCards != nil {
		return h.EvaluatedCards
	}
	return h.Cards
}

// Find returns the index of the card with the given id, or -1
func (h *Hand) Find(id CardID) int {
	for i := range h.Cards {
		if h.Cards[i].ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether the card is currently held
func (h *Hand) Contains(id CardID) bool {
	return h.Find(id) >= 0
}

// Remove drops the card from the hand, returning it if it was present
func (h *Hand) Remove(id CardID) (Card, bool) {
	idx := h.Find(id)
	if idx < 0 {
		return Card{}, false
	}
	card := h.Cards[idx]
	h.Cards = append(h.Cards[:idx], h.Cards[idx+1:]...)
	return card, true
}

// Replace swaps the card with the given id for another, keeping its position
func (h *Hand) Replace(id CardID, card Card) bool {
	idx := h.Find(id)
	if idx < 0 {
		return false
	}
	h.Cards[idx] = card
	return true
}

// Clone returns a deep copy of the hand
func (h *Hand) Clone() *Hand {
	c := *h
	c.Cards = make([]Card, len(h.Cards))
	for i, card := range h.Cards {
		c.Cards[i] = card.clone()
	}
	c.EvaluatedCards = cloneCards(h.EvaluatedCards)
	return &c
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	for i, card := range cards {
		out[i] = card.clone()
	}
	return out
}

func (c Card) clone() Card {
	if c.Standard != nil {
		s := *c.Standard
		c.Standard = &s
	}
	if c.Special != nil {
		s := *c.Special
		c.Special = &s
	}
	return c
}

// SlotAssignment is a player's committed battle array for one round.
// Every non-empty slot must reference a card currently in the player's hand.
type SlotAssignment struct {
	SessionID SessionID        `json:"session_id"`
	PlayerID  PlayerID         `json:"player_id"`
	Round     int              `json:"round"`
	Slots     [SlotCount]*Card `json:"slots"`
}

// Filled returns the number of non-empty slots
func (s *SlotAssignment) Filled() int {
	n := 0
	for _, c := range s.Slots {
		if c != nil {
			n++
		}
	}
	return n
}

// Cards returns the committed cards in slot order
func (s *SlotAssignment) Cards() []Card {
	var cards []Card
	for _, c := range s.Slots {
		if c != nil {
			cards = append(cards, *c)
		}
	}
	return cards
}

// FirstFilled returns the index of the first committed slot, or -1
func (s *SlotAssignment) FirstFilled() int {
	for i, c := range s.Slots {
		if c != nil {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the assignment
func (s *SlotAssignment) Clone() *SlotAssignment {
	c := *s
	for i, card := range s.Slots {
		if card != nil {
			cc := card.clone()
			c.Slots[i] = &cc
		}
	}
	return &c
}
