package model

import (
	"fmt"
	"strconv"
)

// CardID uniquely identifies a card within a session
type CardID string

// CardKind discriminates the two card shapes
type CardKind string

const (
	CardKindStandard CardKind = "standard"
	CardKindSpecial  CardKind = "special"
)

// Suit of a standard card
type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

// Suits lists every suit in generation order
var Suits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Rank is the numeric face value of a standard card (2..14, J=11 ... A=14)
type Rank int

const (
	RankMin   Rank = 2
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
	RankAce   Rank = 14
	RankMax   Rank = RankAce
)

// String returns the face label of the rank
func (r Rank) String() string {
	switch r {
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	case RankAce:
		return "A"
	default:
		return strconv.Itoa(int(r))
	}
}

// Valid reports whether the rank is within 2..A
func (r Rank) Valid() bool {
	return r >= RankMin && r <= RankMax
}

// SpecialType identifies the behaviour of a special card
type SpecialType string

const (
	SpecialZombie    SpecialType = "zombie"
	SpecialInjection SpecialType = "injection"
	SpecialShotgun   SpecialType = "shotgun"
)

// StandardFace holds the fields of a standard card
type StandardFace struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// SpecialFace holds the fields of a special card
type SpecialFace struct {
	Type          SpecialType `json:"type"`
	UsesRemaining int         `json:"uses_remaining"`
}

// Card is a tagged union: exactly one of Standard or Special is set,
// matching Kind.
type Card struct {
	ID       CardID        `json:"id"`
	Kind     CardKind      `json:"kind"`
	Standard *StandardFace `json:"standard,omitempty"`
	Special  *SpecialFace  `json:"special,omitempty"`
}

// NewStandardCard builds a standard card
func NewStandardCard(id CardID, rank Rank, suit Suit) Card {
	return Card{
		ID:       id,
		Kind:     CardKindStandard,
		Standard: &StandardFace{Rank: rank, Suit: suit},
	}
}

// NewSpecialCard builds a single-use special card
func NewSpecialCard(id CardID, t SpecialType) Card {
	return Card{
		ID:      id,
		Kind:    CardKindSpecial,
		Special: &SpecialFace{Type: t, UsesRemaining: 1},
	}
}

// Validate checks that the card's populated face matches its kind
func (c Card) Validate() error {
	switch c.Kind {
	case CardKindStandard:
		if c.Standard == nil || c.Special != nil || !c.Standard.Rank.Valid() {
			return fmt.Errorf("%w: %s", ErrMalformedCard, c.ID)
		}
	case CardKindSpecial:
		if c.Special == nil || c.Standard != nil {
			return fmt.Errorf("%w: %s", ErrMalformedCard, c.ID)
		}
		switch c.Special.Type {
		case SpecialZombie, SpecialInjection, SpecialShotgun:
		default:
			return fmt.Errorf("%w: %s has special type %q", ErrMalformedCard, c.ID, c.Special.Type)
		}
	default:
		return fmt.Errorf("%w: %s has kind %q", ErrMalformedCard, c.ID, c.Kind)
	}
	return nil
}

// IsStandard reports whether the card is a standard card
func (c Card) IsStandard() bool {
	return c.Kind == CardKindStandard && c.Standard != nil
}

// IsSpecial reports whether the card is a special card of the given type
func (c Card) IsSpecial(t SpecialType) bool {
	return c.Kind == CardKindSpecial && c.Special != nil && c.Special.Type == t
}

// Value returns the face value of a standard card, 0 for anything else
func (c Card) Value() int {
	if !c.IsStandard() {
		return 0
	}
	return int(c.Standard.Rank)
}

// String renders the card for logs and CLI output
func (c Card) String() string {
	switch c.Kind {
	case CardKindStandard:
		if c.Standard == nil {
			return "?"
		}
		return c.Standard.Rank.String() + suitSymbol(c.Standard.Suit)
	case CardKindSpecial:
		if c.Special == nil {
			return "?"
		}
		return string(c.Special.Type)
	default:
		return "?"
	}
}

func suitSymbol(s Suit) string {
	switch s {
	case SuitHearts:
		return "♥"
	case SuitDiamonds:
		return "♦"
	case SuitClubs:
		return "♣"
	case SuitSpades:
		return "♠"
	default:
		return "?"
	}
}
