package storage

import (
	"context"

	"github.com/mcoot/diamondsgame/internal/model"
)

// Condition reports whether the stored state satisfies the precondition of
// a conditional update. It is evaluated against the current stored value
// inside the backend's atomic section.
type Condition func(state *model.GameState) bool

// Mutation changes a state in place once its Condition has held
type Mutation func(state *model.GameState)

// HandMutation changes a hand in place. Returning an error aborts the
// update and leaves the stored hand untouched.
type HandMutation func(hand *model.Hand) error

// Storage defines the interface for data persistence.
//
// GameState, hands and slot assignments are independently addressable so
// that a player editing their own slots never contends with a phase
// transition writing the session record.
type Storage interface {
	// Session state operations
	CreateState(ctx context.Context, state *model.GameState) error
	GetState(ctx context.Context, id model.SessionID) (*model.GameState, error)
	ListSessions(ctx context.Context) ([]model.SessionID, error)
	// UpdateStateIf atomically applies mutate iff cond holds against the
	// current stored state. It reports whether the update was applied; a
	// false result with a nil error is the normal outcome of losing a race.
	UpdateStateIf(ctx context.Context, id model.SessionID, cond Condition, mutate Mutation) (bool, error)

	// Entrant operations
	AddEntrant(ctx context.Context, id model.SessionID, entrant model.Entrant) error
	GetEntrants(ctx context.Context, id model.SessionID) ([]model.Entrant, error)

	// Hand operations
	SaveHand(ctx context.Context, hand *model.Hand) error
	GetHand(ctx context.Context, id model.SessionID, playerID model.PlayerID) (*model.Hand, error)
	GetHands(ctx context.Context, id model.SessionID) ([]*model.Hand, error)
	UpdateHand(ctx context.Context, id model.SessionID, playerID model.PlayerID, mutate HandMutation) (*model.Hand, error)
	DeleteHands(ctx context.Context, id model.SessionID) error

	// Slot operations
	SaveSlots(ctx context.Context, slots *model.SlotAssignment) error
	GetSlots(ctx context.Context, id model.SessionID, playerID model.PlayerID, round int) (*model.SlotAssignment, error)
	GetSlotsForRound(ctx context.Context, id model.SessionID, round int) ([]*model.SlotAssignment, error)
	DeleteSlots(ctx context.Context, id model.SessionID) error

	// Profile operations
	SaveProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, playerID model.PlayerID) (*model.Profile, error)

	// Account operations
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, playerID model.PlayerID) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)

	// Change notifications. The channel is closed once ctx is done.
	Publish(ctx context.Context, event model.Event) error
	Subscribe(ctx context.Context, id model.SessionID) (<-chan model.Event, error)
}

// PhaseIs matches a state at the given phase and round
func PhaseIs(phase model.Phase, round int) Condition {
	return func(s *model.GameState) bool {
		return s.Phase == phase && s.Round == round
	}
}

// MarkerIs matches a state whose election marker equals marker
func MarkerIs(marker string) Condition {
	return func(s *model.GameState) bool {
		return marker != "" && s.UpdateMarker == marker
	}
}

// All matches when every condition matches
func All(conds ...Condition) Condition {
	return func(s *model.GameState) bool {
		for _, c := range conds {
			if !c(s) {
				return false
			}
		}
		return true
	}
}

// Always matches any state
func Always(*model.GameState) bool {
	return true
}
