package session

import (
	"context"
	"errors"

	"github.com/mcoot/diamondsgame/internal/model"
)

// PublicPlayer is the part of a participant everyone may see
type PublicPlayer struct {
	ID              model.PlayerID     `json:"id"`
	DisplayName     string             `json:"display_name"`
	Score           int                `json:"score"`
	Status          model.PlayerStatus `json:"status"`
	GroupID         model.GroupID      `json:"group_id,omitempty"`
	IsZombie        bool               `json:"is_zombie"`
	RoundAdjustment int                `json:"round_adjustment"`
}

// View is one caller's projection of a session. Hidden information (other
// hands, opponents' arrays before evaluation) never appears in it.
type View struct {
	SessionID        model.SessionID         `json:"session_id"`
	Phase            model.Phase             `json:"phase"`
	Round            int                     `json:"round"`
	RemainingSeconds int                     `json:"remaining_seconds"`
	IsPaused         bool                    `json:"is_paused"`
	Entrants         []model.Entrant         `json:"entrants"`
	Participants     []PublicPlayer          `json:"participants"`
	Groups           []model.Group           `json:"groups,omitempty"`
	Me               *model.Player           `json:"me,omitempty"`
	Hand             []model.Card            `json:"hand,omitempty"`
	Slots            *model.SlotAssignment   `json:"slots,omitempty"`
	Revealed         []*model.SlotAssignment `json:"revealed,omitempty"`
	Results          []model.BattleResult    `json:"results,omitempty"`
	Extraction       *model.ExtractionOffer  `json:"extraction,omitempty"`
}

// View builds the caller's projection of the session
func (c *Controller) View(ctx context.Context, id model.SessionID, caller model.Identity) (*View, error) {
	state, err := c.storage.GetState(ctx, id)
	if err != nil {
		return nil, err
	}
	entrants, err := c.storage.GetEntrants(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &View{
		SessionID:        state.SessionID,
		Phase:            state.Phase,
		Round:            state.Round,
		RemainingSeconds: int(state.Remaining(c.clock.Now()).Seconds()),
		IsPaused:         state.IsPaused,
		Entrants:         entrants,
		Groups:           state.RoundData.Groups,
	}
	for _, p := range state.Participants {
		view.Participants = append(view.Participants, PublicPlayer{
			ID:              p.ID,
			DisplayName:     p.DisplayName,
			Score:           p.Score,
			Status:          p.Status,
			GroupID:         p.GroupID,
			IsZombie:        p.IsZombie,
			RoundAdjustment: p.RoundAdjustment,
		})
	}

	if state.Phase.RevealsSlots() {
		view.Results = state.RoundData.Results
	}

	me := state.Participant(caller.PlayerID)
	if me != nil {
		view.Me = me
		if err := c.fillOwn(ctx, state, view); err != nil {
			return nil, err
		}
	}

	if state.Phase.RevealsSlots() {
		revealed, err := c.revealed(ctx, state, caller)
		if err != nil {
			return nil, err
		}
		view.Revealed = revealed
	}

	return view, nil
}

// fillOwn adds the caller's private hand, array and extraction offer
func (c *Controller) fillOwn(ctx context.Context, state *model.GameState, view *View) error {
	id := view.Me.ID

	hand, err := c.storage.GetHand(ctx, state.SessionID, id)
	switch {
	case err == nil:
		view.Hand = hand.Cards
	case !errors.Is(err, model.ErrHandNotFound):
		return err
	}

	if state.Round > 0 {
		slots, err := c.storage.GetSlots(ctx, state.SessionID, id, state.Round)
		switch {
		case err == nil:
			view.Slots = slots
		case !errors.Is(err, model.ErrSlotsNotFound):
			return err
		}
	}

	if state.Phase == model.PhasePicking {
		for i := range state.RoundData.Extractions {
			if state.RoundData.Extractions[i].Winner == id {
				offer := state.RoundData.Extractions[i]
				view.Extraction = &offer
				break
			}
		}
	}
	return nil
}

// revealed returns the arrays the caller may see once battles are resolved:
// their groupmates' for a participant, every array for an observer
func (c *Controller) revealed(ctx context.Context, state *model.GameState, caller model.Identity) ([]*model.SlotAssignment, error) {
	all, err := c.storage.GetSlotsForRound(ctx, state.SessionID, state.Round)
	if err != nil {
		return nil, err
	}
	if caller.IsAdmin {
		return all, nil
	}

	group := state.GroupOf(caller.PlayerID)
	if group == nil {
		return nil, nil
	}
	var out []*model.SlotAssignment
	for _, slots := range all {
		if slots.PlayerID == caller.PlayerID {
			continue
		}
		for _, m := range group.Members {
			if m == slots.PlayerID {
				out = append(out, slots)
				break
			}
		}
	}
	return out, nil
}
