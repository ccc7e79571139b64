package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/diamondsgame/internal/dependencies/clock"
	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/services/deck"
	"github.com/mcoot/diamondsgame/internal/services/profile"
	"github.com/mcoot/diamondsgame/internal/storage"
)

// Controller handles sessions and the self-directed player actions. A
// player only ever writes their own slots, hand and power flags here; every
// cross-player write belongs to the phase Coordinator.
type Controller struct {
	storage  storage.Storage
	profiles *profile.Service
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
}

// NewController creates a new session Controller
func NewController(
	storage storage.Storage,
	profiles *profile.Service,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:  storage,
		profiles: profiles,
		clock:    clock,
		random:   random,
		logger:   logger.With(slog.String("component", "session")),
	}
}

// CreateSession creates an idle session. Only elevated identities may.
func (c *Controller) CreateSession(ctx context.Context, caller model.Identity) (*model.GameState, error) {
	if !caller.IsAdmin {
		return nil, model.ErrNotAdmin
	}

	now := c.clock.Now()
	state := &model.GameState{
		SessionID:      model.SessionID(uuid.NewString()),
		Phase:          model.PhaseIdle,
		PhaseStartedAt: now,
		Seed:           c.random.Uint64(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.storage.CreateState(ctx, state); err != nil {
		return nil, err
	}

	c.logger.Info("session created",
		slog.String("session_id", string(state.SessionID)),
		slog.String("created_by", string(caller.PlayerID)),
	)
	return state, nil
}

// GetState returns the raw session state
func (c *Controller) GetState(ctx context.Context, id model.SessionID) (*model.GameState, error) {
	return c.storage.GetState(ctx, id)
}

// ListSessions returns every known session's state
func (c *Controller) ListSessions(ctx context.Context) ([]*model.GameState, error) {
	ids, err := c.storage.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	states := make([]*model.GameState, 0, len(ids))
	for _, id := range ids {
		state, err := c.storage.GetState(ctx, id)
		if errors.Is(err, model.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

// Join adds the caller to the session's entrants. Joining during briefing
// also places the caller on the already-built roster.
func (c *Controller) Join(ctx context.Context, id model.SessionID, caller model.Identity) error {
	if caller.IsAdmin {
		return model.ErrAdminNotEligible
	}
	state, err := c.storage.GetState(ctx, id)
	if err != nil {
		return err
	}
	if state.Phase != model.PhaseIdle && state.Phase != model.PhaseBriefing {
		return model.ErrSessionInProgress
	}

	if err := c.storage.AddEntrant(ctx, id, model.Entrant{
		PlayerID:    caller.PlayerID,
		DisplayName: caller.DisplayName,
		JoinedAt:    c.clock.Now(),
	}); err != nil {
		return err
	}

	if state.Phase == model.PhaseBriefing {
		score, err := c.profiles.CarriedScore(ctx, caller.PlayerID)
		if err != nil {
			return err
		}
		if _, err := c.storage.UpdateStateIf(ctx, id,
			func(s *model.GameState) bool {
				return s.Phase == model.PhaseBriefing && s.UpdateMarker == "" && s.Participant(caller.PlayerID) == nil
			},
			func(s *model.GameState) {
				s.Participants = append(s.Participants, model.Player{
					ID:          caller.PlayerID,
					DisplayName: caller.DisplayName,
					Score:       score,
					Status:      model.StatusActive,
				})
				s.UpdatedAt = c.clock.Now()
			}); err != nil {
			return err
		}
	}

	c.logger.Info("player joined",
		slog.String("session_id", string(id)),
		slog.String("player_id", string(caller.PlayerID)),
	)
	c.emit(ctx, id, caller.PlayerID, model.EventPlayerJoined)
	return nil
}

// SubmitSlots commits the caller's battle array for the current round.
// Empty entries in cardIDs leave a slot empty. Filling more than one slot
// spends the caller's one multi-card deployment, which may then be revised
// freely for the rest of that round.
func (c *Controller) SubmitSlots(ctx context.Context, id model.SessionID, playerID model.PlayerID, cardIDs [model.SlotCount]model.CardID) (*model.SlotAssignment, error) {
	state, player, err := c.activeInSlotting(ctx, id, playerID)
	if err != nil {
		return nil, err
	}

	seen := make(map[model.CardID]bool)
	filled := 0
	for _, cid := range cardIDs {
		if cid == "" {
			continue
		}
		if seen[cid] {
			return nil, model.ErrDuplicateCard
		}
		seen[cid] = true
		filled++
	}
	if filled == 0 {
		return nil, model.ErrEmptyDeployment
	}

	hand, err := c.storage.GetHand(ctx, id, playerID)
	if err != nil {
		return nil, err
	}

	slots := &model.SlotAssignment{SessionID: id, PlayerID: playerID, Round: state.Round}
	for k, cid := range cardIDs {
		if cid == "" {
			continue
		}
		idx := hand.Find(cid)
		if idx < 0 {
			return nil, model.ErrCardNotInHand
		}
		card := hand.Cards[idx]
		slots.Slots[k] = &card
	}

	if filled > 1 && player.FiveSlotRound != state.Round {
		if player.UsedFiveSlotDeployment {
			return nil, model.ErrDeploymentLimit
		}
		round := state.Round
		err := c.markPower(ctx, state, playerID,
			func(p *model.Player) bool { return !p.UsedFiveSlotDeployment || p.FiveSlotRound == round },
			func(p *model.Player) {
				p.UsedFiveSlotDeployment = true
				p.FiveSlotRound = round
			},
			model.ErrDeploymentLimit)
		if err != nil {
			return nil, err
		}
	}

	if err := c.storage.SaveSlots(ctx, slots); err != nil {
		return nil, err
	}

	c.logger.Debug("slots committed",
		slog.String("session_id", string(id)),
		slog.String("player_id", string(playerID)),
		slog.Int("filled", filled),
	)
	c.emit(ctx, id, playerID, model.EventSlotsCommitted)
	return slots, nil
}

// Refresh replaces every standard card in the caller's hand with a freshly
// minted one and clears the caller's array for the round. Once per session.
func (c *Controller) Refresh(ctx context.Context, id model.SessionID, playerID model.PlayerID) (*model.Hand, error) {
	state, player, err := c.activeInSlotting(ctx, id, playerID)
	if err != nil {
		return nil, err
	}
	if player.UsedRefresh {
		return nil, model.ErrPowerUsed
	}
	if err := c.markPower(ctx, state, playerID,
		func(p *model.Player) bool { return !p.UsedRefresh },
		func(p *model.Player) { p.UsedRefresh = true },
		model.ErrPowerUsed); err != nil {
		return nil, err
	}

	hand, err := c.storage.UpdateHand(ctx, id, playerID, func(h *model.Hand) error {
		for i, card := range h.Cards {
			if !card.IsStandard() {
				continue
			}
			fresh, err := deck.MintStandard(c.random)
			if err != nil {
				return err
			}
			h.Cards[i] = fresh
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.storage.SaveSlots(ctx, &model.SlotAssignment{
		SessionID: id,
		PlayerID:  playerID,
		Round:     state.Round,
	}); err != nil {
		return nil, err
	}

	c.logger.Info("hand refreshed",
		slog.String("session_id", string(id)),
		slog.String("player_id", string(playerID)),
	)
	c.emit(ctx, id, playerID, model.EventHandChanged)
	return hand, nil
}

// Detector reports how many of each special card every groupmate holds.
// Once per session.
func (c *Controller) Detector(ctx context.Context, id model.SessionID, playerID model.PlayerID) (map[model.PlayerID]map[model.SpecialType]int, error) {
	state, player, err := c.activeInSlotting(ctx, id, playerID)
	if err != nil {
		return nil, err
	}
	if player.UsedDetector {
		return nil, model.ErrPowerUsed
	}
	if err := c.markPower(ctx, state, playerID,
		func(p *model.Player) bool { return !p.UsedDetector },
		func(p *model.Player) { p.UsedDetector = true },
		model.ErrPowerUsed); err != nil {
		return nil, err
	}

	report := make(map[model.PlayerID]map[model.SpecialType]int)
	group := state.GroupOf(playerID)
	if group == nil {
		return report, nil
	}
	for _, m := range group.Members {
		if m == playerID {
			continue
		}
		counts := map[model.SpecialType]int{
			model.SpecialZombie:    0,
			model.SpecialInjection: 0,
			model.SpecialShotgun:   0,
		}
		hand, err := c.storage.GetHand(ctx, id, m)
		if err != nil && !errors.Is(err, model.ErrHandNotFound) {
			return nil, err
		}
		if hand != nil {
			for _, card := range hand.Cards {
				if card.Kind == model.CardKindSpecial && card.Special != nil {
					counts[card.Special.Type]++
				}
			}
		}
		report[m] = counts
	}
	return report, nil
}

// activeInSlotting loads the state and checks the caller may act this round
func (c *Controller) activeInSlotting(ctx context.Context, id model.SessionID, playerID model.PlayerID) (*model.GameState, *model.Player, error) {
	state, err := c.storage.GetState(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	player := state.Participant(playerID)
	if player == nil {
		return nil, nil, model.ErrNotParticipant
	}
	if !player.IsActive() {
		return nil, nil, model.ErrPlayerInactive
	}
	if state.Phase != model.PhaseSlotting || state.UpdateMarker != "" {
		return nil, nil, model.ErrWrongPhase
	}
	return state, player, nil
}

// markPower sets one of the caller's own flags while the round is still in
// slotting and no transition holds the session. A transition commit
// rewrites the roster from its own snapshot, so a flag written under a
// live marker could be lost.
func (c *Controller) markPower(
	ctx context.Context,
	observed *model.GameState,
	playerID model.PlayerID,
	allowed func(*model.Player) bool,
	set func(*model.Player),
	usedErr error,
) error {
	applied, err := c.storage.UpdateStateIf(ctx, observed.SessionID,
		func(s *model.GameState) bool {
			p := s.Participant(playerID)
			return s.Phase == model.PhaseSlotting &&
				s.Round == observed.Round &&
				s.UpdateMarker == "" &&
				p != nil && p.IsActive() && allowed(p)
		},
		func(s *model.GameState) {
			set(s.Participant(playerID))
			s.UpdatedAt = c.clock.Now()
		})
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	current, err := c.storage.GetState(ctx, observed.SessionID)
	if err != nil {
		return err
	}
	if current.Phase != model.PhaseSlotting || current.Round != observed.Round || current.UpdateMarker != "" {
		return model.ErrWrongPhase
	}
	return usedErr
}

func (c *Controller) emit(ctx context.Context, id model.SessionID, playerID model.PlayerID, t model.EventType) {
	if err := c.storage.Publish(ctx, model.Event{
		Type:      t,
		SessionID: id,
		PlayerID:  playerID,
		Timestamp: c.clock.Now(),
	}); err != nil {
		c.logger.Warn("failed to publish event",
			slog.String("session_id", string(id)),
			slog.String("type", string(t)),
			slog.String("error", err.Error()),
		)
	}
}
