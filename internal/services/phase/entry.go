package phase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/services/battle"
	"github.com/mcoot/diamondsgame/internal/services/deck"
	"github.com/mcoot/diamondsgame/internal/services/grouping"
)

// enter runs the side effects of entering next. It mutates w, a working
// copy of the claimed state, and writes hands and slots directly; each of
// those writes is guarded or deterministic so a retry cannot apply twice.
func (c *Coordinator) enter(ctx context.Context, w *model.GameState, next model.Phase, round int) error {
	if w.Phase == model.PhasePicking {
		// Claims caught mid-move finish before any card is spent
		if err := c.extraction.Settle(ctx, w); err != nil {
			return err
		}
	}

	switch next {
	case model.PhaseBriefing:
		return c.enterBriefing(ctx, w)
	case model.PhaseShuffle:
		return c.enterShuffle(ctx, w, round)
	case model.PhaseDealing:
		return c.enterDealing(ctx, w)
	case model.PhaseSlotting:
		return nil
	case model.PhaseEvaluation:
		return c.enterEvaluation(ctx, w)
	case model.PhaseScoring:
		return c.enterScoring(ctx, w)
	case model.PhasePicking:
		w.RoundData.Extractions = c.extraction.Prepare(w.RoundData.Results)
		return nil
	case model.PhaseEnd:
		return c.enterEnd(ctx, w)
	default:
		return fmt.Errorf("no entry for phase %q", next)
	}
}

// enterBriefing purges the previous session's cards and builds the roster
// from the entrant list with carried-over scores
func (c *Coordinator) enterBriefing(ctx context.Context, w *model.GameState) error {
	if err := c.storage.DeleteHands(ctx, w.SessionID); err != nil {
		return err
	}
	if err := c.storage.DeleteSlots(ctx, w.SessionID); err != nil {
		return err
	}

	entrants, err := c.storage.GetEntrants(ctx, w.SessionID)
	if err != nil {
		return err
	}

	participants := make([]model.Player, 0, len(entrants))
	for _, e := range entrants {
		score, err := c.profiles.CarriedScore(ctx, e.PlayerID)
		if err != nil {
			return err
		}
		participants = append(participants, model.Player{
			ID:          e.PlayerID,
			DisplayName: e.DisplayName,
			Score:       score,
			Status:      model.StatusActive,
		})
	}
	w.Participants = participants
	w.RoundData = model.RoundData{}
	return nil
}

// enterShuffle spends last round's committed cards, eliminates anyone left
// empty-handed, then assigns this round's groups
func (c *Coordinator) enterShuffle(ctx context.Context, w *model.GameState, round int) error {
	if prev := round - 1; prev >= 1 {
		var eliminated []model.Player
		for i := range w.Participants {
			p := &w.Participants[i]
			if !p.IsActive() {
				continue
			}
			left, err := c.spend(ctx, w.SessionID, p.ID, prev)
			if err != nil {
				return err
			}
			if left == 0 {
				p.Status = model.StatusEliminated
				eliminated = append(eliminated, *p)
			}
		}
		if err := c.profiles.Record(ctx, eliminated...); err != nil {
			return err
		}
	}

	w.RoundData = model.RoundData{Deck: w.RoundData.Deck}
	for i := range w.Participants {
		w.Participants[i].GroupID = ""
	}

	groups := grouping.Assign(w.ActivePlayers(), random.Derive(w.Seed, "groups", strconv.Itoa(round)))
	for _, g := range groups {
		for _, m := range g.Members {
			w.Participant(m).GroupID = g.ID
		}
	}
	w.RoundData.Groups = groups
	return nil
}

// spend consumes the cards the player committed in round and returns the
// number of cards left. Standard cards are removed; specials lose a use and
// are removed once exhausted. The hand's SpentRound marker makes this a
// no-op on retry.
func (c *Coordinator) spend(ctx context.Context, id model.SessionID, pid model.PlayerID, round int) (int, error) {
	var committed []model.Card
	slots, err := c.storage.GetSlots(ctx, id, pid, round)
	switch {
	case err == nil:
		committed = slots.Cards()
	case !errors.Is(err, model.ErrSlotsNotFound):
		return 0, err
	}

	hand, err := c.storage.UpdateHand(ctx, id, pid, func(h *model.Hand) error {
		if h.SpentRound >= round {
			return nil
		}
		for _, card := range committed {
			idx := h.Find(card.ID)
			if idx < 0 {
				continue // extracted away or already gone
			}
			held := &h.Cards[idx]
			switch held.Kind {
			case model.CardKindStandard:
				h.Remove(held.ID)
			case model.CardKindSpecial:
				held.Special.UsesRemaining--
				if held.Special.UsesRemaining <= 0 {
					h.Remove(held.ID)
				}
			default:
				return fmt.Errorf("%w: %s", model.ErrMalformedCard, held.ID)
			}
		}
		h.SpentRound = round
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrHandNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return len(hand.Cards), nil
}

// enterDealing generates the pool, unless one is already recorded, and
// deals every active player their hand
func (c *Coordinator) enterDealing(ctx context.Context, w *model.GameState) error {
	active := w.ActivePlayers()
	pool := w.RoundData.Deck
	if len(pool) == 0 {
		generated, err := c.deck.Generate(len(active), random.Derive(w.Seed, "deck"))
		if err != nil {
			return err
		}
		pool = generated
	}

	hands, rest := deck.Deal(pool, active, c.rules.HandSize)
	for _, pid := range active {
		if err := c.storage.SaveHand(ctx, &model.Hand{
			SessionID: w.SessionID,
			PlayerID:  pid,
			Cards:     hands[pid],
		}); err != nil {
			return err
		}
	}
	w.RoundData.Deck = rest
	return nil
}

// enterEvaluation settles every group's arrays, evaluates the battles and
// applies the card and infection effects
func (c *Coordinator) enterEvaluation(ctx context.Context, w *model.GameState) error {
	var results []model.BattleResult
	for _, g := range w.RoundData.Groups {
		var entries []battle.Entry
		for _, m := range g.Members {
			p := w.Participant(m)
			if p == nil || !p.IsActive() {
				continue
			}
			entry, err := c.prepareEntry(ctx, w, p)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		if len(entries) == 0 {
			continue
		}

		rng := random.Derive(w.Seed, "battle", strconv.Itoa(w.Round), string(g.ID))
		res, err := c.evaluator.Evaluate(g.ID, w.Round, entries, rng)
		if err != nil {
			return fmt.Errorf("evaluating group %s: %w", g.ID, err)
		}
		results = append(results, *res)
	}

	perPlayer := make(map[model.PlayerID][]model.Effect)
	var order []model.PlayerID
	for _, res := range results {
		for _, e := range res.Effects {
			p := w.Participant(e.PlayerID)
			if p == nil {
				continue
			}
			switch e.Kind {
			case model.EffectInfected:
				p.IsZombie = true
			case model.EffectCured:
				p.IsZombie = false
			}
			if _, ok := perPlayer[e.PlayerID]; !ok {
				order = append(order, e.PlayerID)
			}
			perPlayer[e.PlayerID] = append(perPlayer[e.PlayerID], e)
		}
	}
	for _, pid := range order {
		if err := c.applyHandEffects(ctx, w, pid, perPlayer[pid]); err != nil {
			return err
		}
	}

	w.RoundData.Results = results
	return nil
}

// prepareEntry builds a player's battle input from their stored hand and
// slots: stale slots are cleared, an over-committed array outside the
// player's multi-card round is cut to its first card, and an empty array is
// filled with one random card from hand. The settled array is saved back so
// reveal and spending see exactly what was evaluated.
func (c *Coordinator) prepareEntry(ctx context.Context, w *model.GameState, p *model.Player) (battle.Entry, error) {
	hand, err := c.storage.GetHand(ctx, w.SessionID, p.ID)
	if err != nil {
		if !errors.Is(err, model.ErrHandNotFound) {
			return battle.Entry{}, err
		}
		hand = &model.Hand{SessionID: w.SessionID, PlayerID: p.ID}
	}

	slots, err := c.storage.GetSlots(ctx, w.SessionID, p.ID, w.Round)
	if err != nil {
		if !errors.Is(err, model.ErrSlotsNotFound) {
			return battle.Entry{}, err
		}
		slots = &model.SlotAssignment{SessionID: w.SessionID, PlayerID: p.ID, Round: w.Round}
	}

	// A retried entry must see the hand the first attempt evaluated
	held := &model.Hand{Cards: hand.EvaluationInput(w.Round)}

	settled := model.SlotAssignment{SessionID: w.SessionID, PlayerID: p.ID, Round: w.Round}
	seen := make(map[model.CardID]bool)
	for k, card := range slots.Slots {
		if card == nil {
			continue
		}
		idx := held.Find(card.ID)
		if idx < 0 || seen[card.ID] {
			c.logger.Debug("clearing stale slot",
				slog.String("session_id", string(w.SessionID)),
				slog.String("player_id", string(p.ID)),
				slog.Int("slot", k),
			)
			continue
		}
		seen[card.ID] = true
		card := held.Cards[idx]
		settled.Slots[k] = &card
	}

	if settled.Filled() > 1 && p.FiveSlotRound != w.Round {
		first := settled.FirstFilled()
		keep := settled.Slots[first]
		settled.Slots = [model.SlotCount]*model.Card{}
		settled.Slots[first] = keep
	}

	if settled.Filled() == 0 && len(held.Cards) > 0 {
		rng := random.Derive(w.Seed, "autofill", strconv.Itoa(w.Round), string(p.ID))
		card := held.Cards[rng.Intn(len(held.Cards))]
		settled.Slots[0] = &card
	}

	if err := c.storage.SaveSlots(ctx, &settled); err != nil {
		return battle.Entry{}, err
	}

	return battle.Entry{
		PlayerID: p.ID,
		Slots:    settled.Slots,
		Hand:     held.Cards,
		Infected: p.IsZombie,
	}, nil
}

// applyHandEffects swaps cured and neutralized zombies for their
// replacements and grants a zombie card on infection, once per round
func (c *Coordinator) applyHandEffects(ctx context.Context, w *model.GameState, pid model.PlayerID, effects []model.Effect) error {
	round := w.Round
	_, err := c.storage.UpdateHand(ctx, w.SessionID, pid, func(h *model.Hand) error {
		if h.EffectRound >= round {
			return nil
		}
		h.EvaluatedCards = h.Clone().Cards
		for _, e := range effects {
			switch e.Kind {
			case model.EffectCured, model.EffectNeutralized:
				if e.Replacement != nil {
					h.Replace(e.CardID, *e.Replacement)
				}
			case model.EffectInfected:
				zombie, err := deck.MintZombie(random.Derive(w.Seed, "infection", strconv.Itoa(round), string(pid)))
				if err != nil {
					return err
				}
				h.Cards = append(h.Cards, zombie)
			}
		}
		h.EffectRound = round
		return nil
	})
	if errors.Is(err, model.ErrHandNotFound) {
		return nil
	}
	return err
}

// enterScoring applies the round's deltas, then eliminates any active
// player whose hand has run dry
func (c *Coordinator) enterScoring(ctx context.Context, w *model.GameState) error {
	wasActive := make(map[model.PlayerID]bool)
	for _, p := range w.Participants {
		wasActive[p.ID] = p.IsActive()
	}

	w.Participants = c.scorer.Score(w.Participants, w.RoundData.Results)

	for i := range w.Participants {
		p := &w.Participants[i]
		if !p.IsActive() {
			continue
		}
		hand, err := c.storage.GetHand(ctx, w.SessionID, p.ID)
		if err != nil && !errors.Is(err, model.ErrHandNotFound) {
			return err
		}
		if hand == nil || len(hand.Cards) == 0 {
			p.Status = model.StatusEliminated
		}
	}

	var eliminated []model.Player
	for _, p := range w.Participants {
		if wasActive[p.ID] && p.Status == model.StatusEliminated {
			eliminated = append(eliminated, p)
		}
	}
	return c.profiles.Record(ctx, eliminated...)
}

// enterEnd marks every remaining player survived and persists final scores
func (c *Coordinator) enterEnd(ctx context.Context, w *model.GameState) error {
	for i := range w.Participants {
		if w.Participants[i].IsActive() {
			w.Participants[i].Status = model.StatusSurvived
		}
	}
	return c.profiles.Record(ctx, w.Participants...)
}
