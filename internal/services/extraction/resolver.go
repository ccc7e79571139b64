package extraction

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/diamondsgame/internal/dependencies/clock"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/storage"
)

// Resolver prepares and settles post-battle steal opportunities
type Resolver struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new extraction Resolver
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Resolver {
	return &Resolver{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "extraction")),
	}
}

// Prepare builds one offer per battle with exactly one winner and at least
// one loser. Candidates are every card in a loser's evaluated slots, of any
// kind, tagged with the owner. Tied outcomes get no offer.
func (r *Resolver) Prepare(results []model.BattleResult) []model.ExtractionOffer {
	var offers []model.ExtractionOffer
	for _, res := range results {
		if len(res.Winners) != 1 || len(res.Losers) == 0 {
			continue
		}
		offer := model.ExtractionOffer{
			GroupID: res.GroupID,
			Winner:  res.Winners[0],
		}
		for _, loser := range res.Losers {
			b := res.BreakdownFor(loser)
			if b == nil {
				continue
			}
			for _, sv := range b.Slots {
				if sv.Card != nil {
					offer.Candidates = append(offer.Candidates, model.ExtractionCandidate{Owner: loser, Card: *sv.Card})
				}
			}
		}
		if len(offer.Candidates) > 0 {
			offers = append(offers, offer)
		}
	}
	return offers
}

// Offer returns the caller's pending offer for the current round
func (r *Resolver) Offer(ctx context.Context, id model.SessionID, playerID model.PlayerID) (*model.ExtractionOffer, error) {
	state, err := r.storage.GetState(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Phase != model.PhasePicking {
		return nil, model.ErrWrongPhase
	}
	offer := findOffer(state, playerID)
	if offer == nil {
		return nil, model.ErrNoExtraction
	}
	return offer, nil
}

// Claim moves one candidate card from its owner's hand into the winner's.
//
// The card is first put in escrow on the offer under the same guard the
// phase election uses, so no transition can start while a claim is being
// reserved. The hand moves then run from the escrow and are idempotent: a
// failed claim is finished by retrying it, or by the transition out of
// picking, and the card is never lost.
func (r *Resolver) Claim(ctx context.Context, id model.SessionID, winner model.PlayerID, cardID model.CardID) (*model.ExtractionCandidate, error) {
	state, err := r.storage.GetState(ctx, id)
	if err != nil {
		return nil, err
	}
	offer, err := pendingOffer(state, winner)
	if err != nil {
		return nil, err
	}

	var candidate *model.ExtractionCandidate
	for i := range offer.Candidates {
		if offer.Candidates[i].Card.ID == cardID {
			candidate = &offer.Candidates[i]
			break
		}
	}
	if candidate == nil {
		return nil, model.ErrNotCandidate
	}

	escrow := offer.Escrow
	switch {
	case escrow != nil && escrow.Card.ID != cardID:
		return nil, model.ErrExtractionResolved
	case escrow == nil:
		hand, err := r.storage.GetHand(ctx, id, candidate.Owner)
		if err != nil {
			return nil, err
		}
		idx := hand.Find(cardID)
		if idx < 0 {
			return nil, model.ErrCardNotInHand
		}
		escrow, err = r.reserve(ctx, state, winner, model.ExtractionCandidate{Owner: candidate.Owner, Card: hand.Cards[idx]})
		if err != nil {
			return nil, err
		}
	}

	if err := r.deliver(ctx, id, winner, escrow); err != nil {
		r.logger.Warn("extraction delivery incomplete",
			slog.String("session_id", string(id)),
			slog.String("card_id", string(cardID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if err := r.finish(ctx, state, winner, cardID); err != nil {
		return nil, err
	}

	r.logger.Info("card extracted",
		slog.String("session_id", string(id)),
		slog.String("winner", string(winner)),
		slog.String("owner", string(escrow.Owner)),
		slog.String("card_id", string(cardID)),
	)
	r.publish(ctx, id, winner, state)
	r.publishHand(ctx, id, escrow.Owner, state)
	return &model.ExtractionCandidate{Owner: escrow.Owner, Card: escrow.Card}, nil
}

// Decline gives up the caller's pending offer
func (r *Resolver) Decline(ctx context.Context, id model.SessionID, winner model.PlayerID) error {
	state, err := r.storage.GetState(ctx, id)
	if err != nil {
		return err
	}
	offer, err := pendingOffer(state, winner)
	if err != nil {
		return err
	}
	if offer.Escrow != nil {
		return model.ErrExtractionResolved
	}

	applied, err := r.storage.UpdateStateIf(ctx, id,
		func(s *model.GameState) bool {
			if !open(s, state.Round) {
				return false
			}
			o := findOffer(s, winner)
			return o != nil && !o.Resolved && o.Escrow == nil
		},
		func(s *model.GameState) {
			findOffer(s, winner).Resolved = true
			s.UpdatedAt = r.clock.Now()
		})
	if err != nil {
		return err
	}
	if !applied {
		return r.explain(ctx, id, winner)
	}
	r.publish(ctx, id, winner, state)
	return nil
}

// Settle finishes every escrowed claim on w, the working copy of a
// transition leaving picking. It runs under the transition's marker, so no
// new claim can be reserved meanwhile.
func (r *Resolver) Settle(ctx context.Context, w *model.GameState) error {
	for i := range w.RoundData.Extractions {
		offer := &w.RoundData.Extractions[i]
		if offer.Resolved || offer.Escrow == nil {
			continue
		}
		if err := r.deliver(ctx, w.SessionID, offer.Winner, offer.Escrow); err != nil {
			return err
		}
		taken := offer.Escrow.Card.ID
		offer.Resolved = true
		offer.Taken = &taken
		offer.Escrow = nil
		r.logger.Info("escrowed extraction settled",
			slog.String("session_id", string(w.SessionID)),
			slog.String("winner", string(offer.Winner)),
			slog.String("card_id", string(taken)),
		)
	}
	return nil
}

// reserve records the chosen card on the offer, provided the round is still
// in picking, no transition has claimed the session and nothing else was
// chosen. A concurrent reservation of the same card is adopted.
func (r *Resolver) reserve(ctx context.Context, observed *model.GameState, winner model.PlayerID, escrow model.ExtractionCandidate) (*model.ExtractionCandidate, error) {
	applied, err := r.storage.UpdateStateIf(ctx, observed.SessionID,
		func(s *model.GameState) bool {
			if !open(s, observed.Round) {
				return false
			}
			o := findOffer(s, winner)
			return o != nil && !o.Resolved && o.Escrow == nil
		},
		func(s *model.GameState) {
			e := escrow
			findOffer(s, winner).Escrow = &e
			s.UpdatedAt = r.clock.Now()
		})
	if err != nil {
		return nil, err
	}
	if applied {
		return &escrow, nil
	}

	current, err := r.storage.GetState(ctx, observed.SessionID)
	if err != nil {
		return nil, err
	}
	if o := findOffer(current, winner); o != nil && !o.Resolved && o.Escrow != nil {
		if o.Escrow.Card.ID == escrow.Card.ID {
			return o.Escrow, nil
		}
		return nil, model.ErrExtractionResolved
	}
	return nil, r.explain(ctx, observed.SessionID, winner)
}

// deliver moves an escrowed card out of its owner's hand and into the
// winner's. Each step checks for the card first, so repeating it is safe.
func (r *Resolver) deliver(ctx context.Context, id model.SessionID, winner model.PlayerID, escrow *model.ExtractionCandidate) error {
	if _, err := r.storage.UpdateHand(ctx, id, escrow.Owner, func(h *model.Hand) error {
		h.Remove(escrow.Card.ID)
		return nil
	}); err != nil && !errors.Is(err, model.ErrHandNotFound) {
		return err
	}

	_, err := r.storage.UpdateHand(ctx, id, winner, func(h *model.Hand) error {
		if !h.Contains(escrow.Card.ID) {
			h.Cards = append(h.Cards, escrow.Card)
		}
		return nil
	})
	return err
}

// finish marks the escrowed offer resolved. A transition that got there
// first has already settled it, which counts as done.
func (r *Resolver) finish(ctx context.Context, observed *model.GameState, winner model.PlayerID, cardID model.CardID) error {
	_, err := r.storage.UpdateStateIf(ctx, observed.SessionID,
		func(s *model.GameState) bool {
			if s.Phase != model.PhasePicking || s.Round != observed.Round {
				return false
			}
			o := findOffer(s, winner)
			return o != nil && !o.Resolved && o.Escrow != nil && o.Escrow.Card.ID == cardID
		},
		func(s *model.GameState) {
			o := findOffer(s, winner)
			o.Resolved = true
			o.Taken = &cardID
			o.Escrow = nil
			s.UpdatedAt = r.clock.Now()
		})
	return err
}

// explain turns a refused offer update into the error the caller should see
func (r *Resolver) explain(ctx context.Context, id model.SessionID, winner model.PlayerID) error {
	current, err := r.storage.GetState(ctx, id)
	if err != nil {
		return err
	}
	if _, err := pendingOffer(current, winner); err != nil {
		return err
	}
	// Offer still open but a transition holds the session
	return model.ErrWrongPhase
}

// open reports whether offers in round may still change hands
func open(s *model.GameState, round int) bool {
	return s.Phase == model.PhasePicking && s.Round == round && s.UpdateMarker == ""
}

func (r *Resolver) publish(ctx context.Context, id model.SessionID, playerID model.PlayerID, state *model.GameState) {
	r.emit(ctx, model.Event{
		Type:      model.EventExtractionResolved,
		SessionID: id,
		PlayerID:  playerID,
		Phase:     state.Phase,
		Round:     state.Round,
		Timestamp: r.clock.Now(),
	})
}

func (r *Resolver) publishHand(ctx context.Context, id model.SessionID, playerID model.PlayerID, state *model.GameState) {
	r.emit(ctx, model.Event{
		Type:      model.EventHandChanged,
		SessionID: id,
		PlayerID:  playerID,
		Phase:     state.Phase,
		Round:     state.Round,
		Timestamp: r.clock.Now(),
	})
}

func (r *Resolver) emit(ctx context.Context, event model.Event) {
	if err := r.storage.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to publish event",
			slog.String("session_id", string(event.SessionID)),
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()),
		)
	}
}

func pendingOffer(state *model.GameState, winner model.PlayerID) (*model.ExtractionOffer, error) {
	if state.Phase != model.PhasePicking {
		return nil, model.ErrWrongPhase
	}
	offer := findOffer(state, winner)
	if offer == nil {
		return nil, model.ErrNoExtraction
	}
	if offer.Resolved {
		return nil, model.ErrExtractionResolved
	}
	return offer, nil
}

func findOffer(state *model.GameState, winner model.PlayerID) *model.ExtractionOffer {
	for i := range state.RoundData.Extractions {
		if state.RoundData.Extractions[i].Winner == winner {
			return &state.RoundData.Extractions[i]
		}
	}
	return nil
}
