package phase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/diamondsgame/internal/dependencies/clock"
	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/rules"
	"github.com/mcoot/diamondsgame/internal/services/battle"
	"github.com/mcoot/diamondsgame/internal/services/deck"
	"github.com/mcoot/diamondsgame/internal/services/extraction"
	"github.com/mcoot/diamondsgame/internal/services/profile"
	"github.com/mcoot/diamondsgame/internal/services/scoring"
	"github.com/mcoot/diamondsgame/internal/storage"
)

// Coordinator runs the session state machine. It holds no session state of
// its own: every decision is made against the stored GameState, so any
// number of Coordinators (one per client) can drive the same session.
//
// A transition is elected in two conditional writes. The claim sets an
// update marker iff the session is still at the observed phase and round
// and no live marker exists; only the claimant then runs the entry side
// effects and commits the next phase iff its marker is still in place. A
// claimant that dies leaves a marker that expires after the rules'
// transition lease, after which any client may claim again. Side effects
// are derived from stored state and the session seed only, so a retried
// transition reproduces them exactly.
type Coordinator struct {
	storage    storage.Storage
	deck       *deck.Generator
	evaluator  *battle.Evaluator
	scorer     *scoring.Service
	extraction *extraction.Resolver
	profiles   *profile.Service
	rules      rules.Rules
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger
}

// New creates a new Coordinator
func New(
	storage storage.Storage,
	rules rules.Rules,
	deck *deck.Generator,
	evaluator *battle.Evaluator,
	scorer *scoring.Service,
	extraction *extraction.Resolver,
	profiles *profile.Service,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		storage:    storage,
		deck:       deck,
		evaluator:  evaluator,
		scorer:     scorer,
		extraction: extraction,
		profiles:   profiles,
		rules:      rules,
		clock:      clock,
		random:     random,
		logger:     logger.With(slog.String("component", "phase")),
	}
}

// Tick is the per-second client step. It nudges a paused phase, attempts
// the transition once the timer has run out, and during slotting attempts
// an early advance once every active player has committed. It reports
// whether this call performed a transition.
func (c *Coordinator) Tick(ctx context.Context, id model.SessionID) (bool, error) {
	state, err := c.storage.GetState(ctx, id)
	if err != nil {
		return false, err
	}
	if state.Phase.IsRest() {
		return false, nil
	}
	if state.IsPaused {
		return false, c.nudge(ctx, state)
	}

	if state.Remaining(c.clock.Now()) > 0 {
		if state.Phase != model.PhaseSlotting {
			return false, nil
		}
		ready, err := c.allCommitted(ctx, state)
		if err != nil || !ready {
			return false, err
		}
	}
	return c.Advance(ctx, id, state.Phase, state.Round)
}

// TryEarlyAdvance moves slotting on to evaluation once every active player
// has a committed array for the round
func (c *Coordinator) TryEarlyAdvance(ctx context.Context, id model.SessionID) (bool, error) {
	state, err := c.storage.GetState(ctx, id)
	if err != nil {
		return false, err
	}
	if state.Phase != model.PhaseSlotting || state.IsPaused {
		return false, nil
	}
	ready, err := c.allCommitted(ctx, state)
	if err != nil || !ready {
		return false, err
	}
	return c.Advance(ctx, id, state.Phase, state.Round)
}

// Advance attempts the transition out of the observed phase and round.
// Losing the election is the normal outcome for all but one caller and
// returns false with a nil error. Idle only leaves through Start.
func (c *Coordinator) Advance(ctx context.Context, id model.SessionID, phase model.Phase, round int) (bool, error) {
	if phase.IsRest() {
		return false, nil
	}
	return c.transition(ctx, id, phase, round, nil)
}

// minEntrants is the smallest field that can fight a battle
const minEntrants = 2

// Start is the external signal that moves an idle session into briefing
func (c *Coordinator) Start(ctx context.Context, id model.SessionID) error {
	state, err := c.storage.GetState(ctx, id)
	if err != nil {
		return err
	}
	if state.Phase != model.PhaseIdle {
		return model.ErrSessionInProgress
	}
	entrants, err := c.storage.GetEntrants(ctx, id)
	if err != nil {
		return err
	}
	if len(entrants) < minEntrants {
		return fmt.Errorf("%w: need at least %d entrants, have %d", model.ErrNoParticipants, minEntrants, len(entrants))
	}

	ok, err := c.transition(ctx, id, model.PhaseIdle, state.Round, func(s *model.GameState) {
		s.SystemStart = true
	})
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrSessionInProgress
	}
	return nil
}

// Pause freezes the phase timer at its current elapsed time
func (c *Coordinator) Pause(ctx context.Context, id model.SessionID) error {
	now := c.clock.Now()
	applied, err := c.storage.UpdateStateIf(ctx, id,
		func(s *model.GameState) bool { return !s.IsPaused && !s.Phase.IsRest() },
		func(s *model.GameState) {
			elapsed := now.Sub(s.PhaseStartedAt)
			if elapsed < 0 {
				elapsed = 0
			}
			if limit := time.Duration(s.PhaseDurationSeconds) * time.Second; elapsed > limit {
				elapsed = limit
			}
			s.IsPaused = true
			s.PausedElapsed = elapsed
			s.UpdatedAt = now
		})
	if err != nil {
		return err
	}
	if !applied {
		state, err := c.storage.GetState(ctx, id)
		if err != nil {
			return err
		}
		if state.Phase.IsRest() {
			return model.ErrWrongPhase
		}
		return nil // already paused
	}

	c.logger.Info("session paused", slog.String("session_id", string(id)))
	c.emit(ctx, id, model.EventPaused)
	return nil
}

// Resume restarts the phase timer from where Pause froze it
func (c *Coordinator) Resume(ctx context.Context, id model.SessionID) error {
	now := c.clock.Now()
	applied, err := c.storage.UpdateStateIf(ctx, id,
		func(s *model.GameState) bool { return s.IsPaused },
		func(s *model.GameState) {
			s.PhaseStartedAt = now.Add(-s.PausedElapsed)
			s.IsPaused = false
			s.PausedElapsed = 0
			s.UpdatedAt = now
		})
	if err != nil || !applied {
		return err
	}

	c.logger.Info("session resumed", slog.String("session_id", string(id)))
	c.emit(ctx, id, model.EventResumed)
	return nil
}

// Reset forces the session back to idle from any phase. It does not wait
// for an in-flight transition: clearing the marker and bumping the epoch
// makes that transition's commit fail.
func (c *Coordinator) Reset(ctx context.Context, id model.SessionID) error {
	now := c.clock.Now()
	seed := c.random.Uint64()
	_, err := c.storage.UpdateStateIf(ctx, id, storage.Always, func(s *model.GameState) {
		s.Phase = model.PhaseIdle
		s.Round = 0
		s.Participants = nil
		s.RoundData = model.RoundData{}
		s.PhaseStartedAt = now
		s.PhaseDurationSeconds = 0
		s.IsPaused = false
		s.PausedElapsed = 0
		s.SystemStart = false
		s.Seed = seed
		s.UpdateMarker = ""
		s.MarkerAt = time.Time{}
		s.Epoch++
		s.UpdatedAt = now
	})
	if err != nil {
		return err
	}

	if err := c.storage.DeleteHands(ctx, id); err != nil {
		return err
	}
	if err := c.storage.DeleteSlots(ctx, id); err != nil {
		return err
	}

	c.logger.Warn("session reset", slog.String("session_id", string(id)))
	c.emit(ctx, id, model.EventSessionReset)
	return nil
}

// transition runs one election for leaving (phase, round). extra, if set,
// is applied to the committed state alongside the phase change.
func (c *Coordinator) transition(ctx context.Context, id model.SessionID, phase model.Phase, round int, extra storage.Mutation) (bool, error) {
	marker := uuid.NewString()
	claimedAt := c.clock.Now()

	claimed, err := c.storage.UpdateStateIf(ctx, id,
		c.claimable(phase, round, claimedAt),
		func(s *model.GameState) {
			s.UpdateMarker = marker
			s.MarkerAt = claimedAt
		})
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	state, err := c.storage.GetState(ctx, id)
	if err != nil {
		return false, err
	}
	logger := c.logger.With(
		slog.String("session_id", string(id)),
		slog.String("from", string(phase)),
		slog.Int("round", round),
	)

	next, nextRound := c.next(state)
	work := state.Clone()
	if err := c.enter(ctx, work, next, nextRound); err != nil {
		logger.Error("phase entry failed",
			slog.String("to", string(next)),
			slog.String("error", err.Error()),
		)
		c.release(ctx, id, marker)
		return false, err
	}

	now := c.clock.Now()
	committed, err := c.storage.UpdateStateIf(ctx, id, storage.MarkerIs(marker), func(s *model.GameState) {
		s.Participants = work.Participants
		s.RoundData = work.RoundData
		s.Phase = next
		s.Round = nextRound
		s.PhaseStartedAt = now
		s.PhaseDurationSeconds = c.rules.Duration(next)
		s.PausedElapsed = 0
		s.UpdateMarker = ""
		s.MarkerAt = time.Time{}
		s.UpdatedAt = now
		if extra != nil {
			extra(s)
		}
	})
	if err != nil {
		return false, err
	}
	if !committed {
		// Lease expired and was taken over, or the session was reset
		logger.Warn("transition marker lost before commit", slog.String("to", string(next)))
		return false, nil
	}

	logger.Info("phase advanced",
		slog.String("to", string(next)),
		slog.Int("to_round", nextRound),
	)
	c.emitPhase(ctx, id, next, nextRound)
	return true, nil
}

// claimable matches the observed phase and round with no live marker
func (c *Coordinator) claimable(phase model.Phase, round int, now time.Time) storage.Condition {
	return func(s *model.GameState) bool {
		if s.Phase != phase || s.Round != round || s.IsPaused {
			return false
		}
		return s.UpdateMarker == "" || now.Sub(s.MarkerAt) >= c.rules.TransitionLease
	}
}

// release lapses a marker's lease after a failed entry so the next tick can
// retry at once. The marker itself stays: entry may already have written
// hands and slots, and player edits must stay closed until a retry commits.
func (c *Coordinator) release(ctx context.Context, id model.SessionID, marker string) {
	_, err := c.storage.UpdateStateIf(ctx, id, storage.MarkerIs(marker), func(s *model.GameState) {
		s.MarkerAt = time.Time{}
	})
	if err != nil {
		c.logger.Warn("failed to release transition marker",
			slog.String("session_id", string(id)),
			slog.String("error", err.Error()),
		)
	}
}

// next returns the phase and round that follow the state's current ones
func (c *Coordinator) next(s *model.GameState) (model.Phase, int) {
	switch s.Phase {
	case model.PhaseIdle:
		return model.PhaseBriefing, 0
	case model.PhaseBriefing:
		return model.PhaseShuffle, 1
	case model.PhaseShuffle:
		if len(s.ActivePlayers()) < 2 {
			return model.PhaseEnd, s.Round
		}
		if s.Round == 1 {
			return model.PhaseDealing, s.Round
		}
		return model.PhaseSlotting, s.Round
	case model.PhaseDealing:
		return model.PhaseSlotting, s.Round
	case model.PhaseSlotting:
		return model.PhaseEvaluation, s.Round
	case model.PhaseEvaluation:
		return model.PhaseScoring, s.Round
	case model.PhaseScoring:
		return model.PhasePicking, s.Round
	case model.PhasePicking:
		if s.Round >= c.rules.Rounds {
			return model.PhaseEnd, s.Round
		}
		return model.PhaseShuffle, s.Round + 1
	default:
		return model.PhaseEnd, s.Round
	}
}

// nudge pushes a paused phase's start forward by the fixed increment once
// wall time has drifted that far past it. Concurrent nudges race on the
// previous start value, so exactly one lands per increment.
func (c *Coordinator) nudge(ctx context.Context, state *model.GameState) error {
	prev := state.PhaseStartedAt
	step := c.rules.PauseNudge
	if step <= 0 || c.clock.Now().Sub(prev) < state.PausedElapsed+step {
		return nil
	}
	_, err := c.storage.UpdateStateIf(ctx, state.SessionID,
		func(s *model.GameState) bool { return s.IsPaused && s.PhaseStartedAt.Equal(prev) },
		func(s *model.GameState) { s.PhaseStartedAt = prev.Add(step) })
	return err
}

// allCommitted reports whether every active player has a non-empty slot
// array for the current round
func (c *Coordinator) allCommitted(ctx context.Context, state *model.GameState) (bool, error) {
	active := state.ActivePlayers()
	if len(active) == 0 {
		return false, nil
	}
	for _, pid := range active {
		slots, err := c.storage.GetSlots(ctx, state.SessionID, pid, state.Round)
		if err != nil {
			if errors.Is(err, model.ErrSlotsNotFound) {
				return false, nil
			}
			return false, err
		}
		if slots.Filled() == 0 {
			return false, nil
		}
	}
	return true, nil
}

func (c *Coordinator) emitPhase(ctx context.Context, id model.SessionID, phase model.Phase, round int) {
	c.publish(ctx, model.Event{
		Type:      model.EventPhaseChanged,
		SessionID: id,
		Phase:     phase,
		Round:     round,
		Timestamp: c.clock.Now(),
	})
}

func (c *Coordinator) emit(ctx context.Context, id model.SessionID, t model.EventType) {
	c.publish(ctx, model.Event{
		Type:      t,
		SessionID: id,
		Timestamp: c.clock.Now(),
	})
}

func (c *Coordinator) publish(ctx context.Context, event model.Event) {
	if err := c.storage.Publish(ctx, event); err != nil {
		c.logger.Warn("failed to publish event",
			slog.String("session_id", string(event.SessionID)),
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()),
		)
	}
}
