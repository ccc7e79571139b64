package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/diamondsgame/internal/dependencies/mocks"
	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/services/profile"
	"github.com/mcoot/diamondsgame/internal/storage/memory"
	"github.com/mcoot/diamondsgame/internal/testutil"
)

var (
	admin = model.Identity{PlayerID: "admin", DisplayName: "Warden", IsAdmin: true}
	alice = model.Identity{PlayerID: "alice", DisplayName: "Alice"}
	bob   = model.Identity{PlayerID: "bob", DisplayName: "Bob"}
	carol = model.Identity{PlayerID: "carol", DisplayName: "Carol"}
)

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	logger := testutil.NopLogger()
	s.controller = NewController(
		s.storage,
		profile.New(s.storage, s.clock, logger),
		s.clock,
		random.NewSeeded(7),
		logger,
	)
	s.ctx = context.Background()
}

// slotting stores a round-1 slotting session where alice and bob duel
func (s *ControllerSuite) slotting() {
	state := &model.GameState{
		SessionID:            "s1",
		Phase:                model.PhaseSlotting,
		Round:                1,
		PhaseStartedAt:       s.clock.Now(),
		PhaseDurationSeconds: 60,
		Participants: []model.Player{
			{ID: "alice", DisplayName: "Alice", Status: model.StatusActive, GroupID: "g1"},
			{ID: "bob", DisplayName: "Bob", Status: model.StatusActive, GroupID: "g1"},
			{ID: "carol", DisplayName: "Carol", Status: model.StatusEliminated},
		},
		RoundData: model.RoundData{
			Groups: []model.Group{{ID: "g1", Members: []model.PlayerID{"alice", "bob"}}},
		},
	}
	s.Require().NoError(s.storage.CreateState(s.ctx, state))
	s.Require().NoError(s.storage.SaveHand(s.ctx, &model.Hand{SessionID: "s1", PlayerID: "alice", Cards: []model.Card{
		model.NewStandardCard("a1", model.RankAce, model.SuitHearts),
		model.NewStandardCard("a2", model.Rank(7), model.SuitClubs),
		model.NewSpecialCard("a3", model.SpecialInjection),
	}}))
	s.Require().NoError(s.storage.SaveHand(s.ctx, &model.Hand{SessionID: "s1", PlayerID: "bob", Cards: []model.Card{
		model.NewStandardCard("b1", model.RankKing, model.SuitSpades),
		model.NewSpecialCard("b2", model.SpecialZombie),
		model.NewSpecialCard("b3", model.SpecialShotgun),
		model.NewSpecialCard("b4", model.SpecialShotgun),
	}}))
}

func (s *ControllerSuite) setPhase(phase model.Phase, round int) {
	_, err := s.storage.UpdateStateIf(s.ctx, "s1", func(*model.GameState) bool { return true }, func(st *model.GameState) {
		st.Phase = phase
		st.Round = round
	})
	s.Require().NoError(err)
}

func (s *ControllerSuite) player(id model.PlayerID) *model.Player {
	state, err := s.storage.GetState(s.ctx, "s1")
	s.Require().NoError(err)
	return state.Participant(id)
}

// CreateSession tests

func (s *ControllerSuite) TestCreateSession() {
	state, err := s.controller.CreateSession(s.ctx, admin)
	s.Require().NoError(err)
	s.NotEmpty(state.SessionID)
	s.Equal(model.PhaseIdle, state.Phase)
	s.Equal(0, state.Round)

	stored, err := s.storage.GetState(s.ctx, state.SessionID)
	s.Require().NoError(err)
	s.Equal(state.Seed, stored.Seed)
}

func (s *ControllerSuite) TestCreateSessionRequiresAdmin() {
	_, err := s.controller.CreateSession(s.ctx, alice)
	s.ErrorIs(err, model.ErrNotAdmin)
}

// Join tests

func (s *ControllerSuite) TestJoinIdle() {
	state, err := s.controller.CreateSession(s.ctx, admin)
	s.Require().NoError(err)

	s.Require().NoError(s.controller.Join(s.ctx, state.SessionID, alice))
	s.Require().NoError(s.controller.Join(s.ctx, state.SessionID, alice))

	entrants, err := s.storage.GetEntrants(s.ctx, state.SessionID)
	s.Require().NoError(err)
	s.Require().Len(entrants, 1)
	s.Equal(model.PlayerID("alice"), entrants[0].PlayerID)

	stored, err := s.storage.GetState(s.ctx, state.SessionID)
	s.Require().NoError(err)
	s.Empty(stored.Participants)
}

func (s *ControllerSuite) TestJoinAdminNotEligible() {
	state, err := s.controller.CreateSession(s.ctx, admin)
	s.Require().NoError(err)

	s.ErrorIs(s.controller.Join(s.ctx, state.SessionID, admin), model.ErrAdminNotEligible)
}

func (s *ControllerSuite) TestJoinDuringBriefingAddsToRoster() {
	s.Require().NoError(s.storage.SaveProfile(s.ctx, &model.Profile{PlayerID: "carol", Score: 300}))
	s.Require().NoError(s.storage.CreateState(s.ctx, &model.GameState{
		SessionID:    "s2",
		Phase:        model.PhaseBriefing,
		Participants: []model.Player{{ID: "alice", Status: model.StatusActive}},
	}))

	s.Require().NoError(s.controller.Join(s.ctx, "s2", carol))

	state, err := s.storage.GetState(s.ctx, "s2")
	s.Require().NoError(err)
	s.Require().Len(state.Participants, 2)
	s.Equal(model.PlayerID("carol"), state.Participants[1].ID)
	s.Equal(300, state.Participants[1].Score)
	s.Equal(model.StatusActive, state.Participants[1].Status)
}

func (s *ControllerSuite) TestJoinAfterStartFails() {
	s.slotting()
	s.ErrorIs(s.controller.Join(s.ctx, "s1", model.Identity{PlayerID: "dave"}), model.ErrSessionInProgress)
}

func (s *ControllerSuite) TestJoinUnknownSession() {
	s.ErrorIs(s.controller.Join(s.ctx, "missing", alice), model.ErrSessionNotFound)
}

// SubmitSlots tests

func (s *ControllerSuite) TestSubmitSingleCard() {
	s.slotting()

	slots, err := s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"", "a2"})
	s.Require().NoError(err)
	s.Equal(1, slots.Filled())
	s.Equal(model.CardID("a2"), slots.Slots[1].ID)

	stored, err := s.storage.GetSlots(s.ctx, "s1", "alice", 1)
	s.Require().NoError(err)
	s.Equal(model.CardID("a2"), stored.Slots[1].ID)
	s.False(s.player("alice").UsedFiveSlotDeployment)
}

func (s *ControllerSuite) TestSubmitMultiCardSpendsDeployment() {
	s.slotting()

	_, err := s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"a1", "a2", "a3"})
	s.Require().NoError(err)

	p := s.player("alice")
	s.True(p.UsedFiveSlotDeployment)
	s.Equal(1, p.FiveSlotRound)

	// Revisions in the same round are free
	_, err = s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"a2", "a1"})
	s.Require().NoError(err)
}

func (s *ControllerSuite) TestSubmitMultiCardOncePerSession() {
	s.slotting()
	_, err := s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"a1", "a2"})
	s.Require().NoError(err)

	s.setPhase(model.PhaseSlotting, 2)

	_, err = s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"a1", "a2"})
	s.ErrorIs(err, model.ErrDeploymentLimit)

	_, err = s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"a1"})
	s.NoError(err)
}

func (s *ControllerSuite) TestSubmitValidation() {
	s.slotting()

	_, err := s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{})
	s.ErrorIs(err, model.ErrEmptyDeployment)

	_, err = s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"a1", "a1"})
	s.ErrorIs(err, model.ErrDuplicateCard)

	_, err = s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"b1"})
	s.ErrorIs(err, model.ErrCardNotInHand)

	_, err = s.controller.SubmitSlots(s.ctx, "s1", "carol", [model.SlotCount]model.CardID{"a1"})
	s.ErrorIs(err, model.ErrPlayerInactive)

	_, err = s.controller.SubmitSlots(s.ctx, "s1", "dave", [model.SlotCount]model.CardID{"a1"})
	s.ErrorIs(err, model.ErrNotParticipant)
}

func (s *ControllerSuite) TestSubmitOutsideSlotting() {
	s.slotting()
	s.setPhase(model.PhaseEvaluation, 1)

	_, err := s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"a1"})
	s.ErrorIs(err, model.ErrWrongPhase)
}

func (s *ControllerSuite) TestSubmitBlockedWhileTransitionHeld() {
	s.slotting()
	_, err := s.storage.UpdateStateIf(s.ctx, "s1", func(*model.GameState) bool { return true }, func(st *model.GameState) {
		st.UpdateMarker = "elsewhere"
	})
	s.Require().NoError(err)

	_, err = s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"a1"})
	s.ErrorIs(err, model.ErrWrongPhase)
}

// Refresh tests

func (s *ControllerSuite) TestRefreshReplacesStandardCards() {
	s.slotting()
	_, err := s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"a1"})
	s.Require().NoError(err)

	hand, err := s.controller.Refresh(s.ctx, "s1", "alice")
	s.Require().NoError(err)

	s.Require().Len(hand.Cards, 3)
	s.False(hand.Contains("a1"))
	s.False(hand.Contains("a2"))
	s.True(hand.Contains("a3"))
	s.NotEqual(hand.Cards[0].ID, hand.Cards[1].ID)
	for _, c := range hand.Cards[:2] {
		s.True(c.IsStandard())
		s.NoError(c.Validate())
	}

	slots, err := s.storage.GetSlots(s.ctx, "s1", "alice", 1)
	s.Require().NoError(err)
	s.Equal(0, slots.Filled())
	s.True(s.player("alice").UsedRefresh)
}

func (s *ControllerSuite) TestRefreshOnce() {
	s.slotting()
	_, err := s.controller.Refresh(s.ctx, "s1", "alice")
	s.Require().NoError(err)

	_, err = s.controller.Refresh(s.ctx, "s1", "alice")
	s.ErrorIs(err, model.ErrPowerUsed)
}

// Detector tests

func (s *ControllerSuite) TestDetectorCountsGroupmateSpecials() {
	s.slotting()

	report, err := s.controller.Detector(s.ctx, "s1", "alice")
	s.Require().NoError(err)

	s.Require().Len(report, 1)
	s.Equal(1, report["bob"][model.SpecialZombie])
	s.Equal(2, report["bob"][model.SpecialShotgun])
	s.Equal(0, report["bob"][model.SpecialInjection])
	s.True(s.player("alice").UsedDetector)

	_, err = s.controller.Detector(s.ctx, "s1", "alice")
	s.ErrorIs(err, model.ErrPowerUsed)
}

// View tests

func (s *ControllerSuite) TestViewHidesOpponentsDuringSlotting() {
	s.slotting()
	_, err := s.controller.SubmitSlots(s.ctx, "s1", "bob", [model.SlotCount]model.CardID{"b1"})
	s.Require().NoError(err)
	s.clock.Advance(15 * time.Second)

	view, err := s.controller.View(s.ctx, "s1", alice)
	s.Require().NoError(err)

	s.Equal(model.PhaseSlotting, view.Phase)
	s.Equal(45, view.RemainingSeconds)
	s.Require().NotNil(view.Me)
	s.Equal(model.PlayerID("alice"), view.Me.ID)
	s.Len(view.Hand, 3)
	s.Nil(view.Slots)
	s.Empty(view.Revealed)
	s.Empty(view.Results)
	s.Len(view.Participants, 3)
}

func (s *ControllerSuite) TestViewRevealsGroupAfterEvaluation() {
	s.slotting()
	_, err := s.controller.SubmitSlots(s.ctx, "s1", "alice", [model.SlotCount]model.CardID{"a1"})
	s.Require().NoError(err)
	_, err = s.controller.SubmitSlots(s.ctx, "s1", "bob", [model.SlotCount]model.CardID{"b1"})
	s.Require().NoError(err)
	s.setPhase(model.PhaseEvaluation, 1)

	view, err := s.controller.View(s.ctx, "s1", alice)
	s.Require().NoError(err)
	s.Require().NotNil(view.Slots)
	s.Require().Len(view.Revealed, 1)
	s.Equal(model.PlayerID("bob"), view.Revealed[0].PlayerID)

	observer, err := s.controller.View(s.ctx, "s1", admin)
	s.Require().NoError(err)
	s.Nil(observer.Me)
	s.Empty(observer.Hand)
	s.Len(observer.Revealed, 2)
}

func (s *ControllerSuite) TestViewShowsOwnExtraction() {
	s.slotting()
	_, err := s.storage.UpdateStateIf(s.ctx, "s1", func(*model.GameState) bool { return true }, func(st *model.GameState) {
		st.Phase = model.PhasePicking
		st.RoundData.Extractions = []model.ExtractionOffer{{GroupID: "g1", Winner: "alice"}}
	})
	s.Require().NoError(err)

	view, err := s.controller.View(s.ctx, "s1", alice)
	s.Require().NoError(err)
	s.Require().NotNil(view.Extraction)
	s.Equal(model.GroupID("g1"), view.Extraction.GroupID)

	view, err = s.controller.View(s.ctx, "s1", bob)
	s.Require().NoError(err)
	s.Nil(view.Extraction)
}
