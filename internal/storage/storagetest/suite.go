// Package storagetest holds the behavioral test suite every storage backend
// must pass.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/storage"
)

// Suite exercises a storage.Storage implementation. Backends embed it and
// set NewStorage before running.
type Suite struct {
	suite.Suite

	// NewStorage builds a fresh, empty backend for each test
	NewStorage func(t *testing.T) storage.Storage

	Store storage.Storage
	Ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Store = s.NewStorage(s.T())
	s.Ctx = context.Background()
}

func (s *Suite) newState(id model.SessionID) *model.GameState {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &model.GameState{
		SessionID:            id,
		Phase:                model.PhaseIdle,
		Round:                0,
		PhaseStartedAt:       now,
		PhaseDurationSeconds: 0,
		Seed:                 42,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (s *Suite) createState(id model.SessionID) {
	s.Require().NoError(s.Store.CreateState(s.Ctx, s.newState(id)))
}

// Session state tests

func (s *Suite) TestCreateAndGetState() {
	s.createState("s1")

	got, err := s.Store.GetState(s.Ctx, "s1")
	s.Require().NoError(err)
	s.Equal(model.SessionID("s1"), got.SessionID)
	s.Equal(model.PhaseIdle, got.Phase)
	s.Equal(uint64(42), got.Seed)
}

func (s *Suite) TestCreateStateTwiceFails() {
	s.createState("s1")
	err := s.Store.CreateState(s.Ctx, s.newState("s1"))
	s.ErrorIs(err, model.ErrSessionExists)
}

func (s *Suite) TestGetStateNotFound() {
	_, err := s.Store.GetState(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestListSessions() {
	s.createState("b")
	s.createState("a")

	ids, err := s.Store.ListSessions(s.Ctx)
	s.Require().NoError(err)
	s.Equal([]model.SessionID{"a", "b"}, ids)
}

func (s *Suite) TestUpdateStateIfApplied() {
	s.createState("s1")

	applied, err := s.Store.UpdateStateIf(s.Ctx, "s1",
		storage.PhaseIs(model.PhaseIdle, 0),
		func(st *model.GameState) {
			st.Phase = model.PhaseBriefing
			st.Participants = []model.Player{{ID: "p1", Status: model.StatusActive}}
		})
	s.Require().NoError(err)
	s.True(applied)

	got, err := s.Store.GetState(s.Ctx, "s1")
	s.Require().NoError(err)
	s.Equal(model.PhaseBriefing, got.Phase)
	s.Len(got.Participants, 1)
}

func (s *Suite) TestUpdateStateIfConditionFails() {
	s.createState("s1")

	applied, err := s.Store.UpdateStateIf(s.Ctx, "s1",
		storage.PhaseIs(model.PhaseShuffle, 1),
		func(st *model.GameState) { st.Phase = model.PhaseEnd })
	s.Require().NoError(err)
	s.False(applied)

	got, err := s.Store.GetState(s.Ctx, "s1")
	s.Require().NoError(err)
	s.Equal(model.PhaseIdle, got.Phase)
}

func (s *Suite) TestUpdateStateIfMissingSession() {
	_, err := s.Store.UpdateStateIf(s.Ctx, "missing", storage.Always, func(*model.GameState) {})
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestUpdateStateIfMarker() {
	s.createState("s1")

	applied, err := s.Store.UpdateStateIf(s.Ctx, "s1", storage.Always, func(st *model.GameState) {
		st.UpdateMarker = "mine"
	})
	s.Require().NoError(err)
	s.True(applied)

	applied, err = s.Store.UpdateStateIf(s.Ctx, "s1", storage.MarkerIs("theirs"), func(st *model.GameState) {
		st.Phase = model.PhaseEnd
	})
	s.Require().NoError(err)
	s.False(applied)

	applied, err = s.Store.UpdateStateIf(s.Ctx, "s1", storage.MarkerIs("mine"), func(st *model.GameState) {
		st.Phase = model.PhaseEnd
		st.UpdateMarker = ""
	})
	s.Require().NoError(err)
	s.True(applied)
}

func (s *Suite) TestConcurrentClaimHasSingleWinner() {
	s.createState("s1")

	const claimants = 12
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			marker := fmt.Sprintf("claimant-%d", n)
			applied, err := s.Store.UpdateStateIf(s.Ctx, "s1",
				func(st *model.GameState) bool {
					return st.Phase == model.PhaseIdle && st.UpdateMarker == ""
				},
				func(st *model.GameState) { st.UpdateMarker = marker })
			if err == nil && applied {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	got, err := s.Store.GetState(s.Ctx, "s1")
	s.Require().NoError(err)
	s.NotEmpty(got.UpdateMarker)
}

func (s *Suite) TestGetStateReturnsCopy() {
	s.createState("s1")

	got, err := s.Store.GetState(s.Ctx, "s1")
	s.Require().NoError(err)
	got.Phase = model.PhaseEnd

	again, err := s.Store.GetState(s.Ctx, "s1")
	s.Require().NoError(err)
	s.Equal(model.PhaseIdle, again.Phase)
}

// Entrant tests

func (s *Suite) TestEntrantsOrderedAndIdempotent() {
	s.createState("s1")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.Store.AddEntrant(s.Ctx, "s1", model.Entrant{PlayerID: "p2", DisplayName: "Bob", JoinedAt: base.Add(time.Second)}))
	s.Require().NoError(s.Store.AddEntrant(s.Ctx, "s1", model.Entrant{PlayerID: "p1", DisplayName: "Alice", JoinedAt: base}))
	s.Require().NoError(s.Store.AddEntrant(s.Ctx, "s1", model.Entrant{PlayerID: "p2", DisplayName: "Bob again", JoinedAt: base.Add(time.Hour)}))

	entrants, err := s.Store.GetEntrants(s.Ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(entrants, 2)
	s.Equal(model.PlayerID("p1"), entrants[0].PlayerID)
	s.Equal(model.PlayerID("p2"), entrants[1].PlayerID)
	s.Equal("Bob", entrants[1].DisplayName)
}

func (s *Suite) TestAddEntrantMissingSession() {
	err := s.Store.AddEntrant(s.Ctx, "missing", model.Entrant{PlayerID: "p1"})
	s.ErrorIs(err, model.ErrSessionNotFound)
}

// Hand tests

func (s *Suite) TestSaveAndGetHand() {
	hand := &model.Hand{
		SessionID: "s1",
		PlayerID:  "p1",
		Cards: []model.Card{
			model.NewStandardCard("c1", model.RankAce, model.SuitSpades),
			model.NewSpecialCard("c2", model.SpecialZombie),
		},
	}
	s.Require().NoError(s.Store.SaveHand(s.Ctx, hand))

	got, err := s.Store.GetHand(s.Ctx, "s1", "p1")
	s.Require().NoError(err)
	s.Require().Len(got.Cards, 2)
	s.Equal(14, got.Cards[0].Value())
	s.True(got.Cards[1].IsSpecial(model.SpecialZombie))
}

func (s *Suite) TestGetHandNotFound() {
	_, err := s.Store.GetHand(s.Ctx, "s1", "nobody")
	s.ErrorIs(err, model.ErrHandNotFound)
}

func (s *Suite) TestGetHandsScopedToSession() {
	s.Require().NoError(s.Store.SaveHand(s.Ctx, &model.Hand{SessionID: "s1", PlayerID: "p2"}))
	s.Require().NoError(s.Store.SaveHand(s.Ctx, &model.Hand{SessionID: "s1", PlayerID: "p1"}))
	s.Require().NoError(s.Store.SaveHand(s.Ctx, &model.Hand{SessionID: "s2", PlayerID: "p3"}))

	hands, err := s.Store.GetHands(s.Ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(hands, 2)
	s.Equal(model.PlayerID("p1"), hands[0].PlayerID)
	s.Equal(model.PlayerID("p2"), hands[1].PlayerID)
}

func (s *Suite) TestUpdateHand() {
	s.Require().NoError(s.Store.SaveHand(s.Ctx, &model.Hand{
		SessionID: "s1",
		PlayerID:  "p1",
		Cards:     []model.Card{model.NewStandardCard("c1", model.Rank(2), model.SuitHearts)},
	}))

	updated, err := s.Store.UpdateHand(s.Ctx, "s1", "p1", func(h *model.Hand) error {
		h.Cards = append(h.Cards, model.NewStandardCard("c2", model.RankKing, model.SuitClubs))
		h.SpentRound = 3
		return nil
	})
	s.Require().NoError(err)
	s.Len(updated.Cards, 2)

	got, err := s.Store.GetHand(s.Ctx, "s1", "p1")
	s.Require().NoError(err)
	s.Len(got.Cards, 2)
	s.Equal(3, got.SpentRound)
}

func (s *Suite) TestUpdateHandErrorAborts() {
	s.Require().NoError(s.Store.SaveHand(s.Ctx, &model.Hand{
		SessionID: "s1",
		PlayerID:  "p1",
		Cards:     []model.Card{model.NewStandardCard("c1", model.Rank(2), model.SuitHearts)},
	}))

	_, err := s.Store.UpdateHand(s.Ctx, "s1", "p1", func(h *model.Hand) error {
		h.Cards = nil
		return model.ErrCardNotInHand
	})
	s.ErrorIs(err, model.ErrCardNotInHand)

	got, err := s.Store.GetHand(s.Ctx, "s1", "p1")
	s.Require().NoError(err)
	s.Len(got.Cards, 1)
}

func (s *Suite) TestUpdateHandNotFound() {
	_, err := s.Store.UpdateHand(s.Ctx, "s1", "p1", func(*model.Hand) error { return nil })
	s.ErrorIs(err, model.ErrHandNotFound)
}

func (s *Suite) TestDeleteHands() {
	s.Require().NoError(s.Store.SaveHand(s.Ctx, &model.Hand{SessionID: "s1", PlayerID: "p1"}))
	s.Require().NoError(s.Store.SaveHand(s.Ctx, &model.Hand{SessionID: "s2", PlayerID: "p1"}))

	s.Require().NoError(s.Store.DeleteHands(s.Ctx, "s1"))

	_, err := s.Store.GetHand(s.Ctx, "s1", "p1")
	s.ErrorIs(err, model.ErrHandNotFound)
	_, err = s.Store.GetHand(s.Ctx, "s2", "p1")
	s.NoError(err)
}

// Slot tests

func (s *Suite) TestSlotsPerRound() {
	card := model.NewStandardCard("c1", model.Rank(10), model.SuitDiamonds)
	r1 := &model.SlotAssignment{SessionID: "s1", PlayerID: "p1", Round: 1}
	r1.Slots[0] = &card
	s.Require().NoError(s.Store.SaveSlots(s.Ctx, r1))
	s.Require().NoError(s.Store.SaveSlots(s.Ctx, &model.SlotAssignment{SessionID: "s1", PlayerID: "p1", Round: 2}))
	s.Require().NoError(s.Store.SaveSlots(s.Ctx, &model.SlotAssignment{SessionID: "s1", PlayerID: "p2", Round: 1}))

	got, err := s.Store.GetSlots(s.Ctx, "s1", "p1", 1)
	s.Require().NoError(err)
	s.Equal(1, got.Filled())
	s.Equal(10, got.Slots[0].Value())

	round1, err := s.Store.GetSlotsForRound(s.Ctx, "s1", 1)
	s.Require().NoError(err)
	s.Require().Len(round1, 2)
	s.Equal(model.PlayerID("p1"), round1[0].PlayerID)

	_, err = s.Store.GetSlots(s.Ctx, "s1", "p2", 2)
	s.ErrorIs(err, model.ErrSlotsNotFound)
}

func (s *Suite) TestDeleteSlots() {
	s.Require().NoError(s.Store.SaveSlots(s.Ctx, &model.SlotAssignment{SessionID: "s1", PlayerID: "p1", Round: 1}))
	s.Require().NoError(s.Store.SaveSlots(s.Ctx, &model.SlotAssignment{SessionID: "s1", PlayerID: "p1", Round: 2}))

	s.Require().NoError(s.Store.DeleteSlots(s.Ctx, "s1"))

	round1, err := s.Store.GetSlotsForRound(s.Ctx, "s1", 1)
	s.Require().NoError(err)
	s.Empty(round1)
	_, err = s.Store.GetSlots(s.Ctx, "s1", "p1", 2)
	s.ErrorIs(err, model.ErrSlotsNotFound)
}

// Profile and account tests

func (s *Suite) TestProfiles() {
	_, err := s.Store.GetProfile(s.Ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	s.Require().NoError(s.Store.SaveProfile(s.Ctx, &model.Profile{PlayerID: "p1", Score: 400}))
	s.Require().NoError(s.Store.SaveProfile(s.Ctx, &model.Profile{PlayerID: "p1", Score: -100}))

	got, err := s.Store.GetProfile(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(-100, got.Score)
}

func (s *Suite) TestAccounts() {
	account := &model.Account{
		PlayerID:     "p1",
		Username:     "alice",
		DisplayName:  "Alice",
		PasswordHash: "hash",
		IsAdmin:      true,
	}
	s.Require().NoError(s.Store.SaveAccount(s.Ctx, account))

	byID, err := s.Store.GetAccount(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)
	s.True(byID.IsAdmin)

	byName, err := s.Store.GetAccountByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), byName.PlayerID)

	_, err = s.Store.GetAccountByUsername(s.Ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Notification tests

func (s *Suite) TestPublishSubscribe() {
	ctx, cancel := context.WithCancel(s.Ctx)
	defer cancel()

	events, err := s.Store.Subscribe(ctx, "s1")
	s.Require().NoError(err)

	s.Require().NoError(s.Store.Publish(s.Ctx, model.Event{Type: model.EventPhaseChanged, SessionID: "s2"}))
	s.Require().NoError(s.Store.Publish(s.Ctx, model.Event{
		Type:      model.EventPhaseChanged,
		SessionID: "s1",
		Phase:     model.PhaseShuffle,
		Round:     1,
	}))

	select {
	case ev := <-events:
		s.Equal(model.EventPhaseChanged, ev.Type)
		s.Equal(model.SessionID("s1"), ev.SessionID)
		s.Equal(model.PhaseShuffle, ev.Phase)
	case <-time.After(2 * time.Second):
		s.Fail("timed out waiting for event")
	}
}

func (s *Suite) TestSubscribeClosesOnCancel() {
	ctx, cancel := context.WithCancel(s.Ctx)
	events, err := s.Store.Subscribe(ctx, "s1")
	s.Require().NoError(err)

	cancel()

	select {
	case _, ok := <-events:
		s.False(ok)
	case <-time.After(2 * time.Second):
		s.Fail("channel not closed after cancel")
	}
}
