package extraction

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/diamondsgame/internal/dependencies/mocks"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/storage"
	"github.com/mcoot/diamondsgame/internal/storage/memory"
	"github.com/mcoot/diamondsgame/internal/testutil"
)

type ResolverSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	resolver *Resolver
	ctx      context.Context

	loserCard model.Card
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.resolver = New(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
	s.loserCard = model.NewStandardCard("lc", model.RankQueen, model.SuitSpades)
}

var errTransient = errors.New("transient write failure")

// flakyStorage fails the first hand write for one player
type flakyStorage struct {
	*memory.Storage
	failFor model.PlayerID
	failed  atomic.Bool
}

func (f *flakyStorage) UpdateHand(ctx context.Context, id model.SessionID, playerID model.PlayerID, mutate storage.HandMutation) (*model.Hand, error) {
	if playerID == f.failFor && f.failed.CompareAndSwap(false, true) {
		return nil, errTransient
	}
	return f.Storage.UpdateHand(ctx, id, playerID, mutate)
}

func result(winners, losers []model.PlayerID, cards map[model.PlayerID][]model.Card) model.BattleResult {
	res := model.BattleResult{GroupID: "g1", Round: 1, Winners: winners, Losers: losers}
	for id, cs := range cards {
		b := model.Breakdown{PlayerID: id}
		for i := range cs {
			c := cs[i]
			b.Slots[i] = model.SlotValue{Value: c.Value(), Card: &c}
		}
		res.Breakdown = append(res.Breakdown, b)
	}
	return res
}

// seed stores a picking-phase session where w beat l
func (s *ResolverSuite) seed() {
	res := result([]model.PlayerID{"w"}, []model.PlayerID{"l"}, map[model.PlayerID][]model.Card{
		"w": {model.NewStandardCard("wc", model.RankAce, model.SuitHearts)},
		"l": {s.loserCard},
	})
	state := &model.GameState{
		SessionID: "s1",
		Phase:     model.PhasePicking,
		Round:     1,
		RoundData: model.RoundData{
			Results:     []model.BattleResult{res},
			Extractions: s.resolver.Prepare([]model.BattleResult{res}),
		},
	}
	s.Require().NoError(s.storage.CreateState(s.ctx, state))
	s.Require().NoError(s.storage.SaveHand(s.ctx, &model.Hand{SessionID: "s1", PlayerID: "w"}))
	s.Require().NoError(s.storage.SaveHand(s.ctx, &model.Hand{SessionID: "s1", PlayerID: "l", Cards: []model.Card{s.loserCard}}))
}

// Prepare tests

func (s *ResolverSuite) TestPrepareSingleWinner() {
	zombie := model.NewSpecialCard("z", model.SpecialZombie)
	res := result([]model.PlayerID{"w"}, []model.PlayerID{"l"}, map[model.PlayerID][]model.Card{
		"l": {s.loserCard, zombie},
	})

	offers := s.resolver.Prepare([]model.BattleResult{res})

	s.Require().Len(offers, 1)
	s.Equal(model.PlayerID("w"), offers[0].Winner)
	s.Require().Len(offers[0].Candidates, 2)
	s.Equal(model.PlayerID("l"), offers[0].Candidates[0].Owner)
	s.Equal(model.CardID("z"), offers[0].Candidates[1].Card.ID)
	s.False(offers[0].Resolved)
}

func (s *ResolverSuite) TestPrepareSkipsTiesAndNoLosers() {
	tie := result([]model.PlayerID{"a", "b"}, []model.PlayerID{"c"}, map[model.PlayerID][]model.Card{"c": {s.loserCard}})
	bothLose := result(nil, []model.PlayerID{"a", "b"}, map[model.PlayerID][]model.Card{"a": {s.loserCard}})
	eliminatedOnly := model.BattleResult{Winners: []model.PlayerID{"a"}, Eliminated: []model.PlayerID{"b"}}

	s.Empty(s.resolver.Prepare([]model.BattleResult{tie, bothLose, eliminatedOnly}))
}

func (s *ResolverSuite) TestPrepareCollectsFromEveryLoser() {
	other := model.NewStandardCard("oc", model.Rank(3), model.SuitClubs)
	res := result([]model.PlayerID{"w"}, []model.PlayerID{"l", "m"}, map[model.PlayerID][]model.Card{
		"l": {s.loserCard},
		"m": {other},
	})

	offers := s.resolver.Prepare([]model.BattleResult{res})

	s.Require().Len(offers, 1)
	s.Len(offers[0].Candidates, 2)
}

// Claim tests

func (s *ResolverSuite) TestClaimMovesCard() {
	s.seed()

	taken, err := s.resolver.Claim(s.ctx, "s1", "w", "lc")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("l"), taken.Owner)

	winnerHand, err := s.storage.GetHand(s.ctx, "s1", "w")
	s.Require().NoError(err)
	s.True(winnerHand.Contains("lc"))

	loserHand, err := s.storage.GetHand(s.ctx, "s1", "l")
	s.Require().NoError(err)
	s.False(loserHand.Contains("lc"))

	state, err := s.storage.GetState(s.ctx, "s1")
	s.Require().NoError(err)
	s.True(state.RoundData.Extractions[0].Resolved)
	s.Equal(model.CardID("lc"), *state.RoundData.Extractions[0].Taken)
}

func (s *ResolverSuite) TestClaimTwiceFails() {
	s.seed()

	_, err := s.resolver.Claim(s.ctx, "s1", "w", "lc")
	s.Require().NoError(err)

	_, err = s.resolver.Claim(s.ctx, "s1", "w", "lc")
	s.ErrorIs(err, model.ErrExtractionResolved)
}

func (s *ResolverSuite) TestClaimRejectsNonCandidate() {
	s.seed()

	_, err := s.resolver.Claim(s.ctx, "s1", "w", "wc")
	s.ErrorIs(err, model.ErrNotCandidate)
}

func (s *ResolverSuite) TestClaimByLoserFails() {
	s.seed()

	_, err := s.resolver.Claim(s.ctx, "s1", "l", "lc")
	s.ErrorIs(err, model.ErrNoExtraction)
}

func (s *ResolverSuite) TestClaimOutsidePicking() {
	s.seed()
	_, err := s.storage.UpdateStateIf(s.ctx, "s1", func(*model.GameState) bool { return true }, func(st *model.GameState) {
		st.Phase = model.PhaseShuffle
	})
	s.Require().NoError(err)

	_, err = s.resolver.Claim(s.ctx, "s1", "w", "lc")
	s.ErrorIs(err, model.ErrWrongPhase)
}

func (s *ResolverSuite) TestClaimBlockedWhileTransitionHeld() {
	s.seed()
	_, err := s.storage.UpdateStateIf(s.ctx, "s1", func(*model.GameState) bool { return true }, func(st *model.GameState) {
		st.UpdateMarker = "someone"
	})
	s.Require().NoError(err)

	_, err = s.resolver.Claim(s.ctx, "s1", "w", "lc")
	s.ErrorIs(err, model.ErrWrongPhase)

	loserHand, err := s.storage.GetHand(s.ctx, "s1", "l")
	s.Require().NoError(err)
	s.True(loserHand.Contains("lc"))
}

func (s *ResolverSuite) TestClaimRetryFinishesFailedMove() {
	s.seed()
	resolver := New(&flakyStorage{Storage: s.storage, failFor: "w"}, s.clock, testutil.NopLogger())

	_, err := resolver.Claim(s.ctx, "s1", "w", "lc")
	s.Require().ErrorIs(err, errTransient)

	state, err := s.storage.GetState(s.ctx, "s1")
	s.Require().NoError(err)
	offer := state.RoundData.Extractions[0]
	s.False(offer.Resolved)
	s.Require().NotNil(offer.Escrow)
	s.Equal(s.loserCard, offer.Escrow.Card)
	s.Equal(model.PlayerID("l"), offer.Escrow.Owner)

	// The chosen card can no longer be swapped out or declined
	s.ErrorIs(resolver.Decline(s.ctx, "s1", "w"), model.ErrExtractionResolved)

	taken, err := resolver.Claim(s.ctx, "s1", "w", "lc")
	s.Require().NoError(err)
	s.Equal(s.loserCard, taken.Card)

	winnerHand, err := s.storage.GetHand(s.ctx, "s1", "w")
	s.Require().NoError(err)
	s.Equal([]model.Card{s.loserCard}, winnerHand.Cards)
	loserHand, err := s.storage.GetHand(s.ctx, "s1", "l")
	s.Require().NoError(err)
	s.False(loserHand.Contains("lc"))

	state, err = s.storage.GetState(s.ctx, "s1")
	s.Require().NoError(err)
	s.True(state.RoundData.Extractions[0].Resolved)
	s.Nil(state.RoundData.Extractions[0].Escrow)
	s.Equal(model.CardID("lc"), *state.RoundData.Extractions[0].Taken)
}

func (s *ResolverSuite) TestClaimMissingCardLeavesOfferOpen() {
	s.seed()
	_, err := s.storage.UpdateHand(s.ctx, "s1", "l", func(h *model.Hand) error {
		h.Remove("lc")
		return nil
	})
	s.Require().NoError(err)

	_, err = s.resolver.Claim(s.ctx, "s1", "w", "lc")
	s.ErrorIs(err, model.ErrCardNotInHand)

	offer, err := s.resolver.Offer(s.ctx, "s1", "w")
	s.Require().NoError(err)
	s.Nil(offer.Escrow)
	s.NoError(s.resolver.Decline(s.ctx, "s1", "w"))
}

func (s *ResolverSuite) TestSettleDeliversEscrowedCard() {
	s.seed()
	resolver := New(&flakyStorage{Storage: s.storage, failFor: "w"}, s.clock, testutil.NopLogger())
	_, err := resolver.Claim(s.ctx, "s1", "w", "lc")
	s.Require().ErrorIs(err, errTransient)

	state, err := s.storage.GetState(s.ctx, "s1")
	s.Require().NoError(err)
	work := state.Clone()
	s.Require().NoError(resolver.Settle(s.ctx, work))

	offer := work.RoundData.Extractions[0]
	s.True(offer.Resolved)
	s.Nil(offer.Escrow)
	s.Equal(model.CardID("lc"), *offer.Taken)

	winnerHand, err := s.storage.GetHand(s.ctx, "s1", "w")
	s.Require().NoError(err)
	s.True(winnerHand.Contains("lc"))
	loserHand, err := s.storage.GetHand(s.ctx, "s1", "l")
	s.Require().NoError(err)
	s.False(loserHand.Contains("lc"))

	// Settling twice moves nothing further
	s.Require().NoError(resolver.Settle(s.ctx, work))
	winnerHand, err = s.storage.GetHand(s.ctx, "s1", "w")
	s.Require().NoError(err)
	s.Len(winnerHand.Cards, 1)
}

func (s *ResolverSuite) TestSettleIgnoresUnchosenOffers() {
	s.seed()
	state, err := s.storage.GetState(s.ctx, "s1")
	s.Require().NoError(err)
	work := state.Clone()

	s.Require().NoError(s.resolver.Settle(s.ctx, work))

	s.False(work.RoundData.Extractions[0].Resolved)
	loserHand, err := s.storage.GetHand(s.ctx, "s1", "l")
	s.Require().NoError(err)
	s.True(loserHand.Contains("lc"))
}

func (s *ResolverSuite) TestDecline() {
	s.seed()

	s.Require().NoError(s.resolver.Decline(s.ctx, "s1", "w"))

	state, err := s.storage.GetState(s.ctx, "s1")
	s.Require().NoError(err)
	s.True(state.RoundData.Extractions[0].Resolved)
	s.Nil(state.RoundData.Extractions[0].Taken)

	s.ErrorIs(s.resolver.Decline(s.ctx, "s1", "w"), model.ErrExtractionResolved)
}

func (s *ResolverSuite) TestOffer() {
	s.seed()

	offer, err := s.resolver.Offer(s.ctx, "s1", "w")
	s.Require().NoError(err)
	s.Len(offer.Candidates, 1)

	_, err = s.resolver.Offer(s.ctx, "s1", "l")
	s.ErrorIs(err, model.ErrNoExtraction)
}
