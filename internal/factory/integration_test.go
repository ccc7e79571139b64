package factory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/services/auth"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.app.HubManager.Close()
}

func (s *IntegrationSuite) guest(name string) model.Identity {
	token, err := s.app.AuthService.Guest(name)
	s.Require().NoError(err)
	return token.Identity
}

func (s *IntegrationSuite) admin() model.Identity {
	token, err := s.app.AuthService.Register(s.ctx, TestAdminUsername, "overseer", "Warden")
	s.Require().NoError(err)
	s.Require().True(token.Identity.IsAdmin)
	return token.Identity
}

func (s *IntegrationSuite) state(id model.SessionID) *model.GameState {
	state, err := s.app.SessionController.GetState(s.ctx, id)
	s.Require().NoError(err)
	return state
}

// expireAndTick runs out the current phase's timer and ticks once
func (s *IntegrationSuite) expireAndTick(id model.SessionID) {
	s.app.ExpirePhase(120)
	_, err := s.app.Coordinator.Tick(s.ctx, id)
	s.Require().NoError(err)
}

// commitAll puts each active player's first card in slot one
func (s *IntegrationSuite) commitAll(id model.SessionID) {
	state := s.state(id)
	for _, pid := range state.ActivePlayers() {
		hand, err := s.app.Storage.GetHand(s.ctx, id, pid)
		if errors.Is(err, model.ErrHandNotFound) || (err == nil && len(hand.Cards) == 0) {
			continue
		}
		s.Require().NoError(err)

		var slots [model.SlotCount]model.CardID
		slots[0] = hand.Cards[0].ID
		_, err = s.app.SessionController.SubmitSlots(s.ctx, id, pid, slots)
		s.Require().NoError(err)
	}
}

// Test: Complete session flow from creation to the end phase
func (s *IntegrationSuite) TestCompleteSessionFlow() {
	admin := s.admin()
	players := []model.Identity{s.guest("Arisu"), s.guest("Usagi"), s.guest("Karube"), s.guest("Chota")}

	// Step 1: Create a session and subscribe to its stream
	created, err := s.app.SessionController.CreateSession(s.ctx, admin)
	s.Require().NoError(err)
	id := created.SessionID

	hub, err := s.app.HubManager.GetOrCreateHub(id)
	s.Require().NoError(err)
	s.NotNil(hub)

	// Step 2: Everyone joins
	for _, p := range players {
		s.Require().NoError(s.app.SessionController.Join(s.ctx, id, p))
	}

	// Step 3: Start builds the roster
	s.Require().NoError(s.app.Coordinator.Start(s.ctx, id))
	s.Equal(model.PhaseBriefing, s.state(id).Phase)
	s.Len(s.state(id).Participants, len(players))

	// Step 4: Drive the phases until the session ends
	seenPicking := false
	for range 100 {
		state := s.state(id)
		if state.Phase == model.PhaseEnd {
			break
		}
		switch state.Phase {
		case model.PhaseSlotting:
			s.commitAll(id)
			// The last commitment ends slotting without waiting for the timer
			_, err := s.app.Coordinator.TryEarlyAdvance(s.ctx, id)
			s.Require().NoError(err)
			if s.state(id).Phase == model.PhaseSlotting {
				s.expireAndTick(id)
			}
		case model.PhasePicking:
			seenPicking = true
			for _, offer := range state.RoundData.Extractions {
				if !offer.Resolved {
					s.Require().NoError(s.app.ExtractionResolver.Decline(s.ctx, id, offer.Winner))
				}
			}
			s.expireAndTick(id)
		default:
			s.expireAndTick(id)
		}
	}

	final := s.state(id)
	s.Require().Equal(model.PhaseEnd, final.Phase)
	s.True(seenPicking)

	// Step 5: Nobody is left active and every score was carried to a profile
	s.Empty(final.ActivePlayers())
	for _, p := range final.Participants {
		s.Contains([]model.PlayerStatus{model.StatusEliminated, model.StatusSurvived}, p.Status)
		profile, err := s.app.Storage.GetProfile(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p.Score, profile.Score)
	}

	// Step 6: Reset returns the session to idle for another run
	s.Require().NoError(s.app.Coordinator.Reset(s.ctx, id))
	s.Equal(model.PhaseIdle, s.state(id).Phase)
}

func (s *IntegrationSuite) TestGuestTokenRoundTrip() {
	token, err := s.app.AuthService.Guest("Arisu")
	s.Require().NoError(err)

	identity, err := s.app.AuthService.Verify(token.Token)
	s.Require().NoError(err)
	s.Equal(token.Identity.PlayerID, identity.PlayerID)
	s.False(identity.IsAdmin)
}

func TestNewDefaultsToMemory(t *testing.T) {
	app, err := New(Config{AuthConfig: auth.Config{TokenSecret: "s"}})
	if err != nil {
		t.Fatal(err)
	}
	defer app.HubManager.Close()
	if app.Storage == nil || app.Coordinator == nil || app.Driver == nil {
		t.Fatal("app not fully wired")
	}
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	_, err := New(Config{StorageType: "carrier-pigeon"})
	if err == nil {
		t.Fatal("expected error for unknown storage type")
	}
}

func TestNewRedisRequiresConfig(t *testing.T) {
	_, err := New(Config{StorageType: StorageTypeRedis})
	if err == nil {
		t.Fatal("expected error without redis config")
	}
}

func TestNewLoadsRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("rounds: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	app, err := New(Config{RulesPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer app.HubManager.Close()
	if app.Rules.Rounds != 3 {
		t.Fatalf("rounds = %d, want 3", app.Rules.Rounds)
	}
	if app.Rules.HandSize != 7 {
		t.Fatalf("hand_size = %d, want default 7", app.Rules.HandSize)
	}
}
