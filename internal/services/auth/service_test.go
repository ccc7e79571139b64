package auth

import (
	"context"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/diamondsgame/internal/dependencies/mocks"
	"github.com/mcoot/diamondsgame/internal/storage/memory"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.TokenSecret = "test-secret"
	cfg.AdminUsernames = []string{"warden", " "}
	s.service = New(s.storage, s.clock, cfg)
	s.ctx = context.Background()
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	token, err := s.service.Register(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	s.NotEmpty(token.Token)
	s.Equal("Alice", token.Identity.DisplayName)
	s.False(token.Identity.IsAdmin)
	s.False(token.Identity.IsGuest)
	s.True(s.clock.Now().Add(24*time.Hour).Equal(token.ExpiresAt))
}

func (s *ServiceSuite) TestRegisterHashesPassword() {
	token, err := s.service.Register(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	account, err := s.storage.GetAccount(s.ctx, token.Identity.PlayerID)
	s.Require().NoError(err)
	s.Equal("alice", account.Username)
	s.NotEqual("password123", account.PasswordHash)
}

func (s *ServiceSuite) TestRegisterDuplicateUsername() {
	_, err := s.service.Register(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "alice", "other", "Alice Two")
	s.ErrorIs(err, ErrUsernameExists)
}

func (s *ServiceSuite) TestRegisterRequiresFields() {
	_, err := s.service.Register(s.ctx, "alice", "", "Alice")
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *ServiceSuite) TestRegisterAdminUsername() {
	token, err := s.service.Register(s.ctx, "warden", "secret", "The Warden")
	s.Require().NoError(err)
	s.True(token.Identity.IsAdmin)

	identity, err := s.service.Verify(token.Token)
	s.Require().NoError(err)
	s.True(identity.IsAdmin)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	registered, err := s.service.Register(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	token, err := s.service.Login(s.ctx, "alice", "password123")
	s.Require().NoError(err)
	s.Equal(registered.Identity.PlayerID, token.Identity.PlayerID)
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	_, err := s.service.Register(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, "alice", "wrong")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginUnknownUser() {
	_, err := s.service.Login(s.ctx, "nobody", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

// Guest tests

func (s *ServiceSuite) TestGuest() {
	token, err := s.service.Guest("Visitor")
	s.Require().NoError(err)
	s.True(token.Identity.IsGuest)
	s.NotEmpty(token.Identity.PlayerID)

	identity, err := s.service.Verify(token.Token)
	s.Require().NoError(err)
	s.Equal(token.Identity, *identity)
}

func (s *ServiceSuite) TestGuestsAreDistinct() {
	a, err := s.service.Guest("Visitor")
	s.Require().NoError(err)
	b, err := s.service.Guest("Visitor")
	s.Require().NoError(err)
	s.NotEqual(a.Identity.PlayerID, b.Identity.PlayerID)
}

// Verify tests

func (s *ServiceSuite) TestVerifyExpired() {
	token, err := s.service.Guest("Visitor")
	s.Require().NoError(err)

	s.clock.Advance(25 * time.Hour)
	_, err = s.service.Verify(token.Token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyWrongSecret() {
	other := New(s.storage, s.clock, Config{TokenSecret: "another-secret"})
	token, err := other.Guest("Visitor")
	s.Require().NoError(err)

	_, err = s.service.Verify(token.Token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyRejectsUnsignedToken() {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Admin:          true,
		StandardClaims: jwt.StandardClaims{Subject: "p_x", Issuer: "diamonds", ExpiresAt: s.clock.Now().Add(time.Hour).Unix()},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)

	_, err = s.service.Verify(unsigned)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyGarbage() {
	_, err := s.service.Verify("not-a-token")
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestIssueWithoutSecret() {
	svc := New(s.storage, s.clock, Config{})
	_, err := svc.Guest("Visitor")
	s.Error(err)
}
