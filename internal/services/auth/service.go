package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/diamondsgame/internal/dependencies/clock"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidInput       = errors.New("username, password and display name are required")
)

// Claims is the payload of an identity token
type Claims struct {
	DisplayName string `json:"name"`
	Admin       bool   `json:"admin,omitempty"`
	Guest       bool   `json:"guest,omitempty"`
	jwt.StandardClaims
}

// Valid is called by the parser. Expiry is checked separately against the
// service clock.
func (c *Claims) Valid() error {
	if c.Subject == "" {
		return errors.New("token has no subject")
	}
	return nil
}

// Token is a signed identity token and what it asserts
type Token struct {
	Token     string         `json:"token"`
	Identity  model.Identity `json:"identity"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Config holds configuration for the auth service
type Config struct {
	// TokenSecret signs and verifies HS256 tokens
	TokenSecret string
	TokenTTL    time.Duration
	Issuer      string
	// AdminUsernames are granted elevated privilege on register and login
	AdminUsernames []string
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		TokenTTL: 24 * time.Hour,
		Issuer:   "diamonds",
	}
}

// Service is the identity provider: it registers accounts, mints guest
// identities and issues and verifies signed tokens
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	cfg     Config
	admins  map[string]bool
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, cfg Config) *Service {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultConfig().Issuer
	}
	admins := make(map[string]bool, len(cfg.AdminUsernames))
	for _, name := range cfg.AdminUsernames {
		if name = strings.TrimSpace(name); name != "" {
			admins[name] = true
		}
	}
	return &Service{
		storage: storage,
		clock:   clock,
		cfg:     cfg,
		admins:  admins,
	}
}

// Register creates an account and returns a token for it
func (s *Service) Register(ctx context.Context, username, password, displayName string) (*Token, error) {
	if username == "" || password == "" || displayName == "" {
		return nil, ErrInvalidInput
	}

	_, err := s.storage.GetAccountByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		PlayerID:     newPlayerID(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		IsAdmin:      s.admins[username],
		CreatedAt:    s.clock.Now(),
	}
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	return s.issue(model.Identity{
		PlayerID:    account.PlayerID,
		DisplayName: account.DisplayName,
		IsAdmin:     account.IsAdmin,
	})
}

// Login checks an account's password and returns a fresh token
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	account, err := s.storage.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(model.Identity{
		PlayerID:    account.PlayerID,
		DisplayName: account.DisplayName,
		IsAdmin:     account.IsAdmin || s.admins[username],
	})
}

// Guest mints an unregistered identity. Guests are never elevated.
func (s *Service) Guest(displayName string) (*Token, error) {
	if displayName == "" {
		return nil, ErrInvalidInput
	}
	return s.issue(model.Identity{
		PlayerID:    newPlayerID(),
		DisplayName: displayName,
		IsGuest:     true,
	})
}

// Verify parses a token and returns the identity it asserts
func (s *Service) Verify(token string) (*model.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.TokenSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(s.clock.Now().Unix(), true) || !claims.VerifyIssuer(s.cfg.Issuer, true) {
		return nil, ErrInvalidToken
	}

	return &model.Identity{
		PlayerID:    model.PlayerID(claims.Subject),
		DisplayName: claims.DisplayName,
		IsAdmin:     claims.Admin && !claims.Guest,
		IsGuest:     claims.Guest,
	}, nil
}

// issue signs a token for the identity
func (s *Service) issue(identity model.Identity) (*Token, error) {
	if s.cfg.TokenSecret == "" {
		return nil, errors.New("token secret is not configured")
	}
	now := s.clock.Now()
	expires := now.Add(s.cfg.TokenTTL)

	claims := &Claims{
		DisplayName: identity.DisplayName,
		Admin:       identity.IsAdmin,
		Guest:       identity.IsGuest,
		StandardClaims: jwt.StandardClaims{
			Subject:   string(identity.PlayerID),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: expires.Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.TokenSecret))
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &Token{
		Token:     signed,
		Identity:  identity,
		ExpiresAt: time.Unix(expires.Unix(), 0).UTC(),
	}, nil
}

func newPlayerID() model.PlayerID {
	return model.PlayerID("p_" + uuid.NewString())
}
