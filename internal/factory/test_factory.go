package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/diamondsgame/internal/dependencies/mocks"
	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/rules"
	"github.com/mcoot/diamondsgame/internal/services/auth"
	"github.com/mcoot/diamondsgame/internal/services/phase"
	"github.com/mcoot/diamondsgame/internal/storage/memory"
)

// TestAdminUsername is granted elevated privilege in test apps
const TestAdminUsername = "warden"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	Memory    *memory.Storage
}

// NewTestApp creates an App over memory storage with a mock clock and a
// fixed-seed random source
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	authCfg := auth.DefaultConfig()
	authCfg.TokenSecret = "test-secret"
	authCfg.AdminUsernames = []string{TestAdminUsername}

	app := newWithDependencies(
		store,
		mockClock,
		random.NewSeeded(1),
		rules.Default(),
		authCfg,
		phase.DefaultDriverConfig(),
		slog.New(slog.NewJSONHandler(io.Discard, nil)),
	)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		Memory:    store,
	}
}

// ExpirePhase moves the mock clock past the end of the current phase
func (t *TestApp) ExpirePhase(seconds int) {
	t.MockClock.Advance(time.Duration(seconds) * time.Second)
}
