package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/diamondsgame/internal/dependencies/clock"
	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/rules"
	"github.com/mcoot/diamondsgame/internal/services/auth"
	"github.com/mcoot/diamondsgame/internal/services/battle"
	"github.com/mcoot/diamondsgame/internal/services/deck"
	"github.com/mcoot/diamondsgame/internal/services/extraction"
	"github.com/mcoot/diamondsgame/internal/services/phase"
	"github.com/mcoot/diamondsgame/internal/services/profile"
	"github.com/mcoot/diamondsgame/internal/services/scoring"
	"github.com/mcoot/diamondsgame/internal/services/session"
	"github.com/mcoot/diamondsgame/internal/sse"
	"github.com/mcoot/diamondsgame/internal/storage"
	"github.com/mcoot/diamondsgame/internal/storage/memory"
	redisstorage "github.com/mcoot/diamondsgame/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	Rules rules.Rules

	// Services
	AuthService        *auth.Service
	ProfileService     *profile.Service
	ScoringService     *scoring.Service
	ExtractionResolver *extraction.Resolver
	Coordinator        *phase.Coordinator
	SessionController  *session.Controller
	Driver             *phase.Driver
	HubManager         *sse.HubManager
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If TokenTTL is zero, auth.DefaultConfig() values are used
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// RulesPath is an optional YAML rules override file
	RulesPath string
	// DriverConfig sets the session driver's timings (optional)
	DriverConfig phase.DriverConfig
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	r := rules.Default()
	if cfg.RulesPath != "" {
		loaded, err := rules.LoadFile(cfg.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("loading rules: %w", err)
		}
		r = loaded
	}

	authCfg := cfg.AuthConfig
	if authCfg.TokenTTL == 0 {
		defaults := auth.DefaultConfig()
		authCfg.TokenTTL = defaults.TokenTTL
		if authCfg.Issuer == "" {
			authCfg.Issuer = defaults.Issuer
		}
	}

	return newWithDependencies(store, clock.New(), random.New(), r, authCfg, cfg.DriverConfig, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	r rules.Rules,
	authCfg auth.Config,
	driverCfg phase.DriverConfig,
	logger *slog.Logger,
) *App {
	profileService := profile.New(store, clk, logger)
	scoringService := scoring.New(r.Scoring)
	resolver := extraction.New(store, clk, logger)
	coordinator := phase.New(
		store,
		r,
		deck.NewGenerator(r),
		battle.NewEvaluator(r),
		scoringService,
		resolver,
		profileService,
		clk,
		rnd,
		logger,
	)

	return &App{
		Storage:            store,
		Clock:              clk,
		Random:             rnd,
		Rules:              r,
		AuthService:        auth.New(store, clk, authCfg),
		ProfileService:     profileService,
		ScoringService:     scoringService,
		ExtractionResolver: resolver,
		Coordinator:        coordinator,
		SessionController:  session.NewController(store, profileService, clk, rnd, logger),
		Driver:             phase.NewDriver(coordinator, store, driverCfg, logger),
		HubManager:         sse.NewHubManager(store, logger),
	}
}
