package profile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/diamondsgame/internal/dependencies/clock"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/storage"
)

// Service reads carried-over scores and persists final ones
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new profile Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "profile")),
	}
}

// CarriedScore returns the player's stored score, or 0 for a new player
func (s *Service) CarriedScore(ctx context.Context, id model.PlayerID) (int, error) {
	p, err := s.storage.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return p.Score, nil
}

// Record persists each player's current score. Failures are logged and the
// first one returned; the remaining players are still attempted.
func (s *Service) Record(ctx context.Context, players ...model.Player) error {
	var firstErr error
	now := s.clock.Now()
	for _, p := range players {
		err := s.storage.SaveProfile(ctx, &model.Profile{
			PlayerID:  p.ID,
			Score:     p.Score,
			UpdatedAt: now,
		})
		if err != nil {
			s.logger.Error("failed to save profile",
				slog.String("player_id", string(p.ID)),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Debug("profile saved",
			slog.String("player_id", string(p.ID)),
			slog.Int("score", p.Score),
		)
	}
	return firstErr
}
