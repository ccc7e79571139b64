package phase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/storage"
)

// DriverConfig holds the client loop timings
type DriverConfig struct {
	// TickInterval is the phase timer resolution
	TickInterval time.Duration
	// PollInterval is the fallback re-fetch period when notifications are
	// unavailable, and how often RunAll looks for new sessions
	PollInterval time.Duration
}

// DefaultDriverConfig returns the standard client timings
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		TickInterval: time.Second,
		PollInterval: 2 * time.Second,
	}
}

// Driver is a client loop that keeps sessions moving. Any number of drivers
// may run against the same store; the election inside Coordinator.Advance
// keeps them from double-applying a transition.
type Driver struct {
	coordinator *Coordinator
	storage     storage.Storage
	cfg         DriverConfig
	logger      *slog.Logger
}

// NewDriver creates a Driver
func NewDriver(coordinator *Coordinator, storage storage.Storage, cfg DriverConfig, logger *slog.Logger) *Driver {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultDriverConfig().TickInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultDriverConfig().PollInterval
	}
	return &Driver{
		coordinator: coordinator,
		storage:     storage,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "driver")),
	}
}

// Run drives one session until ctx is done. It ticks on the timer and
// immediately on any change notification; if the notification stream is
// lost it keeps going on the fallback poll alone.
func (d *Driver) Run(ctx context.Context, id model.SessionID) error {
	events, err := d.storage.Subscribe(ctx, id)
	if err != nil {
		d.logger.Warn("notifications unavailable, polling only",
			slog.String("session_id", string(id)),
			slog.String("error", err.Error()),
		)
		events = nil
	}

	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()
	poll := time.NewTicker(d.cfg.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-poll.C:
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
		}

		if err := d.step(ctx, id); err != nil {
			if errors.Is(err, model.ErrSessionNotFound) {
				return err
			}
		}
	}
}

// RunAll drives every stored session, picking up new ones on each poll,
// until ctx is done
func (d *Driver) RunAll(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	running := make(map[model.SessionID]bool)
	var mu sync.Mutex

	poll := time.NewTicker(d.cfg.PollInterval)
	defer poll.Stop()

	for {
		ids, err := d.storage.ListSessions(ctx)
		if err != nil {
			d.logger.Warn("failed to list sessions", slog.String("error", err.Error()))
		}
		for _, id := range ids {
			mu.Lock()
			if running[id] {
				mu.Unlock()
				continue
			}
			running[id] = true
			mu.Unlock()

			wg.Add(1)
			go func(id model.SessionID) {
				defer wg.Done()
				err := d.Run(ctx, id)
				mu.Lock()
				delete(running, id)
				mu.Unlock()
				if err != nil && !errors.Is(err, context.Canceled) {
					d.logger.Info("driver stopped",
						slog.String("session_id", string(id)),
						slog.String("error", err.Error()),
					)
				}
			}(id)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
		}
	}
}

// step runs one coordinator tick. Store failures are logged and left for
// the next tick to retry.
func (d *Driver) step(ctx context.Context, id model.SessionID) error {
	advanced, err := d.coordinator.Tick(ctx, id)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("tick failed",
				slog.String("session_id", string(id)),
				slog.String("error", err.Error()),
			)
		}
		return err
	}
	if advanced {
		d.logger.Debug("tick advanced session", slog.String("session_id", string(id)))
	}
	return nil
}
