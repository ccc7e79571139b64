package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mcoot/diamondsgame/internal/api"
	"github.com/mcoot/diamondsgame/internal/factory"
	"github.com/mcoot/diamondsgame/internal/services/auth"
	redisstorage "github.com/mcoot/diamondsgame/internal/storage/redis"
)

func main() {
	level := slog.LevelInfo
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			level = slog.LevelInfo
		}
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	authCfg := auth.DefaultConfig()
	authCfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	if authCfg.TokenSecret == "" {
		logger.Error("TOKEN_SECRET is required")
		os.Exit(1)
	}
	if admins := os.Getenv("ADMIN_USERNAMES"); admins != "" {
		authCfg.AdminUsernames = strings.Split(admins, ",")
	}

	// Build factory config from environment
	cfg := factory.Config{
		AuthConfig:  authCfg,
		Logger:      logger,
		StorageType: os.Getenv("STORAGE_TYPE"),
		RulesPath:   os.Getenv("RULES_PATH"),
	}

	// Configure Redis if storage type is redis
	if cfg.StorageType == factory.StorageTypeRedis {
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			logger.Error("REDIS_URL required when STORAGE_TYPE=redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.HubManager.Close()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:             logger,
		AuthService:        app.AuthService,
		SessionController:  app.SessionController,
		Coordinator:        app.Coordinator,
		ExtractionResolver: app.ExtractionResolver,
		HubManager:         app.HubManager,
	})

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverConfig := api.DefaultServerConfig()
	if raw := os.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			logger.Error("invalid PORT", slog.String("port", raw))
			os.Exit(1)
		}
		serverConfig.Port = port
	}
	server := api.NewServer(ctx, router, serverConfig, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Without a server-side driver, sessions advance only on client ticks
	if os.Getenv("DRIVE_SESSIONS") != "false" {
		go func() {
			if err := app.Driver.RunAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("session driver stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
