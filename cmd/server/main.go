package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sumire/storeit/internal/backend"
	"github.com/sumire/storeit/internal/config"
	"github.com/sumire/storeit/internal/handler"
	"github.com/sumire/storeit/internal/repository"
	"github.com/sumire/storeit/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	clients := backend.NewFactory(backend.Config{
		Endpoint:  cfg.AppwriteEndpoint,
		ProjectID: cfg.AppwriteProject,
		APIKey:    cfg.AppwriteAPIKey,
	})

	userRepo := repository.NewUserRepository(cfg.DatabaseID, cfg.UsersCollectionID)

	authSvc := service.NewAuthService(clients, userRepo, service.AuthConfig{
		AvatarPlaceholderURL: cfg.AvatarPlaceholderURL,
		BucketID:             cfg.BucketID,
	}, logger)

	challenges := service.NewChallengeSigner(cfg.ChallengeSecret, cfg.ChallengeTTL)

	e, err := handler.NewRouter(authSvc, challenges, handler.RouterConfig{
		FrontendURL: cfg.FrontendURL,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "project", cfg.AppwriteProject)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
