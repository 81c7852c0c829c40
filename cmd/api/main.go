package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eligo-vote/facematch/internal/api"
	"github.com/eligo-vote/facematch/internal/config"
	"github.com/eligo-vote/facematch/internal/database"
	"github.com/eligo-vote/facematch/internal/matcher"
	"github.com/eligo-vote/facematch/internal/repository"
	"github.com/eligo-vote/facematch/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Facematch API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.Float64("threshold", cfg.MatchThreshold),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	auditRepo := repository.NewMatchAuditRepository(pool)
	engine := matcher.New(cfg.MatchThreshold)
	matchService := service.NewMatchService(enrollmentRepo, auditRepo, engine)

	router := api.NewRouter(logger, &api.Dependencies{
		MatchService: matchService,
		DB:           pool,
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}
