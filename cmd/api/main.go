package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/plutohub/platform/internal/app"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/infra"
	"github.com/plutohub/platform/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	// Apply migrations
	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Assemble the service
	a, err := app.New(app.Deps{Pool: pool, Config: cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("wire app: %w", err)
	}

	// Background loops: lobby heartbeats, session expiry, event publishing
	a.Hub.StartHeartbeats(ctx)
	a.Sweeper.Start(ctx)

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	if cfg.KafkaEnabled {
		outboxRepo := repository.NewOutboxRepository()
		fetch := func(ctx context.Context, limit int) ([]domain.OutboxDraft, error) {
			return outboxRepo.FetchUnpublished(ctx, pool, limit)
		}
		mark := func(ctx context.Context, eventIDs []uuid.UUID) error {
			return outboxRepo.MarkPublished(ctx, pool, eventIDs)
		}
		infra.NewOutboxPoller(fetch, mark, producer, logger).Start(ctx)
	}

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:        addr,
		Handler:     a.Router,
		ReadTimeout: 15 * time.Second,
		// SSE streams stay open past any write deadline; rely on client
		// disconnect and context cancellation instead.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
