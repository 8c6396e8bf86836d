// Command outbox-consumer delivers session lifecycle events to game backend
// callback URLs. It reads the pluto.session.* topics published by the API
// server's outbox poller, signs each delivery with the game's MAC key, and
// trips a per-game circuit breaker when a backend keeps failing.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plutohub/platform/internal/auth"
	"github.com/plutohub/platform/internal/domain"
	"github.com/plutohub/platform/internal/guard"
	"github.com/plutohub/platform/internal/infra"
	"github.com/plutohub/platform/internal/repository"
	"github.com/segmentio/kafka-go"
)

const (
	consumerGroup   = "pluto-callback-delivery"
	callbackTimeout = 5 * time.Second
	failThreshold   = 5
	resetTimeout    = 30 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox consumer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.KafkaEnabled {
		return fmt.Errorf("KAFKA_ENABLED must be true for the outbox consumer")
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("outbox-consumer connected to postgres")

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: strings.Split(cfg.KafkaBrokers, ","),
		GroupID: consumerGroup,
		GroupTopics: []string{
			string(domain.EventSessionExecuted),
			string(domain.EventSessionSettled),
			string(domain.EventSessionCancelled),
			string(domain.EventSessionExpired),
		},
	})
	defer reader.Close()

	d := &deliverer{
		pool:    pool,
		games:   repository.NewGameRepository(),
		breaker: guard.NewCircuitBreaker(failThreshold, resetTimeout),
		client:  &http.Client{Timeout: callbackTimeout},
		logger:  logger,
	}

	logger.Info("outbox-consumer starting", "brokers", cfg.KafkaBrokers, "group", consumerGroup)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("outbox-consumer shutting down")
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		// Delivery is best-effort: a callback the breaker rejects or the
		// backend bounces is logged and dropped, not retried forever. Game
		// backends reconcile missed transitions through the session audit
		// endpoint.
		if err := d.deliver(ctx, msg); err != nil {
			logger.Error("callback delivery failed", "topic", msg.Topic, "error", err)
		}
	}
}

// envelope is the message shape the outbox poller publishes.
type envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type deliverer struct {
	pool    *pgxpool.Pool
	games   repository.GameRepository
	breaker *guard.CircuitBreaker
	client  *http.Client
	logger  *slog.Logger
}

func (d *deliverer) deliver(ctx context.Context, msg kafka.Message) error {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	var body struct {
		GameID uuid.UUID `json:"gameId"`
	}
	if err := json.Unmarshal(env.Payload, &body); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if body.GameID == uuid.Nil {
		return fmt.Errorf("event %s has no gameId", env.EventID)
	}

	game, err := d.games.FindByID(ctx, d.pool, body.GameID)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	if game == nil || !game.IsActive || game.CallbackURL == nil || *game.CallbackURL == "" {
		d.logger.Debug("no callback target", "game_id", body.GameID, "event_id", env.EventID)
		return nil
	}

	gameID := game.ID.String()
	if res := d.breaker.Check(ctx, gameID); !res.Allowed {
		d.logger.Warn("callback suppressed", "game_id", gameID, "reason", res.Reason)
		return nil
	}

	key, err := hex.DecodeString(game.ClientSecretDigest)
	if err != nil {
		return fmt.Errorf("game %s has malformed secret digest", gameID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *game.CallbackURL, bytes.NewReader(env.Payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Game-Id", gameID)
	req.Header.Set("X-Pluto-Signature", auth.SignBody(key, env.Payload))
	req.Header.Set("X-Pluto-Event", env.EventType)
	req.Header.Set("X-Pluto-Event-Id", env.EventID.String())

	resp, err := d.client.Do(req)
	if err != nil {
		d.breaker.RecordFailure(gameID)
		return fmt.Errorf("post callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.breaker.RecordFailure(gameID)
		return fmt.Errorf("callback returned %d", resp.StatusCode)
	}

	d.breaker.RecordSuccess(gameID)
	d.logger.Info("callback delivered",
		"event_id", env.EventID,
		"event_type", env.EventType,
		"game_id", gameID,
		"status", resp.StatusCode,
	)
	return nil
}
